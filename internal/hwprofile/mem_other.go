//go:build !linux && !darwin && !windows

package hwprofile

import "fmt"

// readMemory has no reader on this platform; Profile falls back to the
// conservative defaults.
func readMemory() (memReading, error) {
	return memReading{}, fmt.Errorf("no memory reader for this platform")
}
