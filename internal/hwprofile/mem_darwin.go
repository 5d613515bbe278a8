//go:build darwin

package hwprofile

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// readMemory samples total memory via sysctl and approximates available
// memory from vm_stat free+inactive pages.
func readMemory() (memReading, error) {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return memReading{}, err
	}
	total, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil || total == 0 {
		return memReading{}, fmt.Errorf("sysctl hw.memsize: %q", strings.TrimSpace(string(out)))
	}

	r := memReading{totalBytes: total}
	if avail, err := vmStatAvailable(); err == nil {
		r.availBytes = avail
	} else {
		// Half of total is a workable estimate when vm_stat is unavailable.
		r.availBytes = total / 2
	}
	return r, nil
}

func vmStatAvailable() (uint64, error) {
	out, err := exec.Command("vm_stat").Output()
	if err != nil {
		return 0, err
	}
	pageSize := uint64(4096)
	var freePages, inactivePages uint64
	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(line, "Mach Virtual Memory Statistics"):
			// "(page size of 16384 bytes)"
			if i := strings.Index(line, "page size of "); i >= 0 {
				rest := line[i+len("page size of "):]
				if j := strings.Index(rest, " "); j > 0 {
					if ps, err := strconv.ParseUint(rest[:j], 10, 64); err == nil {
						pageSize = ps
					}
				}
			}
		case strings.HasPrefix(line, "Pages free:"):
			freePages = parseVMStatPages(line)
		case strings.HasPrefix(line, "Pages inactive:"):
			inactivePages = parseVMStatPages(line)
		}
	}
	return (freePages + inactivePages) * pageSize, nil
}

func parseVMStatPages(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0
	}
	v := strings.TrimSuffix(fields[len(fields)-1], ".")
	n, _ := strconv.ParseUint(v, 10, 64)
	return n
}
