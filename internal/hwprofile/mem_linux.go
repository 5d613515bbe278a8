//go:build linux

package hwprofile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readMemory parses /proc/meminfo. Values there are in kB.
func readMemory() (memReading, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return memReading{}, err
	}
	defer f.Close()
	return parseMeminfo(f)
}

func parseMeminfo(f *os.File) (memReading, error) {
	var r memReading
	var free, buffers, cached uint64
	haveAvailable := false

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			r.totalBytes = kb * 1024
		case "MemAvailable":
			r.availBytes = kb * 1024
			haveAvailable = true
		case "MemFree":
			free = kb * 1024
		case "Buffers":
			buffers = kb * 1024
		case "Cached":
			cached = kb * 1024
		}
	}
	if err := sc.Err(); err != nil {
		return memReading{}, err
	}
	if r.totalBytes == 0 {
		return memReading{}, fmt.Errorf("meminfo: no MemTotal")
	}
	// Older kernels lack MemAvailable; approximate with free + reclaimable.
	if !haveAvailable {
		r.availBytes = free + buffers + cached
	}
	return r, nil
}
