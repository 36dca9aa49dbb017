//go:build linux

package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// processStartTicks reads the start time field of /proc/<pid>/stat.
func processStartTicks(pid int) (int64, bool) {
	if pid <= 0 {
		return 0, false
	}
	// #nosec G304 -- reading /proc/<pid>/stat from controlled path.
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, false
	}
	// comm may contain spaces; fields are counted after its closing paren.
	stat := string(data)
	if i := strings.LastIndexByte(stat, ')'); i >= 0 {
		stat = stat[i+1:]
	}
	fields := strings.Fields(stat)
	// starttime is field 22 overall, the 20th after pid and comm.
	if len(fields) < 20 {
		return 0, false
	}
	ticks, err := strconv.ParseInt(fields[19], 10, 64)
	if err != nil {
		return 0, false
	}
	return ticks, true
}

func processStartID(pid int) (string, bool) {
	ticks, ok := processStartTicks(pid)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("ticks:%d", ticks), true
}
