//go:build windows

package lock

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

func processStartTicks(pid int) (int64, bool) {
	_ = pid
	return 0, false
}

func processStartTime(pid int) (time.Time, bool) {
	if pid <= 0 {
		return time.Time{}, false
	}
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid)) // #nosec G115 - pid > 0
	if err != nil {
		return time.Time{}, false
	}
	defer func() {
		_ = windows.CloseHandle(handle)
	}()

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(handle, &creation, &exit, &kernel, &user); err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, creation.Nanoseconds()), true
}

func processStartID(pid int) (string, bool) {
	start, ok := processStartTime(pid)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("ctime:%d", start.UnixNano()), true
}

// processAlive checks if process with given PID is running.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid)) // #nosec G115 - pid > 0
	if err != nil {
		return false
	}
	defer func() {
		_ = windows.CloseHandle(handle)
	}()

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	return exitCode == uint32(windows.STILL_ACTIVE)
}
