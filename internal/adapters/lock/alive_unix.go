//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// processAlive checks if process with given PID is running.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 only probes; EPERM still means the process exists.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
