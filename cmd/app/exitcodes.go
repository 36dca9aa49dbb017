package main

import (
	"fmt"
	"io"
)

const (
	exitSuccess       = 0
	exitCriticalError = 1
	exitUsageError    = 2
	exitNotFound      = 3
	exitConflict      = 4
	exitLockBusy      = 76
	exitNoPermission  = 77
	exitInterrupted   = 130
)

// handleCmdError prints err to w and sets the exit code.
func handleCmdError(w io.Writer, exitCode *int, err error) {
	if err == nil {
		*exitCode = exitSuccess
		return
	}
	fmt.Fprintln(w, err)
	*exitCode = mapExitCode(err)
}
