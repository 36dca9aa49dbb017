//go:build darwin

package lock

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

func processStartTicks(pid int) (int64, bool) {
	_ = pid
	return 0, false
}

func processStartTime(pid int) (time.Time, bool) {
	if pid <= 0 {
		return time.Time{}, false
	}
	info, err := unix.SysctlKinfoProc("kern.proc.pid", pid)
	if err != nil || info == nil {
		return time.Time{}, false
	}
	tv := info.Proc.P_starttime
	return time.Unix(int64(tv.Sec), int64(tv.Usec)*1000), true
}

func processStartID(pid int) (string, bool) {
	start, ok := processStartTime(pid)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("lstart:%d", start.UnixNano()), true
}
