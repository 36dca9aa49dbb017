//go:build !linux && !darwin && !windows

package lock

func processStartTicks(pid int) (int64, bool) {
	_ = pid
	return 0, false
}

func processStartID(pid int) (string, bool) {
	_ = pid
	return "", false
}
