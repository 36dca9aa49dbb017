//go:build linux

package process

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arumata/savevault/internal/usecase"
)

// commLen is the kernel's limit for /proc/<pid>/comm, terminator excluded.
const commLen = 15

func listProcesses(ctx context.Context) ([]usecase.ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	procs := make([]usecase.ProcessInfo, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		name := processName(pid)
		if name == "" {
			continue
		}
		procs = append(procs, usecase.ProcessInfo{PID: pid, Name: name})
	}
	return procs, nil
}

// processName prefers argv[0] when comm may have been truncated.
func processName(pid int) string {
	dir := filepath.Join("/proc", strconv.Itoa(pid))
	comm, err := os.ReadFile(filepath.Join(dir, "comm")) // #nosec G304 - /proc path
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(string(comm))
	if len(name) < commLen {
		return name
	}
	cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline")) // #nosec G304 - /proc path
	if err != nil || len(cmdline) == 0 {
		return name
	}
	argv0, _, _ := bytes.Cut(cmdline, []byte{0})
	if base := filepath.Base(string(argv0)); strings.HasPrefix(base, name) {
		return base
	}
	return name
}
