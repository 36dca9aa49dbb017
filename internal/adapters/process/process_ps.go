//go:build !linux && !windows

package process

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arumata/savevault/internal/usecase"
)

func listProcesses(ctx context.Context) ([]usecase.ProcessInfo, error) {
	out, err := exec.CommandContext(ctx, "ps", "-axo", "pid=,comm=").Output()
	if err != nil {
		return nil, err
	}
	var procs []usecase.ProcessInfo
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 2)
		if len(fields) != 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, usecase.ProcessInfo{
			PID:  pid,
			Name: filepath.Base(strings.TrimSpace(fields[1])),
		})
	}
	return procs, scanner.Err()
}
