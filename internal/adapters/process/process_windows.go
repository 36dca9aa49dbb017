//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/arumata/savevault/internal/usecase"
)

func listProcesses(ctx context.Context) ([]usecase.ProcessInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("process snapshot: %w", err)
	}
	defer func() {
		_ = windows.CloseHandle(snapshot)
	}()

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(snapshot, &entry); err != nil {
		return nil, fmt.Errorf("first process: %w", err)
	}
	var procs []usecase.ProcessInfo
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		procs = append(procs, usecase.ProcessInfo{
			PID:  int(entry.ProcessID),
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		})
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				return procs, nil
			}
			return nil, fmt.Errorf("next process: %w", err)
		}
	}
}
