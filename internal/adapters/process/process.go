// Package process looks up running processes for the restore guard.
package process

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/arumata/savevault/internal/usecase"
)

// Adapter implements ProcessPort using real process operations
type Adapter struct {
	logger *slog.Logger
	list   func(ctx context.Context) ([]usecase.ProcessInfo, error)
}

// New creates a new process adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("process adapter requires logger")
	}
	return &Adapter{logger: logger, list: listProcesses}
}

// GetPID returns the current process PID
func (a *Adapter) GetPID() int {
	return os.Getpid()
}

// FindRunning returns the first running process whose executable name matches
// one of names, ignoring case and a trailing ".exe".
func (a *Adapter) FindRunning(ctx context.Context, names []string) (usecase.ProcessInfo, bool, error) {
	if len(names) == 0 {
		return usecase.ProcessInfo{}, false, nil
	}
	procs, err := a.list(ctx)
	if err != nil {
		return usecase.ProcessInfo{}, false, err
	}
	self := os.Getpid()
	for _, p := range procs {
		if p.PID == self {
			continue
		}
		for _, name := range names {
			if matchName(p.Name, name) {
				a.logger.DebugContext(ctx, "process match", "pid", p.PID, "name", p.Name)
				return p, true, nil
			}
		}
	}
	return usecase.ProcessInfo{}, false, nil
}

func matchName(procName, want string) bool {
	normalize := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.TrimSuffix(s, ".exe")
	}
	a, b := normalize(procName), normalize(want)
	return a != "" && a == b
}
