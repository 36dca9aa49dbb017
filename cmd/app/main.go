package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/adapters/loghandler"
	"github.com/arumata/savevault/internal/app"
	"github.com/arumata/savevault/internal/usecase"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)
	defer stop()

	opts := &rootOptions{}
	cmd, exitCode := newRootCmd(opts, func(logger *slog.Logger) *usecase.Dependencies {
		return app.NewDependencies(logger, app.Options{Notifications: !opts.noNotify})
	})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	return *exitCode
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	verbose    bool
	logLevel   string
	configPath string
	noNotify   bool
}

type depsFactory func(*slog.Logger) *usecase.Dependencies

func newRootCmd(opts *rootOptions, factory depsFactory) (*cobra.Command, *int) {
	exitCode := 0
	cmd := &cobra.Command{
		Use:           "savevault",
		Short:         "Back up and restore game saves",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetErr(os.Stderr)

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.configPath, "config", "", "config file (default: <user config dir>/savevault/config.toml)")
	flags.BoolVar(&opts.noNotify, "no-notify", false, "disable desktop notifications")

	r := &runner{opts: opts, factory: factory, exitCode: &exitCode}
	cmd.AddCommand(newInitCmd(r))
	cmd.AddCommand(newStatusCmd(r))
	cmd.AddCommand(newSavesCmd(r))
	cmd.AddCommand(newBackupCmd(r))
	cmd.AddCommand(newRestoreCmd(r))
	cmd.AddCommand(newUndoCmd(r))
	cmd.AddCommand(newAutoCmd(r))
	cmd.AddCommand(newServeCmd(r))
	cmd.AddCommand(newConfigCmd(r))
	cmd.AddCommand(newVersionCmd())

	return cmd, &exitCode
}

func mapExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch {
	case errors.Is(err, usecase.ErrUsage), errors.Is(err, usecase.ErrInvalidValue):
		return exitUsageError
	case errors.Is(err, usecase.ErrLockBusy), errors.Is(err, usecase.ErrGameRunning):
		return exitLockBusy
	case errors.Is(err, usecase.ErrInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, usecase.ErrPermission):
		return exitNoPermission
	case errors.Is(err, usecase.ErrNotFound):
		return exitNotFound
	case errors.Is(err, usecase.ErrAlreadyExists),
		errors.Is(err, usecase.ErrAlreadyRunning),
		errors.Is(err, usecase.ErrNotRunning):
		return exitConflict
	default:
		return exitCriticalError
	}
}

func setupLogger(verbose bool, level string) *slog.Logger {
	lvl := parseLogLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	handler := loghandler.NewHandler(os.Stderr, &loghandler.Options{
		Level:    lvl,
		UseColor: shouldUseColor(os.Stderr),
	})
	return slog.New(handler)
}

// withFileLogging adds a dated log file under logCfg.Dir. Long running
// commands use it so the daemon leaves a trail.
func withFileLogging(
	logger *slog.Logger,
	logCfg usecase.LoggingConfig,
	homeDir string,
	verbose bool,
) (*slog.Logger, func()) {
	dir := strings.TrimSpace(logCfg.Dir)
	if dir == "" {
		return logger, func() {}
	}
	expanded := usecase.ExpandHomeDirPublic(dir, homeDir)
	if err := os.MkdirAll(expanded, 0o750); err != nil {
		logger.Warn("Cannot create log directory", "path", expanded, "error", err)
		return logger, func() {}
	}
	filename := "savevault-" + time.Now().Format("2006-01-02") + ".log"
	logPath := filepath.Join(expanded, filename)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path from config
	if err != nil {
		logger.Warn("Cannot open log file", "path", logPath, "error", err)
		return logger, func() {}
	}

	fileLevel := parseLogLevel(logCfg.Level)
	if verbose && fileLevel > slog.LevelDebug {
		fileLevel = slog.LevelDebug
	}
	fileHandler := loghandler.NewHandler(f, &loghandler.Options{
		Level:    fileLevel,
		ShowDate: true,
	})

	combined := loghandler.NewMultiHandler(logger.Handler(), fileHandler)
	return slog.New(combined), func() { _ = f.Close() }
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shouldUseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
