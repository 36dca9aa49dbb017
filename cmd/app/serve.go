package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/adapters/loghandler"
	"github.com/arumata/savevault/internal/adapters/watcher"
	"github.com/arumata/savevault/internal/usecase"
)

const defaultStatusEvery = 15 * time.Second

func newServeCmd(r *runner) *cobra.Command {
	var statusEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run automatic backups until interrupted",
		Long: "Run the auto backup scheduler in the foreground. The config file is watched and\n" +
			"changes to the interval, enabled saves and paths apply without a restart.",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				file, cfg, err := env.load(ctx)
				if err != nil {
					return err
				}
				logger, closeLog := withFileLogging(env.logger, file.Logging, env.homeDir, r.opts.verbose)
				defer closeLog()
				d := &daemon{
					env:         env,
					logger:      logger.With(loghandler.ComponentKey, "serve"),
					statusEvery: statusEvery,
					watcher:     watcher.New(logger.With(loghandler.ComponentKey, "watcher"), 0),
				}
				return d.run(ctx, cfg)
			})
		},
	}

	cmd.Flags().DurationVar(&statusEvery, "status-every", defaultStatusEvery, "how often the status file is rewritten")

	return cmd
}

type configWatcher interface {
	Watch(ctx context.Context, path string, onChange func()) error
}

// daemon ties the scheduler to config reloads and the published status file.
type daemon struct {
	env         *cliEnv
	logger      *slog.Logger
	statusEvery time.Duration
	watcher     configWatcher

	svc        *usecase.AutoBackupService
	statusPath string
}

func (d *daemon) run(ctx context.Context, cfg *usecase.Config) error {
	d.svc = usecase.NewAutoBackupService(cfg, d.env.deps, d.logger)
	if err := usecase.ConfigureAutoBackup(ctx, d.svc, cfg, d.logger); err != nil {
		return err
	}
	d.statusPath = usecase.AutoBackupStatusPath(d.env.deps.FileSystem, cfg)
	if err := d.svc.Start(ctx); err != nil {
		return err
	}
	d.publish()

	reload := make(chan struct{}, 1)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		err := d.watcher.Watch(watchCtx, d.env.configPath, func() {
			select {
			case reload <- struct{}{}:
			default:
			}
		})
		if err != nil {
			d.logger.Warn("Config watcher unavailable, restart to apply changes", "error", err)
		}
	}()

	every := d.statusEvery
	if every <= 0 {
		every = defaultStatusEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return d.shutdown()
		case <-d.svc.Done():
			if ctx.Err() != nil {
				return d.shutdown()
			}
			d.publish()
			return errors.New("auto backup loop exited unexpectedly")
		case <-reload:
			d.reload(ctx)
			d.publish()
		case <-ticker.C:
			d.publish()
		}
	}
}

func (d *daemon) reload(ctx context.Context) {
	_, cfg, err := d.env.load(ctx)
	if err != nil {
		d.logger.Warn("Config reload failed, keeping previous settings", "error", err)
		return
	}
	if err := usecase.ConfigureAutoBackup(ctx, d.svc, cfg, d.logger); err != nil {
		d.logger.Warn("Config reload failed", "error", err)
		return
	}
	d.statusPath = usecase.AutoBackupStatusPath(d.env.deps.FileSystem, cfg)
	d.logger.Info("Config reloaded",
		"interval", time.Duration(d.svc.Interval())*time.Second,
		"saves", len(d.svc.EnabledSaves()))
}

func (d *daemon) shutdown() error {
	if err := d.svc.Stop(); err != nil && !errors.Is(err, usecase.ErrNotRunning) {
		return err
	}
	<-d.svc.Done()
	d.publish()
	return nil
}

func (d *daemon) publish() {
	status := d.svc.Status()
	// the final write happens after the command context is canceled
	if err := usecase.WriteAutoBackupStatus(context.Background(), d.env.deps, d.statusPath, status); err != nil {
		d.logger.Warn("Cannot write auto backup status", "path", d.statusPath, "error", err)
	}
}
