package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

// runner builds the per-command environment and records exit codes.
type runner struct {
	opts     *rootOptions
	factory  depsFactory
	exitCode *int
}

type cliEnv struct {
	logger     *slog.Logger
	deps       *usecase.Dependencies
	homeDir    string
	configPath string
}

func (r *runner) env() (*cliEnv, error) {
	logger := setupLogger(r.opts.verbose, r.opts.logLevel)
	deps := r.factory(logger)
	if deps == nil || deps.FileSystem == nil || deps.Config == nil {
		return nil, fmt.Errorf("dependencies not available: %w", usecase.ErrCritical)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %v: %w", err, usecase.ErrCritical)
	}
	configPath := strings.TrimSpace(r.opts.configPath)
	if configPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %v: %w", err, usecase.ErrCritical)
		}
		configPath = usecase.ConfigPathIn(deps.FileSystem, configDir)
	} else {
		configPath = usecase.ExpandHomeDirPublic(configPath, homeDir)
	}
	return &cliEnv{
		logger:     logger,
		deps:       deps,
		homeDir:    homeDir,
		configPath: configPath,
	}, nil
}

// load reads the config file and resolves it into runtime settings.
func (e *cliEnv) load(ctx context.Context) (usecase.ConfigFile, *usecase.Config, error) {
	file, err := usecase.LoadConfigFile(ctx, e.deps, e.configPath)
	if err != nil {
		return usecase.ConfigFile{}, nil, err
	}
	cfg, err := usecase.RuntimeConfigFromFile(file, e.homeDir)
	if err != nil {
		return usecase.ConfigFile{}, nil, fmt.Errorf("config %s: %w", e.configPath, err)
	}
	return file, cfg, nil
}

// run executes fn with a fresh environment.
func (r *runner) run(cmd *cobra.Command, fn func(ctx context.Context, env *cliEnv) error) {
	env, err := r.env()
	if err != nil {
		handleCmdError(cmd.ErrOrStderr(), r.exitCode, err)
		return
	}
	handleCmdError(cmd.ErrOrStderr(), r.exitCode, fn(cmd.Context(), env))
}

// runWithConfig executes fn with the environment and resolved runtime config.
func (r *runner) runWithConfig(
	cmd *cobra.Command,
	fn func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error,
) {
	r.run(cmd, func(ctx context.Context, env *cliEnv) error {
		_, cfg, err := env.load(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, env, cfg)
	})
}
