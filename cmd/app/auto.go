package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

func newAutoCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Configure automatic backups run by serve",
	}
	cmd.AddCommand(newAutoStatusCmd(r))
	cmd.AddCommand(newAutoIntervalCmd(r))
	cmd.AddCommand(newAutoToggleCmd(r, "enable", "Enable automatic backups of a save", true))
	cmd.AddCommand(newAutoToggleCmd(r, "disable", "Stop automatic backups of a save", false))
	return cmd
}

func newAutoStatusCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state published by a running serve",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				path := usecase.AutoBackupStatusPath(env.deps.FileSystem, cfg)
				status, err := usecase.ReadAutoBackupStatus(ctx, env.deps, path)
				if errors.Is(err, usecase.ErrNotFound) {
					status = usecase.AutoBackupStatus{
						IntervalSeconds: int(cfg.AutoBackupInterval / time.Second),
						Saves:           map[string]usecase.SaveAutoBackupState{},
					}
					for _, name := range cfg.AutoBackupSaves {
						status.Saves[name] = usecase.SaveAutoBackupState{SaveName: name, Enabled: true}
					}
				} else if err != nil {
					return err
				}
				return printAutoStatus(cmd.OutOrStdout(), status)
			})
		},
	}
}

func printAutoStatus(w io.Writer, status usecase.AutoBackupStatus) error {
	state := "stopped"
	if status.Running {
		state = "running since " + formatOptionalTime(status.StartedAt)
	}
	interval := time.Duration(status.IntervalSeconds) * time.Second
	if _, err := fmt.Fprintf(w, "Daemon:    %s\nInterval:  %s\n", state, interval); err != nil {
		return err
	}
	names := make([]string, 0, len(status.Saves))
	for name, s := range status.Saves {
		if s.Enabled {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, "Saves:     (none enabled)")
		return err
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSAVE\tLAST BACKUP\tNEXT BACKUP")
	for _, name := range names {
		s := status.Saves[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, formatOptionalTime(s.LastBackup), formatOptionalTime(s.NextBackup))
	}
	return tw.Flush()
}

func newAutoIntervalCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "interval <seconds>",
		Short: fmt.Sprintf("Set the auto backup interval (%d..%d seconds)",
			usecase.MinAutoBackupIntervalSeconds, usecase.MaxAutoBackupIntervalSeconds),
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				seconds, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("interval %q is not a number: %w", args[0], usecase.ErrUsage)
				}
				if err := usecase.UpdateAutoBackupInterval(ctx, env.deps, env.configPath, seconds); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "auto backup interval set to %s\n",
					time.Duration(seconds)*time.Second)
				return err
			})
		},
	}
}

func newAutoToggleCmd(r *runner, verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <save>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				if err := usecase.UpdateAutoBackupSave(ctx, env.deps, env.configPath, cfg, args[0], enabled); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "auto backup %sd for %s\n", verb, args[0])
				return err
			})
		},
	}
}
