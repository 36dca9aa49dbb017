package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

func newBackupCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and delete backup archives",
	}
	cmd.AddCommand(newBackupCreateCmd(r))
	cmd.AddCommand(newBackupListCmd(r))
	cmd.AddCommand(newBackupInfoCmd(r))
	cmd.AddCommand(newBackupSavesCmd(r))
	cmd.AddCommand(newBackupCountCmd(r))
	cmd.AddCommand(newBackupDeleteCmd(r))
	return cmd
}

func newBackupCreateCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "create <save>",
		Short: "Archive a save and apply retention",
		Long: `Archive a save and apply retention.

Backups of <save> live in <backup root>/<save>/ and its undo snapshots in
<backup root>/<save>_undo/. A save whose name ends in "_undo" would share a
directory with another save's undo snapshots and is rejected; rename it in
the game to back it up.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				result, err := usecase.CreateBackup(ctx, cfg, env.deps, env.logger, args[0])
				if err != nil {
					return err
				}
				size := "?"
				if info, err := usecase.GetBackupInfo(ctx, cfg, env.deps, result.SaveName, result.Name); err == nil {
					size = humanize.IBytes(uint64(info.SizeBytes))
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s/%s (%s), kept %d, removed %d\n",
					result.SaveName, result.Name, size, result.Retained, result.Deleted)
				return err
			})
		},
	}
}

func newBackupListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list <save>",
		Short: "List archives of a save, newest first",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				archives, err := usecase.ListBackups(ctx, cfg, env.deps, args[0])
				if err != nil {
					return err
				}
				return printArchives(cmd.OutOrStdout(), archives, "no backups")
			})
		},
	}
}

func newBackupInfoCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "info <save> <archive>",
		Short: "Show details of one archive",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				info, err := usecase.GetBackupInfo(ctx, cfg, env.deps, args[0], args[1])
				if err != nil {
					return err
				}
				return printArchiveInfo(cmd.OutOrStdout(), info)
			})
		},
	}
}

func newBackupSavesCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List saves that have at least one archive",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				names, err := usecase.ListSavesWithBackups(ctx, cfg, env.deps)
				if err != nil {
					return err
				}
				for _, name := range names {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newBackupCountCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "count <save>",
		Short: "Print the number of archives of a save",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				n, err := usecase.CountBackups(ctx, cfg, env.deps, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
}

func newBackupDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <save> <archive>",
		Short: "Delete one archive",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				if err := usecase.DeleteBackup(ctx, cfg, env.deps, env.logger, args[0], args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
				return err
			})
		},
	}
}
