package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

func newRestoreCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <save> <archive>",
		Short: "Replace a save with an archive, keeping an undo snapshot",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				result, err := usecase.RestoreBackup(ctx, cfg, env.deps, env.logger, args[0], args[1])
				if err != nil {
					return err
				}
				return printRestoreResult(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newUndoCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Inspect and apply undo snapshots taken before restores",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <save>",
		Short: "List undo snapshots of a save, newest first",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				snapshots, err := usecase.ListUndoSnapshots(ctx, cfg, env.deps, args[0])
				if err != nil {
					return err
				}
				return printArchives(cmd.OutOrStdout(), snapshots, "no undo snapshots")
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore <save> <snapshot>",
		Short: "Put a save back to the state captured by an undo snapshot",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				result, err := usecase.RestoreFromUndoSnapshot(ctx, cfg, env.deps, env.logger, args[0], args[1])
				if err != nil {
					return err
				}
				return printRestoreResult(cmd.OutOrStdout(), result)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <save> <snapshot>",
		Short: "Delete one undo snapshot",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				if err := usecase.DeleteUndoSnapshot(ctx, cfg, env.deps, env.logger, args[0], args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
				return err
			})
		},
	})
	return cmd
}

func printRestoreResult(w io.Writer, result *usecase.RestoreResult) error {
	if _, err := fmt.Fprintf(w, "restored %s from %s\n", result.SaveName, result.SourceName); err != nil {
		return err
	}
	if result.HasUndoSnapshot {
		_, err := fmt.Fprintf(w, "previous state saved as %s\n", result.UndoSnapshotPath)
		return err
	}
	return nil
}
