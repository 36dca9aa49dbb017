package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

func newConfigCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Change persisted settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), env.configPath)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "retention <count>",
		Short: "Set how many archives are kept per save",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				count, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("retention %q is not a number: %w", args[0], usecase.ErrUsage)
				}
				if err := usecase.UpdateRetentionCount(ctx, env.deps, env.configPath, count); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "retention set to %d\n", count)
				return err
			})
		},
	})
	cmd.AddCommand(newConfigPathCmd(r, "save-root", "Set the game save directory (empty resets)", usecase.UpdateSaveRoot))
	cmd.AddCommand(newConfigPathCmd(r, "backup-root", "Set the archive directory (empty resets)", usecase.UpdateBackupRoot))
	cmd.AddCommand(&cobra.Command{
		Use:   "select <save>",
		Short: "Remember the save a front end works with",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				return usecase.UpdateLastSelectedSave(ctx, env.deps, env.configPath, args[0])
			})
		},
	})

	return cmd
}

func newConfigPathCmd(
	r *runner,
	name, short string,
	update func(ctx context.Context, deps *usecase.Dependencies, path, value string) error,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " [path]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				value := ""
				if len(args) == 1 {
					value = args[0]
				}
				return update(ctx, env.deps, env.configPath, value)
			})
		},
	}
	cmd.ValidArgsFunction = func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	}
	return cmd
}
