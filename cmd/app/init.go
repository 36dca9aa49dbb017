package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

func newInitCmd(r *runner) *cobra.Command {
	var (
		saveRoot   string
		backupRoot string
		retention  int
		force      bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config file and create the backup root",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				opts := usecase.InitOptions{
					ConfigPath:     env.configPath,
					SaveRoot:       saveRoot,
					BackupRoot:     backupRoot,
					RetentionCount: retention,
					Force:          force,
					DryRun:         dryRun,
					HomeDir:        env.homeDir,
				}
				return usecase.Init(ctx, opts, env.deps, env.logger)
			})
		},
	}

	cmd.Flags().StringVar(&saveRoot, "save-root", "", "game save directory (default "+usecase.DefaultSaveRoot+")")
	cmd.Flags().StringVar(&backupRoot, "backup-root", "", "archive directory (default "+usecase.DefaultBackupRoot+")")
	cmd.Flags().IntVar(&retention, "retention", 0, "archives kept per save (default 10)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config (the old file is kept as a backup)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan changes without writing to disk")

	for _, name := range []string{"save-root", "backup-root"} {
		_ = cmd.RegisterFlagCompletionFunc(name,
			func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
				return nil, cobra.ShellCompDirectiveFilterDirs
			},
		)
	}

	return cmd
}
