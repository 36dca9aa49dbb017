package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arumata/savevault/internal/usecase"
)

func newStatusCmd(r *runner) *cobra.Command {
	var scanBackups bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, auto backup and per-save backup status",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.run(cmd, func(ctx context.Context, env *cliEnv) error {
				opts := usecase.StatusOptions{
					ConfigPath:  env.configPath,
					HomeDir:     env.homeDir,
					ScanBackups: scanBackups,
				}
				report, err := usecase.Status(ctx, opts, env.deps, env.logger)
				if err != nil {
					return err
				}
				useColor := cmd.OutOrStdout() == os.Stdout && shouldUseColor(os.Stdout)
				_, err = fmt.Fprint(cmd.OutOrStdout(), usecase.FormatStatus(report, useColor))
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&scanBackups, "scan-backups", false, "scan the backup root for archives and sizes")

	return cmd
}

func newSavesCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List saves found under the save root",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			r.runWithConfig(cmd, func(ctx context.Context, env *cliEnv, cfg *usecase.Config) error {
				entries, err := usecase.ListSaveEntries(ctx, cfg, env.deps)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					_, err := fmt.Fprintf(out, "no saves found in %s\n", cfg.SaveRoot)
					return err
				}
				auto := make(map[string]bool, len(cfg.AutoBackupSaves))
				for _, name := range cfg.AutoBackupSaves {
					auto[name] = true
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SAVE\tMODE\tAUTO\tNOTE")
				for _, e := range entries {
					mode := e.Mode
					if mode == "" {
						mode = "-"
					}
					autoMark := ""
					if auto[e.RelativePath] {
						autoMark = "on"
					}
					note := ""
					if e.Unsupported != "" {
						note = "unsupported name"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.RelativePath, mode, autoMark, note)
				}
				return tw.Flush()
			})
		},
	}
}
