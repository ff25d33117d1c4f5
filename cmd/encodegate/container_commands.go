package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"encodegate/internal/api"
	"encodegate/internal/daemon"
	"encodegate/internal/reaper"
)

func newContainersCommand(ctx *commandContext) *cobra.Command {
	containersCmd := &cobra.Command{
		Use:   "containers",
		Short: "Worker container maintenance",
	}
	containersCmd.AddCommand(newContainersCleanupCommand(ctx))
	return containersCmd
}

func newContainersCleanupCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup [PREFIX]",
		Short: "Remove stopped containers whose name starts with PREFIX",
		Long:  "Removes every non-running container whose name starts with PREFIX (default: worker.container_prefix). Running containers are never touched.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prefix := cfg.Worker.ContainerPrefix
			if len(args) == 1 {
				prefix = args[0]
			}

			var report reaper.Report
			var cleanupErr error
			err = ctx.withComponents(cmd, daemon.ComponentOptions{}, func(c *daemon.Components) error {
				report, cleanupErr = c.Cleanup(cmd.Context(), prefix, wait)
				return nil
			})
			if err != nil {
				return err
			}
			if cleanupErr != nil {
				// Only partial runs carry a report worth printing.
				if reapErr, ok := reaper.AsReapError(cleanupErr); !ok || len(reapErr.Failures) == 0 {
					return cleanupErr
				}
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, api.NewCleanupResponse(report, cleanupErr)); err != nil {
					return err
				}
			} else {
				printCleanupReport(cmd.OutOrStdout(), report)
			}
			return cleanupErr
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "How long to wait for a concurrent cleanup to finish")
	return cmd
}

func printCleanupReport(out io.Writer, report reaper.Report) {
	fmt.Fprintf(out, "Prefix %q: %d matched, %d removed, %d skipped, %d failed\n",
		report.Prefix, report.Matched, report.RemovedCount(), len(report.Skipped), len(report.Failures))

	if rendered := cleanupTable(report); rendered != "" {
		fmt.Fprintln(out, rendered)
	}
	if len(report.Failures) > 0 {
		fmt.Fprintln(out, "Rerun cleanup once the engine is healthy to retry failed removals.")
	}
}
