package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"encodegate/internal/daemon"
	"encodegate/internal/health"
)

var errNotReady = errors.New("one or more readiness checks failed")

type healthReport struct {
	Engine *health.EngineHealth `json:"engine,omitempty"`
	Ready  bool                 `json:"ready"`
	Checks []health.Result      `json:"checks"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report container engine health and readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report healthReport
			err := ctx.withComponents(cmd, daemon.ComponentOptions{}, func(c *daemon.Components) error {
				if snapshot, err := c.Checker.CheckConnection(cmd.Context()); err == nil {
					report.Engine = &snapshot
				}
				report.Checks = c.Checker.Readiness(cmd.Context(), c.ReadinessOptions())
				report.Ready = health.Ready(report.Checks)
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printHealthReport(cmd.OutOrStdout(), report)
			}
			if !report.Ready {
				return errNotReady
			}
			return nil
		},
	}
}

func printHealthReport(out io.Writer, report healthReport) {
	if report.Engine != nil {
		fmt.Fprintln(out, engineTable(*report.Engine))
	}
	fmt.Fprintln(out, checksTable(report.Checks))
	fmt.Fprintf(out, "Ready: %s\n", yesNo(report.Ready))
}
