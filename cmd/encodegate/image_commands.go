package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"encodegate/internal/daemon"
	"encodegate/internal/provision"
)

func newImageCommand(ctx *commandContext) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Worker image utilities",
	}
	imageCmd.AddCommand(newImageEnsureCommand(ctx))
	return imageCmd
}

func newImageEnsureCommand(ctx *commandContext) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "ensure [NAME]",
		Short: "Pull the worker image unless it is already present",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			image := cfg.Worker.Image
			if len(args) == 1 {
				image = strings.TrimSpace(args[0])
			}

			var bar *progressbar.ProgressBar
			opts := daemon.ComponentOptions{}
			if !noProgress && !ctx.jsonOutput() && stderrIsTerminal() {
				bar = newPullBar(cmd, image)
				opts.OnProgress = func(_ string, p provision.Progress) {
					if p.Total > 0 {
						bar.ChangeMax64(p.Total)
					}
					_ = bar.Set64(p.Current)
				}
			}

			var result provision.Result
			err = ctx.withComponents(cmd, opts, func(c *daemon.Components) error {
				var ensureErr error
				result, ensureErr = c.Provisioner.EnsureImage(cmd.Context(), image)
				return ensureErr
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			switch result.Outcome {
			case provision.OutcomePulled:
				fmt.Fprintf(out, "Pulled %s\n", result.Image)
			default:
				fmt.Fprintf(out, "%s already present\n", result.Image)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not draw a progress bar while pulling")
	return cmd
}

func newPullBar(cmd *cobra.Command, image string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("pulling "+image),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
