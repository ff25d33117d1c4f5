package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"encodegate/internal/admission"
	"encodegate/internal/config"
)

var errJobRejected = errors.New("job request rejected")

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var strictCopy bool

	cmd := &cobra.Command{
		Use:         "validate [FILE|-]",
		Short:       "Check a JSON job request against the admission rules",
		Long:        "Reads a job request from FILE, or from stdin when FILE is omitted or '-', and reports whether it would be admitted.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = strings.TrimSpace(args[0])
			}
			doc, err := readDocument(cmd, source)
			if err != nil {
				return err
			}

			validator := admission.NewValidator()
			if strictCopy {
				validator = validator.With(admission.StreamCopyRules()...)
			}
			verdict := validator.ValidateDocument(doc)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, verdict); err != nil {
					return err
				}
			} else {
				printVerdict(cmd.OutOrStdout(), verdict)
			}
			if !verdict.OK {
				return errJobRejected
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strictCopy, "strict-copy", false, "Also reject encoder settings on copied streams")
	return cmd
}

func readDocument(cmd *cobra.Command, source string) ([]byte, error) {
	if source == "" || source == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	path, err := config.ExpandPath(source)
	if err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job request: %w", err)
	}
	return doc, nil
}

func printVerdict(out io.Writer, verdict admission.Verdict) {
	if verdict.OK {
		fmt.Fprintln(out, "Accepted")
		return
	}
	var context []string
	if verdict.Kind != "" {
		context = append(context, string(verdict.Kind))
	}
	if verdict.Field != "" {
		context = append(context, verdict.Field)
	}
	if len(context) > 0 {
		fmt.Fprintf(out, "Rejected (%s)\n", strings.Join(context, ", "))
	} else {
		fmt.Fprintln(out, "Rejected")
	}
	fmt.Fprintf(out, "  %s\n", verdict.Error)
	if verdict.Code != "" {
		fmt.Fprintf(out, "  rule: %s\n", verdict.Code)
	}
}
