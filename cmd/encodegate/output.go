package main

import (
	"encoding/json"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"encodegate/internal/health"
	"encodegate/internal/reaper"
	"encodegate/internal/runtime"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(header table.Row, rightAligned ...int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, column := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: column, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// cleanupTable lists every matched container with what the reaper did to it,
// or "" when nothing matched.
func cleanupTable(report reaper.Report) string {
	tw := newTable(table.Row{"ID", "Name", "State", "Result", "Detail"})
	row := func(c runtime.ContainerRecord, result, detail string) {
		tw.AppendRow(table.Row{c.ShortID(), c.Name, string(c.State), result, detail})
	}
	for _, c := range report.Removed {
		row(c, "removed", "")
	}
	for _, skip := range report.Skipped {
		row(skip.Container, "skipped", string(skip.Reason))
	}
	for _, failure := range report.Failures {
		row(failure.Container, "failed", failure.Message)
	}
	if tw.Length() == 0 {
		return ""
	}
	return tw.Render()
}

func engineTable(engine health.EngineHealth) string {
	tw := newTable(table.Row{"Engine", "API", "Containers", "Running", "Paused", "Stopped", "Images"}, 3, 4, 5, 6, 7)
	tw.AppendRow(table.Row{
		engine.Version,
		engine.APIVersion,
		strconv.Itoa(engine.ContainerCount),
		strconv.Itoa(engine.RunningCount),
		strconv.Itoa(engine.PausedCount),
		strconv.Itoa(engine.StoppedCount),
		strconv.Itoa(engine.ImageCount),
	})
	return tw.Render()
}

func checksTable(results []health.Result) string {
	tw := newTable(table.Row{"Check", "Status", "Detail"})
	for _, check := range results {
		status := "OK"
		if !check.Passed {
			status = "FAIL"
		}
		tw.AppendRow(table.Row{check.Name, status, check.Detail})
	}
	return tw.Render()
}
