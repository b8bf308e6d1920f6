// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/convertly/internal/batch"
)

// SummaryRow is one label/value line of the end-of-run table.
type SummaryRow struct {
	Label string
	Value string
}

// SummaryRows builds the standard rows for a finished run.
func SummaryRows(runID string, s batch.Summary) []SummaryRow {
	rows := []SummaryRow{
		{Label: "Workflow", Value: s.Workflow},
		{Label: "Items", Value: fmt.Sprintf("%d", s.Total())},
		{Label: "Done", Value: fmt.Sprintf("%d", s.Done)},
		{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed)},
		{Label: "Elapsed", Value: s.Duration().Round(time.Millisecond).String()},
	}
	if runID != "" {
		rows = append([]SummaryRow{{Label: "Run", Value: runID}}, rows...)
	}
	return rows
}

// RenderSummary draws rows as a two-column table.
func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}
	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
