package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/rkadapt/internal/analysis"
	"github.com/san-kum/rkadapt/internal/dynamo"
)

// Summary renders the outcome of a run as a bordered panel.
func Summary(title string, res *dynamo.Result, start, end float64, records []dynamo.Record) string {
	status := StatusDone.Render(res.Status.String())
	if res.Status == dynamo.StatusBudgetExhausted {
		status = StatusBudget.Render(res.Status.String())
	}

	progress := 1.0
	if end > start {
		progress = (res.Final.Time - start) / (end - start)
	}

	sum := analysis.Summarize(records)
	steps := make([]float64, 0, len(records))
	for _, rec := range records[min(1, len(records)):] {
		steps = append(steps, rec.StepSize)
	}

	rows := [][2]string{
		{"status", status},
		{"time", fmt.Sprintf("%.6g / %.6g", res.Final.Time, end)},
		{"accepted", fmt.Sprintf("%d", res.Stats.Accepted)},
		{"rejected", fmt.Sprintf("%d", res.Stats.Rejected)},
		{"evaluations", fmt.Sprintf("%d", res.Stats.Evaluations)},
		{"step min/max", fmt.Sprintf("%.3e / %.3e", res.Stats.MinStep, res.Stats.MaxStep)},
		{"max error", fmt.Sprintf("%.3e", sum.MaxError)},
		{"final state", formatState(res.Final.State)},
	}

	var b strings.Builder
	b.WriteString(Title.Render(title))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			MetricLabel.Width(14).Render(r[0]),
			MetricValue.Render(r[1]),
		))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(ProgressBar(progress, 40))
	if len(steps) > 0 {
		b.WriteString("\n")
		b.WriteString(Subtle.Render("h " + Sparkline(steps, 40)))
	}

	return Panel.Render(b.String())
}

func formatState(s dynamo.State) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
