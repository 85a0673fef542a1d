package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

const maxPlots = 6

type PlotOptions struct {
	Width  int
	Height int
	// Log plots log10 of the step size, which is easier to read once
	// halving and doubling span several orders of magnitude.
	Log bool
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 80, Height: 10}
}

// PlotStates draws one graph per state component (at most six) against the
// record index.
func PlotStates(records []dynamo.Record, opts PlotOptions) string {
	if len(records) == 0 {
		return ""
	}

	numVars := min(len(records[0].State), maxPlots)
	var b strings.Builder
	for v := 0; v < numVars; v++ {
		data := make([]float64, len(records))
		for i, rec := range records {
			if v < len(rec.State) {
				data[i] = rec.State[v]
			}
		}
		b.WriteString(asciigraph.Plot(data,
			asciigraph.Height(opts.Height),
			asciigraph.Width(opts.Width),
			asciigraph.Caption(fmt.Sprintf("y%d vs step", v)),
		))
		b.WriteString("\n\n")
	}
	return b.String()
}

// PlotStepSize draws the accepted step sizes, skipping the initial record.
func PlotStepSize(records []dynamo.Record, opts PlotOptions) string {
	if len(records) < 2 {
		return ""
	}

	data := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		h := rec.StepSize
		if opts.Log && h > 0 {
			h = math.Log10(h)
		}
		data = append(data, h)
	}

	caption := "step size"
	if opts.Log {
		caption = "log10(step size)"
	}
	return asciigraph.Plot(data,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
	)
}

// PlotSweep overlays one series per run of a tolerance sweep.
func PlotSweep(series [][]float64, captions []string, opts PlotOptions) string {
	if len(series) == 0 {
		return ""
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(strings.Join(captions, "  ")),
	)
}
