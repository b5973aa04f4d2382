package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ahrav/go-concord/internal/domain"
)

const (
	// maxNameWidth caps the display width of criterion names and labels.
	maxNameWidth = 24
	// barWidth is the display width of the longest combined-weight bar.
	barWidth = 30
	colGap   = "  "
)

// TableRenderer writes a Result as aligned text tables in four sections:
// normalized weights, decision-maker weighting, combined weights with a
// bar chart, and the consensus report. Widths are measured in terminal
// cells, so names in wide scripts stay aligned.
type TableRenderer struct {
	// Precision is the number of decimals printed. Zero means 4.
	Precision int
}

// Format implements ports.ResultRenderer.
func (TableRenderer) Format() string { return FormatTable }

// Render implements ports.ResultRenderer.
func (t TableRenderer) Render(w io.Writer, r *domain.Result) error {
	prec := t.Precision
	if prec <= 0 {
		prec = 4
	}
	num := func(v float64) string { return fmt.Sprintf("%.*f", prec, v) }

	bw := bufio.NewWriter(w)

	// Normalized weights.
	header := []string{"Criterion"}
	for _, dm := range r.DecisionMakers {
		header = append(header, dm.Label)
	}
	rows := make([][]string, 0, len(r.Criteria))
	for l, c := range r.Criteria {
		row := []string{c.Name}
		for k := range r.DecisionMakers {
			row = append(row, num(r.Normalized.Values[l][k]))
		}
		rows = append(rows, row)
	}
	writeSection(bw, "Normalized weights", header, rows)
	fmt.Fprintln(bw)

	// Decision-makers.
	rows = rows[:0]
	for k, dm := range r.DecisionMakers {
		rows = append(rows, []string{
			dm.Label,
			num(r.Distances[k]),
			num(r.Adjusted.NormalizedDistances[k]),
			num(r.Adjusted.Weights[k]),
		})
	}
	writeSection(bw, "Decision-makers", []string{"Decision-maker", "Distance", "Share", "Weight"}, rows)
	if r.Adjusted.Fallback {
		fmt.Fprintln(bw, "Every decision-maker sits at the neutral vector; weights are equal.")
	}
	fmt.Fprintln(bw)

	// Combined weights.
	var peak float64
	for _, v := range r.Combined {
		peak = max(peak, v)
	}
	rows = rows[:0]
	for l, c := range r.Criteria {
		rows = append(rows, []string{c.Name, num(r.Combined[l]), bar(r.Combined[l], peak)})
	}
	writeSection(bw, "Combined weights", []string{"Criterion", "Weight", ""}, rows)
	fmt.Fprintln(bw)

	// Consensus.
	rows = rows[:0]
	for _, e := range r.Consensus.Entries {
		rows = append(rows, []string{
			e.Criterion.Name,
			num(e.Mean),
			num(e.StdDev),
			num(e.MaxStdDev),
			num(e.Index),
			string(e.Level),
			string(e.Dispersion),
		})
	}
	title := fmt.Sprintf("Consensus (%s standard deviation)", r.Consensus.Estimator)
	writeSection(bw, title, []string{"Criterion", "Mean", "Std dev", "Max std", "Index", "Level", "Dispersion"}, rows)

	return bw.Flush()
}

// writeSection writes a titled table. The first column is left-aligned;
// the rest are right-aligned unless they hold text.
func writeSection(w io.Writer, title string, header []string, rows [][]string) {
	widths := make([]int, len(header))
	cells := append([][]string{header}, rows...)
	for _, row := range cells {
		for i, cell := range row {
			limit := maxNameWidth + barWidth
			if i == 0 {
				limit = maxNameWidth
			}
			row[i] = runewidth.Truncate(cell, limit, "…")
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", runewidth.StringWidth(title)))
	for _, row := range cells {
		parts := make([]string, len(row))
		for i, cell := range row {
			if i == 0 || !numeric(cell) {
				parts[i] = padRight(cell, widths[i])
			} else {
				parts[i] = padLeft(cell, widths[i])
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, colGap), " "))
	}
}

// bar renders v as a run of block characters proportional to peak.
func bar(v, peak float64) string {
	if peak <= 0 {
		return ""
	}
	n := int(v/peak*barWidth + 0.5)
	return strings.Repeat("█", n)
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// padLeft right-aligns s within width display cells.
func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}
