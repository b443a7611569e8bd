package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	styles "github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/keilerkonzept/matchdash/internal/dashboard"
	"github.com/keilerkonzept/matchdash/internal/heatmap"
	"github.com/keilerkonzept/matchdash/internal/metrics"
)

// heatMapLines is the height of the rendered heat map: header, two condition
// rows and an optional row for unknown outcomes.
const heatMapLines = 4

func (m *model) View() string {
	start := time.Now()
	defer func() { m.stats.observeRender(time.Since(start)) }()

	header := headerStyle.Render(fmt.Sprintf("%s (%d/%d)", m.facet(), m.facetIdx+1, len(m.facets)))
	left := m.listStyle.Render(styles.JoinVertical(styles.Left, header, m.list.View()))

	plotView := m.plot.String()
	if plotView == "" {
		plotView = emptyPlot(m.plotWidth, m.plotHeight)
	}
	right := paneStyle.Render(styles.JoinVertical(styles.Left,
		renderMetricTable(m.session.MetricTable()),
		plotView,
		m.plotLabels(),
		renderHeatMap(m.session.HeatMap()),
	))
	view := styles.JoinHorizontal(styles.Top, left, right)

	page := m.session.Page()
	count := m.session.Count()
	pageLine := fmt.Sprintf("Showing %d-%d of %d (%d total)  %s %s",
		page.Begin, page.End, page.Total, count.Total,
		enabled(page.RetreatEnabled, "« Last"), enabled(page.AdvanceEnabled, "Next »"))
	bottom := []string{view, paneStyle.Render(m.table.View()), pageLine}

	if m.err != nil {
		errStyle := styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
		bottom = append(bottom, errStyle.Render("ERROR: "+m.err.Error()))
	}
	if m.cfg.StatsEnabled {
		statsStyle := styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
		bottom = append(bottom, statsStyle.Render(strings.Join(m.statsBlock(), "\n")))
	}
	bottom = append(bottom, m.help.View(keys))
	return styles.JoinVertical(styles.Left, bottom...)
}

func enabled(on bool, label string) string {
	if on {
		return selectedFg.Render(label)
	}
	return borderFg.Render(label)
}

func (m *model) plotLabels() string {
	linColor, logColor := selectedFg, borderFg
	if m.logScale {
		linColor, logColor = borderFg, selectedFg
	}
	linLog := linColor.Render("LIN") + " " + logColor.Render("LOG")

	brush := borderFg.Render("brush off")
	if m.brushOn {
		brush = selectedFg.Render(fmt.Sprintf("brush (%.2f, %.2f)", m.brushLo, m.brushHi))
	}
	legend := "TP/FP by confidence"
	w := max(0, m.rightPaneWidth-2)
	used := len(legend) + len("LIN LOG") + styles.Width(brush)
	if w < used+2 {
		return " " + linLog
	}
	gap := (w - used) / 2
	return legend + strings.Repeat(" ", gap) + brush + strings.Repeat(" ", w-used-gap) + linLog
}

func (m *model) statsBlock() []string {
	snap := m.stats.snapshot()
	title := "PERF STATS (RUNNING)"
	if m.paused {
		snap = m.frozen
		title = "PERF STATS (PAUSED)"
	}
	return []string{
		title,
		fmt.Sprintf("interactions: %d  reducer calls: %d  filtered: %d", snap.interactions, snap.dispatched, snap.filtered),
		fmt.Sprintf("interaction latency: last %s  p95 %s  max %s", formatMetricDuration(snap.interaction.last), formatMetricDuration(snap.interaction.p95), formatMetricDuration(snap.interaction.max)),
		fmt.Sprintf("render latency: avg %s  p95 %s", formatMetricDuration(snap.render.avg), formatMetricDuration(snap.render.p95)),
		fmt.Sprintf("facet rank: avg %s  (%d full, %d partial)", formatMetricDuration(snap.rank.avg), snap.fullRefreshes, snap.partRefreshes),
	}
}

func renderMetricTable(rows []metrics.Row) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s %-20s  %-20s\n", "", "micro P / R / F", "macro P / R / F")
	for i, row := range rows {
		micro, macro := row.Micro.Format(), row.Macro.Format()
		line := fmt.Sprintf("%-12s %s %s %s  %s %s %s",
			truncate(row.Name, 12),
			micro[0], micro[1], micro[2],
			macro[0], macro[1], macro[2])
		if i == 0 {
			line = headerStyle.Render(line)
		}
		sb.WriteString(line)
		if i < len(rows)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderHeatMap(cells []heatmap.Cell) string {
	counts := make(map[[2]string]int, len(cells))
	hasDefault := false
	for _, c := range cells {
		counts[[2]string{c.Actual, c.Predicted}] = c.Count
		if c.Actual == heatmap.Default {
			hasDefault = true
		}
	}
	actual := []string{heatmap.CondPositive, heatmap.CondNegative}
	if hasDefault {
		actual = append(actual, heatmap.Default)
	}
	predicted := []string{heatmap.Positive, heatmap.Negative, heatmap.Default}

	lines := []string{fmt.Sprintf("%-14s %9s %9s %9s", "", predicted[0], predicted[1], predicted[2])}
	for _, a := range actual {
		line := fmt.Sprintf("%-14s", a)
		for _, p := range predicted {
			line += fmt.Sprintf(" %9d", counts[[2]string{a, p}])
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderBoxes(boxes []dashboard.Box) string {
	lines := make([]string, 0, len(boxes)+1)
	lines = append(lines, fmt.Sprintf("%-12s %5s %6s %6s %6s %6s %6s", "matcher", "n", "min", "q1", "median", "q3", "max"))
	for _, b := range boxes {
		lines = append(lines, fmt.Sprintf("%-12s %5d %6.3f %6.3f %6.3f %6.3f %6.3f",
			truncate(b.Matcher, 12), b.N, b.Min, b.Q1, b.Median, b.Q3, b.Max))
	}
	return strings.Join(lines, "\n")
}

// printSummary writes the static panels when stdout is not a terminal.
func printSummary(w io.Writer, s *dashboard.Session) {
	count := s.Count()
	fmt.Fprintf(w, "%d records\n\n", count.Total)
	fmt.Fprintln(w, renderMetricTable(s.MetricTable()))
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderHeatMap(s.HeatMap()))
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderBoxes(s.ConfidenceBoxes()))
	fmt.Fprintln(w)
	for _, e := range s.ResultPerTestCase() {
		c := metrics.CountsOf(e.Value)
		fmt.Fprintf(w, "%-24s tp=%d fp=%d fn=%d\n", truncate(e.Key.String(), 24), c.TP, c.FP, c.FN)
	}
}

func tableColumns(width int) []table.Column {
	fixed := 12 + 10 + 8 + 6 + 15
	uri := max(10, (width-fixed-14)/2)
	return []table.Column{
		{Title: "Matcher", Width: 12},
		{Title: "TestCase", Width: 10},
		{Title: "URI Left", Width: uri},
		{Title: "Relation", Width: 8},
		{Title: "URI Right", Width: uri},
		{Title: "Conf", Width: 6},
		{Title: "Result", Width: 15},
	}
}

func emptyPlot(w, h int) string {
	if w < 1 || h < 1 {
		return ""
	}
	spaces := strings.Repeat(" ", w)
	lines := make([]string, h)
	for i := range lines {
		lines[i] = spaces
	}
	return strings.Join(lines, "\n")
}

func logCount(v float64) float64 { return math.Log(max(1, v)) }

// truncate shortens s to n cells, marking the cut with an ellipsis.
func truncate(s string, n int) string { return ansi.Truncate(s, n, "…") }

func formatMetricDuration(d time.Duration) string {
	if d <= 0 {
		return "0.000ms"
	}
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}
