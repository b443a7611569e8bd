package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	plot "github.com/chriskim06/drawille-go"
	"github.com/keilerkonzept/topk/heap"

	"github.com/keilerkonzept/matchdash/internal/config"
	"github.com/keilerkonzept/matchdash/internal/confidence"
	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/dashboard"
	"github.com/keilerkonzept/matchdash/internal/logger"
	"github.com/keilerkonzept/matchdash/internal/record"
	"github.com/keilerkonzept/matchdash/internal/telemetry"
)

var (
	selectedColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor   = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	selectedFg    = styles.NewStyle().Foreground(selectedColor)
	borderFg      = styles.NewStyle().Foreground(borderColor)
	headerStyle   = styles.NewStyle().Bold(true)
	paneStyle     = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			BorderForeground(borderColor)
)

// plotPoints covers the confidence bins 0.00 to 1.00.
const plotPoints = 101

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

// run returns instead of exiting so that its deferred cleanup always runs.
// The UI only starts when stdout is a terminal; otherwise a summary is
// written to stdout.
func run(args []string, stdout io.Writer) error {
	cfg, err := config.Parse(args[0], args[1:])
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Setup(logOut, cfg.LogLevel, cfg.LogFormat)
	lg := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	records, err := record.LoadFiles(ctx, cfg.Inputs, record.Format(cfg.Format))
	if err != nil {
		return err
	}
	lg.Info("records loaded", "files", len(cfg.Inputs), "records", len(records), "elapsed", time.Since(start))

	stats := newLatencyMetrics(cfg.StatsWindow)
	stats.setEnabled(cfg.StatsEnabled)
	prom := telemetry.New()

	session, err := dashboard.New(records, dashboard.Options{
		PageSize: cfg.PageSize,
		Beta:     cfg.Beta,
		Logger:   slog.Default(),
		Observer: telemetry.Chain{prom, stats},
	})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, prom.Handler(), lg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if f, ok := stdout.(*os.File); !ok || !term.IsTerminal(f.Fd()) {
		printSummary(stdout, session)
		return nil
	}

	m := newModel(cfg, session, stats)
	var opts []tui.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	opts = append(opts, tui.WithContext(ctx))
	if _, err := tui.NewProgram(m, opts...).Run(); err != nil && !errors.Is(err, tui.ErrProgramKilled) {
		lg.Error("ui stopped", "error", err)
		return err
	}
	return nil
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func serveMetrics(addr string, h http.Handler, lg *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		lg.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

type model struct {
	cfg     config.Config
	session *dashboard.Session
	stats   *latencyMetrics
	ranker  *FacetRanker
	logger  *slog.Logger

	width, height  int
	leftPaneWidth  int
	rightPaneWidth int

	facets   []dashboard.Facet
	facetIdx int

	brushOn          bool
	brushLo, brushHi float64

	paused   bool
	frozen   snapshot
	logScale bool
	err      error

	list         list.Model
	listStyle    styles.Style
	listDelegate *list.DefaultDelegate
	table        table.Model
	help         help.Model
	plot         *plot.Canvas
	plotData     [][]float64
	plotWidth    int
	plotHeight   int
}

func newModel(cfg config.Config, session *dashboard.Session, stats *latencyMetrics) *model {
	const (
		defaultWidth  = 80
		defaultHeight = 20
	)

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = styles.NewStyle().
		Border(styles.NormalBorder(), false, false, false, true).
		BorderForeground(borderColor).
		Foreground(selectedColor).
		Bold(false).
		Padding(0, 0, 0, 1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.
		Foreground(selectedColor)
	d.ShowDescription = true

	l := list.New(make([]list.Item, 0), d, defaultWidth/2-2, defaultHeight)
	l.Styles.NoItems = l.Styles.NoItems.
		Padding(0, 2)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)

	t := table.New(
		table.WithColumns(tableColumns(defaultWidth)),
		table.WithFocused(false),
		table.WithHeight(min(cfg.PageSize, defaultHeight/3)),
	)

	p := plot.NewCanvas(defaultWidth/2, defaultHeight/2)
	p.NumDataPoints = plotPoints
	p.ShowAxis = false
	p.LineColors = []plot.Color{plot.DimGray, plot.Red}

	m := &model{
		cfg:          cfg,
		session:      session,
		stats:        stats,
		ranker:       NewFacetRanker(cfg.TopK, cfg.FullRefresh, cfg.PartialSize),
		logger:       logger.WithComponent("tui").With("session", session.ID()),
		facets:       dashboard.Facets(),
		brushLo:      0,
		brushHi:      1,
		logScale:     cfg.LogScale,
		list:         l,
		listDelegate: &d,
		table:        t,
		help:         help.New(),
		plot:         &p,
		plotData:     [][]float64{make([]float64, plotPoints), make([]float64, plotPoints)},
		plotWidth:    defaultWidth / 2,
		plotHeight:   defaultHeight / 2,
	}
	m.leftPaneWidth, m.rightPaneWidth = computePaneWidths(defaultWidth, cfg.ViewSplit)
	m.refreshList()
	m.refreshTable()
	m.updatePlot()
	return m
}

func (m *model) facet() dashboard.Facet { return m.facets[m.facetIdx] }

type rankTickMsg time.Time

func (m *model) doRankTick() tui.Cmd {
	every := max(m.cfg.FullRefresh, 250*time.Millisecond)
	return tui.Every(every, func(t time.Time) tui.Msg {
		return rankTickMsg(t)
	})
}

func (m *model) Init() tui.Cmd {
	return m.doRankTick()
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case rankTickMsg:
		return m, tui.Batch(m.refreshList(), m.doRankTick())
	case tui.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tui.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, keys.Up):
			m.list.CursorUp()
			return m, nil
		case key.Matches(msg, keys.Down):
			m.list.CursorDown()
			return m, nil
		case key.Matches(msg, keys.NextFacet):
			m.facetIdx = (m.facetIdx + 1) % len(m.facets)
			m.list.Select(0)
			return m, m.refreshList()
		case key.Matches(msg, keys.PrevFacet):
			m.facetIdx = (m.facetIdx - 1 + len(m.facets)) % len(m.facets)
			m.list.Select(0)
			return m, m.refreshList()
		case key.Matches(msg, keys.Toggle):
			return m, m.toggleSelected()
		case key.Matches(msg, keys.ClearFacet):
			return m, m.interacted(m.session.ClearFacet(m.facet()))
		case key.Matches(msg, keys.BrushLoDown):
			return m, m.moveBrush(-0.05, 0)
		case key.Matches(msg, keys.BrushLoUp):
			return m, m.moveBrush(0.05, 0)
		case key.Matches(msg, keys.BrushHiDown):
			return m, m.moveBrush(0, -0.05)
		case key.Matches(msg, keys.BrushHiUp):
			return m, m.moveBrush(0, 0.05)
		case key.Matches(msg, keys.ClearBrush):
			m.brushOn = false
			m.session.Brush(nil)
			return m, m.interacted(nil)
		case key.Matches(msg, keys.Reset):
			m.brushOn = false
			m.brushLo, m.brushHi = 0, 1
			m.session.Reset()
			return m, m.interacted(nil)
		case key.Matches(msg, keys.NextPage):
			m.session.NextPage()
			m.refreshTable()
			return m, nil
		case key.Matches(msg, keys.PrevPage):
			m.session.PrevPage()
			m.refreshTable()
			return m, nil
		case key.Matches(msg, keys.Pause):
			m.togglePause()
			return m, nil
		case key.Matches(msg, keys.Scale):
			m.logScale = !m.logScale
			m.updatePlot()
			return m, nil
		}
	}
	var cmd tui.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	m.leftPaneWidth, m.rightPaneWidth = computePaneWidths(m.width, m.cfg.ViewSplit)

	statsLines := 0
	if m.cfg.StatsEnabled {
		// title + 4 metric lines
		statsLines = 5
	}
	const helpLines, pageLines = 1, 1
	tableHeight := max(3, min(m.cfg.PageSize+1, m.height/3))
	available := max(1, m.height-statsLines-helpLines-pageLines-tableHeight-2)

	leftW := max(1, m.leftPaneWidth)
	rightW := max(1, m.rightPaneWidth)

	// facet header takes one line
	m.list.SetSize(leftW, max(1, available-1))
	m.listStyle = styles.NewStyle().Width(leftW).Height(available)

	m.table.SetColumns(tableColumns(m.width - 2))
	m.table.SetWidth(max(1, m.width-2))
	m.table.SetHeight(tableHeight)

	// Right side stacks the metric table, the plot with its label line and
	// the heat map, inside a border.
	metricLines := len(m.session.MetricTable()) + 2
	plotHeight := max(1, available-metricLines-heatMapLines-3)
	m.resizePlot(max(1, rightW-2), plotHeight)
}

func (m *model) resizePlot(w int, h int) {
	m.plotWidth, m.plotHeight = w, h
	p := plot.NewCanvas(w, h)
	p.NumDataPoints = m.plot.NumDataPoints
	p.ShowAxis = m.plot.ShowAxis
	p.LineColors = m.plot.LineColors
	m.plot = &p
	m.plot.Fill(m.plotData)
}

func (m *model) toggleSelected() tui.Cmd {
	selected, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return nil
	}
	return m.interacted(m.session.Toggle(m.facet(), selected.Key))
}

func (m *model) moveBrush(dLo, dHi float64) tui.Cmd {
	lo := clamp01(m.brushLo + dLo)
	hi := clamp01(m.brushHi + dHi)
	if lo >= hi {
		return nil
	}
	m.brushOn = true
	m.brushLo, m.brushHi = lo, hi
	m.session.Brush([]confidence.Spec{confidence.Between(lo, hi)})
	m.logger.Debug("brush moved", "min", lo, "max", hi)
	return m.interacted(nil)
}

func clamp01(v float64) float64 {
	// two decimals, like the histogram bins
	v = float64(int(v*100+0.5)) / 100
	return min(1, max(0, v))
}

// interacted refreshes every derived widget after a session interaction.
func (m *model) interacted(err error) tui.Cmd {
	if err != nil {
		m.err = err
		m.logger.Warn("interaction failed", "error", err)
		return nil
	}
	m.err = nil
	m.ranker.Invalidate()
	cmd := m.refreshList()
	m.refreshTable()
	m.updatePlot()
	return cmd
}

func (m *model) togglePause() {
	m.paused = !m.paused
	if m.paused {
		m.frozen = m.stats.snapshot()
	}
}

func (m *model) refreshList() tui.Cmd {
	values, err := m.session.Facet(m.facet())
	if err != nil {
		m.err = err
		return nil
	}
	start := time.Now()
	items, didFull := m.ranker.Refresh(start, m.facet(), m.list.Height(), values)
	m.stats.observeRank(time.Since(start), didFull)

	byID := make(map[string]dashboard.FacetValue, len(values))
	for _, v := range values {
		byID[itemID(v.Key)] = v
	}

	width := len(fmt.Sprint(len(items)))
	rankFormat := "#%-" + fmt.Sprint(width) + "d"
	pad := fmt.Sprintf("%*s", width+1, "")
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		v := byID[item.Item]
		listItems[i] = listItem{
			TitlePrefix:       fmt.Sprintf(rankFormat, i+1),
			DescriptionPrefix: pad,
			Key:               v.Key,
			Selected:          v.Selected,
			Item:              item,
		}
	}
	return m.list.SetItems(listItems)
}

func (m *model) refreshTable() {
	page := m.session.Page()
	rows := make([]table.Row, len(page.Rows))
	for i, r := range page.Rows {
		conf := ""
		if r.HasConfidence {
			conf = fmt.Sprintf("%.2f", r.Confidence)
		}
		rows[i] = table.Row{r.Matcher, r.TestCase, r.URILeft, r.Relation, r.URIRight, conf, string(r.Outcome)}
	}
	m.table.SetRows(rows)
}

func (m *model) updatePlot() {
	for _, series := range m.plotData {
		clear(series)
	}
	for _, bin := range m.session.ConfidenceHistogram() {
		i := min(plotPoints-1, max(0, int(bin.Confidence*100+0.5)))
		switch bin.Outcome {
		case record.TruePositive:
			m.plotData[1][i] += float64(bin.Count)
		case record.FalsePositive:
			m.plotData[0][i] += float64(bin.Count)
		}
	}
	if m.logScale {
		for _, series := range m.plotData {
			for i, v := range series {
				series[i] = logCount(v)
			}
		}
	}

	tp, fp := plot.Red, plot.DimGray
	if !styles.DefaultRenderer().HasDarkBackground() {
		tp, fp = plot.Black, plot.LightGray
	}
	m.plot.LineColors = []plot.Color{fp, tp}
	m.plot.Fill(m.plotData)
}

func computePaneWidths(totalWidth int, splitPercent int) (left, right int) {
	if totalWidth <= 1 {
		return 1, 1
	}
	left = min(totalWidth-1, max(1, totalWidth*splitPercent/100))
	right = totalWidth - left

	// Keep panes readable when the terminal is wide enough.
	const minPane = 18
	if totalWidth >= minPane*2 {
		if left < minPane {
			left = minPane
			right = totalWidth - left
		}
		if right < minPane {
			right = minPane
			left = totalWidth - right
		}
	}
	return max(1, left), max(1, right)
}

type listItem struct {
	TitlePrefix       string
	DescriptionPrefix string
	Key               crossfilter.Key
	Selected          bool
	heap.Item
}

func (i listItem) Title() string {
	mark := " "
	if i.Selected {
		mark = "●"
	}
	return fmt.Sprintf("%s %s %s", i.TitlePrefix, mark, displayName(i.Key.String()))
}

func (i listItem) Description() string { return fmt.Sprintf("%s %d", i.DescriptionPrefix, i.Count) }
func (i listItem) FilterValue() string { return i.Key.String() }

func displayName(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.NextFacet, k.Toggle, k.BrushLoUp, k.BrushHiDown, k.NextPage, k.Reset}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Pause, k.Scale},
		{k.Up, k.Down, k.NextFacet, k.PrevFacet, k.Toggle, k.ClearFacet},
		{k.BrushLoDown, k.BrushLoUp, k.BrushHiDown, k.BrushHiUp, k.ClearBrush},
		{k.NextPage, k.PrevPage, k.Reset},
	}
}

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextFacet   key.Binding
	PrevFacet   key.Binding
	Toggle      key.Binding
	ClearFacet  key.Binding
	BrushLoDown key.Binding
	BrushLoUp   key.Binding
	BrushHiDown key.Binding
	BrushHiUp   key.Binding
	ClearBrush  key.Binding
	Reset       key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Scale       key.Binding
	Pause       key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	NextFacet: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next facet"),
	),
	PrevFacet: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev facet"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter/space", "toggle"),
	),
	ClearFacet: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear facet"),
	),
	BrushLoDown: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "min -"),
	),
	BrushLoUp: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "min +"),
	),
	BrushHiDown: key.NewBinding(
		key.WithKeys("{"),
		key.WithHelp("{", "max -"),
	),
	BrushHiUp: key.NewBinding(
		key.WithKeys("}"),
		key.WithHelp("}", "max +"),
	),
	ClearBrush: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "clear brush"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("N"),
		key.WithHelp("N", "prev page"),
	),
	Scale: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "log/lin"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause stats"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
