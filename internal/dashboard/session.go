// Package dashboard wires the filter index, the per-panel groups and the
// pager into one interactive session over a loaded record set.
//
// A Session is not safe for concurrent use. Every interaction runs to
// completion, including all group updates and the pager re-clamp, before
// it returns, so views read afterwards are consistent with it.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/keilerkonzept/matchdash/internal/confidence"
	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/heatmap"
	"github.com/keilerkonzept/matchdash/internal/metrics"
	"github.com/keilerkonzept/matchdash/internal/pager"
	"github.com/keilerkonzept/matchdash/internal/record"
)

var ErrUnknownFacet = errors.New("unknown facet")

// Event describes one finished interaction.
type Event struct {
	Session  string
	Kind     string
	Facet    Facet
	Elapsed  time.Duration
	Filtered int
	Total    int
	// Dispatched is the number of reducer calls the interaction caused.
	Dispatched uint64
}

type Observer interface {
	Observe(Event)
}

type Options struct {
	PageSize int
	Beta     float64
	Logger   *slog.Logger
	Observer Observer
}

const DefaultPageSize = 30

type facetState struct {
	dim      *crossfilter.Dimension
	count    *crossfilter.Group[int]
	selected []crossfilter.Key
}

type Session struct {
	id       string
	beta     float64
	logger   *slog.Logger
	observer Observer

	index  *crossfilter.Index
	facets map[Facet]*facetState

	confDim   *crossfilter.Dimension
	confCount *crossfilter.Group[int]
	brush     []confidence.Spec

	// selection counts outcomes per test case on a dimension that is never
	// filtered, so it sees every active filter.
	selection       *crossfilter.Group[metrics.OutcomeCounter]
	perTestCaseBins *crossfilter.EmptyBinFilter[record.Outcome]
	perMatcherBins  *crossfilter.EmptyBinFilter[record.Outcome]
	metricTable     *crossfilter.Group[metrics.CaseOutcomes]
	heat            *crossfilter.Group[int]
	boxes           *crossfilter.Group[[]float64]

	table *crossfilter.Dimension
	pager *pager.Pager
}

// New indexes records and registers one dimension per panel.
func New(records []record.Record, opts Options) (*Session, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Beta <= 0 {
		opts.Beta = metrics.DefaultBeta
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		id:       uuid.NewString(),
		beta:     opts.Beta,
		observer: opts.Observer,
		index:    crossfilter.New(records),
		facets:   make(map[Facet]*facetState, len(facetOrder)),
	}
	s.logger = opts.Logger.With("component", "dashboard", "session", s.id)

	for _, f := range facetOrder {
		dim, err := s.index.MultiDimension(string(f), facetKeys[f])
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", f, err)
		}
		s.facets[f] = &facetState{dim: dim, count: crossfilter.NewGroup(dim, crossfilter.Count())}
	}
	byOutcome := crossfilter.CountBy(record.Record.OutcomeOf)
	s.perTestCaseBins = crossfilter.RemoveEmptyBins[record.Outcome](
		crossfilter.NewGroup(s.facets[FacetTestCase].dim, byOutcome))
	s.perMatcherBins = crossfilter.RemoveEmptyBins[record.Outcome](
		crossfilter.NewGroup(s.facets[FacetMatcher].dim, byOutcome))

	confDim, err := s.index.Dimension("confidence", confidence.BinKey)
	if err != nil {
		return nil, err
	}
	s.confDim = confDim
	s.confCount = crossfilter.NewGroup(s.confDim, crossfilter.Count())

	selDim, err := s.index.Dimension("selection", func(r record.Record) crossfilter.Key { return crossfilter.K(r.TestCase) })
	if err != nil {
		return nil, err
	}
	s.selection = crossfilter.NewGroup(selDim, byOutcome)

	metricDim, err := s.index.Dimension("metric table", byMatcher)
	if err != nil {
		return nil, err
	}
	s.metricTable = crossfilter.NewGroup(metricDim, crossfilter.CountByPair(
		func(r record.Record) string { return r.TestCase },
		record.Record.OutcomeOf,
	))

	heatDim, err := s.index.Dimension("heat map", heatmap.Key)
	if err != nil {
		return nil, err
	}
	s.heat = crossfilter.NewGroup(heatDim, crossfilter.Count())

	boxDim, err := s.index.Dimension("confidence boxes", byMatcher)
	if err != nil {
		return nil, err
	}
	s.boxes = crossfilter.NewGroup(boxDim, crossfilter.SortedConfidence())

	if s.table, err = s.index.Dimension("data table", byMatcher); err != nil {
		return nil, err
	}
	s.pager = pager.New(s.index, opts.PageSize)

	s.logger.Info("session created", "records", s.index.Size(), "page_size", opts.PageSize, "beta", s.beta)
	return s, nil
}

func byMatcher(r record.Record) crossfilter.Key { return crossfilter.K(r.Matcher) }

func (s *Session) ID() string { return s.id }

func (s *Session) Beta() float64 { return s.beta }

func (s *Session) interact(kind string, facet Facet, fn func()) {
	start := time.Now()
	before := s.index.Dispatched()
	fn()
	s.pager.Sync()

	ev := Event{
		Session:    s.id,
		Kind:       kind,
		Facet:      facet,
		Elapsed:    time.Since(start),
		Filtered:   s.index.FilteredSize(),
		Total:      s.index.Size(),
		Dispatched: s.index.Dispatched() - before,
	}
	s.logger.Debug("interaction",
		"kind", ev.Kind,
		"facet", ev.Facet,
		"elapsed", ev.Elapsed,
		"filtered", ev.Filtered,
		"dispatched", ev.Dispatched,
	)
	if s.observer != nil {
		s.observer.Observe(ev)
	}
}

func (s *Session) facet(f Facet) (*facetState, error) {
	fs, ok := s.facets[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFacet, f)
	}
	return fs, nil
}

func (fs *facetState) refilter() {
	if len(fs.selected) == 0 {
		fs.dim.FilterAll()
		return
	}
	if len(fs.selected) == 1 {
		fs.dim.FilterExact(fs.selected[0])
		return
	}
	alts := make([]crossfilter.Filter, len(fs.selected))
	for i, k := range fs.selected {
		alts[i] = crossfilter.Exact(k)
	}
	fs.dim.Filter(crossfilter.AnyOf(alts...))
}

// Toggle adds value to the facet's selection, or removes it if it is already
// selected. A facet keeps records matching any selected value.
func (s *Session) Toggle(f Facet, value crossfilter.Key) error {
	fs, err := s.facet(f)
	if err != nil {
		return err
	}
	s.interact("toggle", f, func() {
		if i := slices.Index(fs.selected, value); i >= 0 {
			fs.selected = slices.Delete(fs.selected, i, i+1)
		} else {
			fs.selected = append(fs.selected, value)
			slices.SortFunc(fs.selected, crossfilter.Key.Compare)
		}
		fs.refilter()
	})
	return nil
}

func (s *Session) ClearFacet(f Facet) error {
	fs, err := s.facet(f)
	if err != nil {
		return err
	}
	s.interact("clear", f, func() {
		fs.selected = nil
		fs.refilter()
	})
	return nil
}

// Selected returns a copy of the facet's selected values.
func (s *Session) Selected(f Facet) []crossfilter.Key {
	fs, ok := s.facets[f]
	if !ok {
		return nil
	}
	return slices.Clone(fs.selected)
}

// Brush replaces the confidence histogram selection.
func (s *Session) Brush(specs []confidence.Spec) {
	s.interact("brush", "", func() {
		s.brush = confidence.Apply(s.confDim, specs)
	})
}

func (s *Session) Brushed() []confidence.Spec { return slices.Clone(s.brush) }

// Reset clears every filter and selection.
func (s *Session) Reset() {
	s.interact("reset", "", func() {
		for _, fs := range s.facets {
			fs.selected = nil
		}
		s.brush = nil
		s.index.ClearAll()
	})
}

func (s *Session) NextPage() { s.interact("page", "", s.pager.Advance) }

func (s *Session) PrevPage() { s.interact("page", "", s.pager.Retreat) }
