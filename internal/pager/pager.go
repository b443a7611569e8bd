// Package pager keeps a fixed-size window over the currently filtered
// records. The total is read from the index on every call, so the window
// follows filter changes once Sync is called.
package pager

// Sizer reports how many records pass the current filters.
type Sizer interface {
	FilteredSize() int
}

type Pager struct {
	source Sizer
	size   int
	offset int
}

// New returns a pager at offset 0. A non-positive page size is treated as 1.
func New(source Sizer, pageSize int) *Pager {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Pager{source: source, size: pageSize}
}

func (p *Pager) PageSize() int { return p.size }

func (p *Pager) Offset() int { return p.offset }

func (p *Pager) total() int { return p.source.FilteredSize() }

// clamp pins offset to [0, start of the last page].
func (p *Pager) clamp() {
	last := (p.total() - 1) / p.size * p.size
	if p.offset > last {
		p.offset = last
	}
	if p.offset < 0 {
		p.offset = 0
	}
}

func (p *Pager) Advance() {
	p.offset += p.size
	p.clamp()
}

func (p *Pager) Retreat() {
	p.offset -= p.size
	p.clamp()
}

// Sync re-clamps the offset after the filtered total changed.
func (p *Pager) Sync() { p.clamp() }

// Window is the end-exclusive range of filtered positions on the page.
func (p *Pager) Window() (begin, end int) {
	return p.offset, min(p.offset+p.size, p.total())
}

// State carries the labels and button states of the pagination widget.
type State struct {
	Begin, End, Total int
	RetreatEnabled    bool
	AdvanceEnabled    bool
}

func (p *Pager) State() State {
	begin, end := p.Window()
	total := p.total()
	label := begin
	if end > begin {
		label = begin + 1
	}
	return State{
		Begin:          label,
		End:            end,
		Total:          total,
		RetreatEnabled: p.offset-p.size >= 0,
		AdvanceEnabled: p.offset+p.size < total,
	}
}
