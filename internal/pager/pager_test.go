package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixed int

func (f *fixed) FilteredSize() int { return int(*f) }

func window(p *Pager) [2]int {
	b, e := p.Window()
	return [2]int{b, e}
}

func TestAdvanceAndRetreatClamp(t *testing.T) {
	total := fixed(65)
	p := New(&total, 30)
	assert.Equal(t, [2]int{0, 30}, window(p))

	p.Advance()
	assert.Equal(t, 30, p.Offset())
	assert.Equal(t, [2]int{30, 60}, window(p))

	p.Advance()
	assert.Equal(t, 60, p.Offset())
	assert.Equal(t, [2]int{60, 65}, window(p))

	p.Advance()
	p.Advance()
	assert.Equal(t, 60, p.Offset(), "pinned at the last page")

	p.Retreat()
	assert.Equal(t, 30, p.Offset())
	assert.Equal(t, [2]int{30, 60}, window(p))

	p.Retreat()
	p.Retreat()
	assert.Equal(t, 0, p.Offset())
}

func TestState(t *testing.T) {
	total := fixed(65)
	p := New(&total, 30)
	assert.Equal(t, State{Begin: 1, End: 30, Total: 65, AdvanceEnabled: true}, p.State())

	p.Advance()
	p.Advance()
	assert.Equal(t, State{Begin: 61, End: 65, Total: 65, RetreatEnabled: true}, p.State())
}

func TestEmptyAndExactMultiple(t *testing.T) {
	total := fixed(0)
	p := New(&total, 10)
	p.Advance()
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, State{}, p.State())

	total = 20
	p.Advance()
	p.Advance()
	assert.Equal(t, 10, p.Offset(), "no empty trailing page")
	assert.False(t, p.State().AdvanceEnabled)
}

func TestSyncAfterShrink(t *testing.T) {
	total := fixed(100)
	p := New(&total, 25)
	p.Advance()
	p.Advance()
	p.Advance()
	assert.Equal(t, 75, p.Offset())

	total = 30
	p.Sync()
	assert.Equal(t, 25, p.Offset())
	assert.Equal(t, [2]int{25, 30}, window(p))

	p.Sync()
	assert.Equal(t, 25, p.Offset())
}

func TestNonPositivePageSize(t *testing.T) {
	total := fixed(3)
	p := New(&total, 0)
	assert.Equal(t, 1, p.PageSize())
}
