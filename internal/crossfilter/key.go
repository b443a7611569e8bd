package crossfilter

import (
	"cmp"
	"strconv"
)

// Key is a dimension value: a single value (Second empty) or a composite of
// two values. Keys order lexicographically on (First, Second).
type Key struct {
	First  string
	Second string
}

func K(v string) Key { return Key{First: v} }

func Pair(first, second string) Key { return Key{First: first, Second: second} }

func (k Key) Composite() bool { return k.Second != "" }

func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.First, o.First); c != 0 {
		return c
	}
	return cmp.Compare(k.Second, o.Second)
}

// Float parses the first component as a number.
func (k Key) Float() (float64, bool) {
	v, err := strconv.ParseFloat(k.First, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (k Key) String() string {
	if k.Second == "" {
		return k.First
	}
	return k.First + ":" + k.Second
}
