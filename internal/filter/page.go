package filter

import "math"

// Page is the limit/page window of a list query. A zero Page (or any Limit <= 0)
// selects the whole result set.
type Page struct {
	Limit int
	Page  int
}

// Paged reports whether the window restricts the result set.
func (p Page) Paged() bool {
	return p.Limit > 0
}

// Normalize clamps Page to 1 when a limit is set.
func (p Page) Normalize() Page {
	if !p.Paged() {
		return Page{}
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// Offset is the number of records skipped before the window starts. It
// saturates at math.MaxInt instead of wrapping, so a page past the end of any
// collection stays past the end.
func (p Page) Offset() int {
	n := p.Normalize()
	if !n.Paged() {
		return 0
	}
	skipped := n.Page - 1
	if skipped > math.MaxInt/n.Limit {
		return math.MaxInt
	}
	return n.Limit * skipped
}
