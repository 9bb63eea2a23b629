package engine

import "time"

// Window is the wall-clock interval sends are allowed in, expressed as
// local hours [Start, End). The zero value is always open, which is what
// tests and the followups-only path want.
type Window struct {
	Start int
	End   int
	Loc   *time.Location
}

// Contains reports whether t falls inside the send window.
func (w Window) Contains(t time.Time) bool {
	if w.Start == 0 && w.End == 0 {
		return true
	}
	loc := w.Loc
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	return h >= w.Start && h < w.End
}
