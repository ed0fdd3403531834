package availability

import "time"

// Window is a half-open time interval [Start, End). Two windows that touch at
// a shared endpoint do not overlap.
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

// Overlaps applies the half-open overlap test against another window.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Clamp restricts the window to the bounds of another window. The result may
// be empty when the two do not overlap.
func (w Window) Clamp(bounds Window) Window {
	out := w
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out
}
