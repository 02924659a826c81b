package booking

import "time"

// Interval is a half-open time range [Start, End) over which an item is
// reserved. Intervals that only touch at an endpoint do not overlap.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the two intervals share at least one instant.
// Symmetric and total over non-degenerate intervals.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// IsZero reports whether either bound is unset.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() || i.End.IsZero()
}
