package booking

import (
	"strings"
	"time"

	"github.com/NeighborShare/service-booking/internal/apperr"
)

// FilterState is a named temporal/lifecycle category used to classify
// bookings for listing. It is a closed set, parsed once at the boundary.
type FilterState string

const (
	FilterAll      FilterState = "ALL"
	FilterCurrent  FilterState = "CURRENT"
	FilterPast     FilterState = "PAST"
	FilterFuture   FilterState = "FUTURE"
	FilterWaiting  FilterState = "WAITING"
	FilterRejected FilterState = "REJECTED"
	FilterCanceled FilterState = "CANCELED"
)

// ParseFilterState converts a query string into a FilterState,
// case-insensitively. Unknown values fail with a validation error naming
// the offending input.
func ParseFilterState(s string) (FilterState, error) {
	state := FilterState(strings.ToUpper(s))
	switch state {
	case FilterAll, FilterCurrent, FilterPast, FilterFuture,
		FilterWaiting, FilterRejected, FilterCanceled:
		return state, nil
	}
	return "", apperr.NewValidationError("unknown state: " + s)
}

// Matches reports whether the booking falls into this category relative to now.
// CURRENT, PAST and FUTURE are status-independent interval classifications;
// WAITING, REJECTED and CANCELED match the status exactly.
func (f FilterState) Matches(b *Booking, now time.Time) bool {
	switch f {
	case FilterAll:
		return true
	case FilterCurrent:
		return b.Interval().Start.Before(now) && b.Interval().End.After(now)
	case FilterPast:
		return b.Interval().End.Before(now)
	case FilterFuture:
		return b.Interval().Start.After(now)
	case FilterWaiting:
		return b.Status() == StatusWaiting
	case FilterRejected:
		return b.Status() == StatusRejected
	case FilterCanceled:
		return b.Status() == StatusCanceled
	}
	return false
}

// Filter returns the bookings matching the given state relative to now,
// preserving the input ordering.
func Filter(bookings []*Booking, state FilterState, now time.Time) []*Booking {
	if state == FilterAll {
		return bookings
	}
	filtered := make([]*Booking, 0, len(bookings))
	for _, b := range bookings {
		if state.Matches(b, now) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
