package booking

import "github.com/NeighborShare/service-booking/internal/apperr"

// ValidatePage checks listing pagination parameters. Callers validate before
// querying so an invalid request never reaches the store.
func ValidatePage(offset, limit int) error {
	if offset < 0 {
		return apperr.NewValidationError("pagination offset must not be negative")
	}
	if limit <= 0 {
		return apperr.NewValidationError("pagination limit must be positive")
	}
	return nil
}

// Window returns the sub-sequence [offset, offset+limit) of bookings,
// clamped to the collection bound. An offset at or beyond the end yields an
// empty slice, never an error.
//
// The window is applied in memory over the full per-user result set; an
// offset/limit pair translated to page = offset/limit at the storage layer
// would only be correct for offsets aligned to the limit, so that
// translation is deliberately not used here.
func Window(bookings []*Booking, offset, limit int) []*Booking {
	if offset >= len(bookings) {
		return []*Booking{}
	}
	end := offset + limit
	if end > len(bookings) {
		end = len(bookings)
	}
	return bookings[offset:end]
}
