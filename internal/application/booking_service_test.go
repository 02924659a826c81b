package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NeighborShare/service-booking/internal/apperr"
	bookingDomain "github.com/NeighborShare/service-booking/internal/domain/booking"
	itemDomain "github.com/NeighborShare/service-booking/internal/domain/item"
	userDomain "github.com/NeighborShare/service-booking/internal/domain/user"
	"github.com/NeighborShare/service-booking/internal/events"
)

// --- In-memory fakes ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*userDomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uuid.UUID]*userDomain.User{}}
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NewNotFoundError("User", id.String())
	}
	return u, nil
}

func (r *memUserRepo) FindAll(_ context.Context) ([]*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*userDomain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email() == email && (excludeID == nil || u.ID() != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) Save(_ context.Context, u *userDomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID()] = u
	return nil
}

func (r *memUserRepo) Update(_ context.Context, u *userDomain.User) error {
	return r.Save(context.Background(), u)
}

func (r *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type memItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*itemDomain.Item
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: map[uuid.UUID]*itemDomain.Item{}}
}

func (r *memItemRepo) FindByID(_ context.Context, id uuid.UUID) (*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, apperr.NewNotFoundError("Item", id.String())
	}
	return it, nil
}

func (r *memItemRepo) FindByOwnerID(_ context.Context, ownerID uuid.UUID) ([]*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*itemDomain.Item
	for _, it := range r.items {
		if it.OwnerID() == ownerID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memItemRepo) Search(_ context.Context, text string) ([]*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(text)
	var out []*itemDomain.Item
	for _, it := range r.items {
		if !it.Available() {
			continue
		}
		if strings.Contains(strings.ToLower(it.Name()), needle) ||
			strings.Contains(strings.ToLower(it.Description()), needle) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memItemRepo) Save(_ context.Context, it *itemDomain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID()] = it
	return nil
}

func (r *memItemRepo) Update(_ context.Context, it *itemDomain.Item) error {
	return r.Save(context.Background(), it)
}

func (r *memItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// memBookingRepo mimics the store contract, including the per-item
// serialization of the conditional approve: the whole check-and-write runs
// under one lock, like the SQL transaction it stands in for.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	items    *memItemRepo
}

func newMemBookingRepo(items *memItemRepo) *memBookingRepo {
	return &memBookingRepo{bookings: map[uuid.UUID]*bookingDomain.Booking{}, items: items}
}

func copyBooking(b *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.Reconstruct(
		b.ID(), b.Interval(), b.ItemID(), b.BookerID(), b.Status(), b.CreatedAt(), b.UpdatedAt(),
	)
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperr.NewNotFoundError("Booking", id.String())
	}
	return copyBooking(b), nil
}

func (r *memBookingRepo) FindByBookerID(_ context.Context, bookerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		if b.BookerID() == bookerID {
			out = append(out, copyBooking(b))
		}
	}
	sortByStartDesc(out)
	return out, nil
}

func (r *memBookingRepo) FindByItemOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*bookingDomain.Booking, error) {
	owned, err := r.items.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ownedIDs := map[uuid.UUID]bool{}
	for _, it := range owned {
		ownedIDs[it.ID()] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		if ownedIDs[b.ItemID()] {
			out = append(out, copyBooking(b))
		}
	}
	sortByStartDesc(out)
	return out, nil
}

func (r *memBookingRepo) FindApprovedByItemID(_ context.Context, itemID uuid.UUID) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		if b.ItemID() == itemID && b.Status() == bookingDomain.StatusApproved {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID()] = copyBooking(b)
	return nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID()]
	if !ok || stored.Status() != bookingDomain.StatusWaiting {
		return apperr.NewConflictError("booking was decided by another request")
	}
	r.bookings[b.ID()] = copyBooking(b)
	return nil
}

func (r *memBookingRepo) ApproveIfNoOverlap(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID()]
	if !ok || stored.Status() != bookingDomain.StatusWaiting {
		return apperr.NewConflictError("booking was decided by another request")
	}
	for _, other := range r.bookings {
		if other.ItemID() == b.ItemID() &&
			other.Status() == bookingDomain.StatusApproved &&
			other.Interval().Overlaps(b.Interval()) {
			return apperr.NewValidationError("item is already booked for the requested period")
		}
	}

	approved := copyBooking(stored)
	_ = approved.Decide(true)
	r.bookings[b.ID()] = approved
	return nil
}

func sortByStartDesc(bookings []*bookingDomain.Booking) {
	for i := 1; i < len(bookings); i++ {
		for j := i; j > 0 && bookings[j].Interval().Start.After(bookings[j-1].Interval().Start); j-- {
			bookings[j], bookings[j-1] = bookings[j-1], bookings[j]
		}
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ events.BookingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// --- Fixtures ---

type fixture struct {
	svc       *BookingService
	bookings  *memBookingRepo
	items     *memItemRepo
	users     *memUserRepo
	publisher *recordingPublisher

	owner  *userDomain.User
	booker *userDomain.User
	item   *itemDomain.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := newMemUserRepo()
	items := newMemItemRepo()
	bookings := newMemBookingRepo(items)
	publisher := &recordingPublisher{}

	owner, err := userDomain.NewUser("Olga", "olga@example.com")
	require.NoError(t, err)
	booker, err := userDomain.NewUser("Boris", "boris@example.com")
	require.NoError(t, err)
	require.NoError(t, users.Save(context.Background(), owner))
	require.NoError(t, users.Save(context.Background(), booker))

	it, err := itemDomain.NewItem(owner.ID(), "cordless drill", "18V drill with two batteries", true)
	require.NoError(t, err)
	require.NoError(t, items.Save(context.Background(), it))

	return &fixture{
		svc:       NewBookingService(bookings, items, users, publisher, zap.NewNop()),
		bookings:  bookings,
		items:     items,
		users:     users,
		publisher: publisher,
		owner:     owner,
		booker:    booker,
		item:      it,
	}
}

func (f *fixture) createRequest(startOffset, endOffset time.Duration) CreateBookingRequest {
	now := time.Now().UTC()
	return CreateBookingRequest{
		ItemID: f.item.ID(),
		Start:  now.Add(startOffset),
		End:    now.Add(endOffset),
	}
}

// --- Tests ---

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.CreateBooking(context.Background(), f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "WAITING", dto.Status)
	assert.Equal(t, f.item.ID(), dto.Item.ID)
	assert.Equal(t, "cordless drill", dto.Item.Name)
	assert.Equal(t, f.booker.ID(), dto.Booker.ID)
	assert.Equal(t, "Boris", dto.Booker.Name)
	assert.Equal(t, []string{events.BookingRequested}, f.publisher.types())
}

func TestCreateBooking_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), uuid.New(), f.createRequest(time.Hour, 2*time.Hour))
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateBooking_UnknownItem(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest(time.Hour, 2*time.Hour)
	req.ItemID = uuid.New()
	_, err := f.svc.CreateBooking(context.Background(), f.booker.ID(), req)
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateBooking_OwnItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), f.owner.ID(), f.createRequest(time.Hour, 2*time.Hour))
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "own item")
}

func TestCreateBooking_UnavailableItem(t *testing.T) {
	f := newFixture(t)

	unavailable := false
	f.item.Update(nil, nil, &unavailable)
	require.NoError(t, f.items.Update(context.Background(), f.item))

	_, err := f.svc.CreateBooking(context.Background(), f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "not available")
}

func TestCreateBooking_ApprovedOverlapBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(24*time.Hour, 48*time.Hour))
	require.NoError(t, err)
	_, err = f.svc.SetApproval(ctx, f.owner.ID(), first.ID, true)
	require.NoError(t, err)

	// overlapping request is rejected
	_, err = f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(36*time.Hour, 72*time.Hour))
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "already booked")

	// a request that only touches the approved end is fine
	_, err = f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(48*time.Hour, 72*time.Hour))
	assert.NoError(t, err)
}

func TestCreateBooking_WaitingDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 3*time.Hour))
	require.NoError(t, err)

	// same window, still WAITING: creation must succeed
	_, err = f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 3*time.Hour))
	assert.NoError(t, err)
}

func TestSetApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	dto, err := f.svc.SetApproval(ctx, f.owner.ID(), created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", dto.Status)
	assert.Contains(t, f.publisher.types(), events.BookingApproved)
}

func TestSetApproval_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	dto, err := f.svc.SetApproval(ctx, f.owner.ID(), created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", dto.Status)
}

func TestSetApproval_NotOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	_, err = f.svc.SetApproval(ctx, f.booker.ID(), created.ID, true)
	var unauthorized *apperr.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestSetApproval_AlreadyDecided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)
	_, err = f.svc.SetApproval(ctx, f.owner.ID(), created.ID, false)
	require.NoError(t, err)

	_, err = f.svc.SetApproval(ctx, f.owner.ID(), created.ID, true)
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "already been decided")
}

func TestSetApproval_UnknownBooking(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetApproval(context.Background(), f.owner.ID(), uuid.New(), true)
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

// Approving the second of two overlapping WAITING bookings must fail once the
// first is APPROVED: only the first approval wins.
func TestSetApproval_SecondOverlappingApprovalFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 3*time.Hour))
	require.NoError(t, err)
	second, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(2*time.Hour, 4*time.Hour))
	require.NoError(t, err)

	_, err = f.svc.SetApproval(ctx, f.owner.ID(), first.ID, true)
	require.NoError(t, err)

	_, err = f.svc.SetApproval(ctx, f.owner.ID(), second.ID, true)
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "already booked")
}

// Two concurrent approvals of overlapping WAITING bookings: exactly one may
// ever reach APPROVED.
func TestSetApproval_ConcurrentOverlappingApprovals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 3*time.Hour))
	require.NoError(t, err)
	second, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(2*time.Hour, 4*time.Hour))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, results[i] = f.svc.SetApproval(ctx, f.owner.ID(), id, true)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two overlapping approvals may win")

	approved, err := f.bookings.FindApprovedByItemID(ctx, f.item.ID())
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	dto, err := f.svc.Cancel(ctx, f.booker.ID(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", dto.Status)
	assert.Contains(t, f.publisher.types(), events.BookingCanceled)
}

func TestCancel_NotBooker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.owner.ID(), created.ID)
	var unauthorized *apperr.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestCancel_AlreadyDecided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)
	_, err = f.svc.SetApproval(ctx, f.owner.ID(), created.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.booker.ID(), created.ID)
	var validationErr *apperr.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGetBooking_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	_, err = f.svc.GetBooking(ctx, f.booker.ID(), created.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetBooking(ctx, f.owner.ID(), created.ID)
	assert.NoError(t, err)

	stranger, err := userDomain.NewUser("Sasha", "sasha@example.com")
	require.NoError(t, err)
	require.NoError(t, f.users.Save(ctx, stranger))

	_, err = f.svc.GetBooking(ctx, stranger.ID(), created.ID)
	var unauthorized *apperr.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestGetUserBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)
	second, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(3*time.Hour, 4*time.Hour))
	require.NoError(t, err)
	_, err = f.svc.SetApproval(ctx, f.owner.ID(), first.ID, false)
	require.NoError(t, err)

	all, err := f.svc.GetUserBookings(ctx, f.booker.ID(), bookingDomain.FilterAll, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// newest start first
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	rejected, err := f.svc.GetUserBookings(ctx, f.booker.ID(), bookingDomain.FilterRejected, 0, 10)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, first.ID, rejected[0].ID)

	paged, err := f.svc.GetUserBookings(ctx, f.booker.ID(), bookingDomain.FilterAll, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)
}

func TestGetUserBookings_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetUserBookings(ctx, f.booker.ID(), bookingDomain.FilterAll, -1, 10)
	var validationErr *apperr.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.svc.GetUserBookings(ctx, f.booker.ID(), bookingDomain.FilterAll, 0, 0)
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.svc.GetUserBookings(ctx, uuid.New(), bookingDomain.FilterAll, 0, 10)
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetOwnerBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBooking(ctx, f.booker.ID(), f.createRequest(time.Hour, 2*time.Hour))
	require.NoError(t, err)

	owned, err := f.svc.GetOwnerBookings(ctx, f.owner.ID(), bookingDomain.FilterAll, 0, 10)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, created.ID, owned[0].ID)
	assert.Equal(t, "Boris", owned[0].Booker.Name)

	// the booker owns no items, so the owner listing is empty for them
	none, err := f.svc.GetOwnerBookings(ctx, f.booker.ID(), bookingDomain.FilterAll, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
