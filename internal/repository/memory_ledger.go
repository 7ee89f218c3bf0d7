package repository

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// showLookup is the part of a show store the ledgers need.
type showLookup interface {
    GetByID(ctx context.Context, id uint64) (model.ShowDetail, error)
}

// showLedger holds the per-show state of the in-memory ledger.  sem is a
// one-slot channel used as the show lock so that waiting on it can be
// abandoned when the caller's context expires.  Writers of active hold sem
// and mu; AvailableSeats only takes mu for reading.
type showLedger struct {
    sem    chan struct{}
    mu     sync.RWMutex
    active map[int]uint64 // seat -> booking id of the BOOKED row
}

func (sl *showLedger) bookedCount() int {
    sl.mu.RLock()
    defer sl.mu.RUnlock()
    return len(sl.active)
}

// MemoryLedger is an in-process booking ledger with the same contract as
// BookingRepo.  Reservations of one show are serialised on that show's
// lock; different shows proceed in parallel.
type MemoryLedger struct {
    shows showLookup

    mu       sync.RWMutex
    ledgers  map[uint64]*showLedger
    bookings map[uint64]*model.Booking
    byUser   map[uint64][]uint64
    nextID   uint64

    now func() time.Time
}

// NewMemoryLedger returns an empty ledger that resolves show capacity
// through shows.
func NewMemoryLedger(shows showLookup) *MemoryLedger {
    return &MemoryLedger{
        shows:    shows,
        ledgers:  make(map[uint64]*showLedger),
        bookings: make(map[uint64]*model.Booking),
        byUser:   make(map[uint64][]uint64),
        now:      func() time.Time { return time.Now().UTC() },
    }
}

func (l *MemoryLedger) ledgerFor(showID uint64) *showLedger {
    l.mu.RLock()
    sl, ok := l.ledgers[showID]
    l.mu.RUnlock()
    if ok {
        return sl
    }
    l.mu.Lock()
    defer l.mu.Unlock()
    if sl, ok = l.ledgers[showID]; !ok {
        sl = &showLedger{sem: make(chan struct{}, 1), active: make(map[int]uint64)}
        l.ledgers[showID] = sl
    }
    return sl
}

// acquire blocks until the show lock is held or ctx is done.
func (sl *showLedger) acquire(ctx context.Context) (func(), error) {
    select {
    case sl.sem <- struct{}{}:
        return func() { <-sl.sem }, nil
    case <-ctx.Done():
        return nil, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
    }
}

// TryReserve implements the check-and-insert unit under the show lock.
func (l *MemoryLedger) TryReserve(ctx context.Context, showID uint64, seat int, userID uint64) (model.Booking, error) {
    show, err := l.shows.GetByID(ctx, showID)
    if err != nil {
        return model.Booking{}, err
    }
    sl := l.ledgerFor(showID)
    release, err := sl.acquire(ctx)
    if err != nil {
        return model.Booking{}, err
    }
    defer release()

    if _, taken := sl.active[seat]; taken {
        return model.Booking{}, ErrSeatTaken
    }
    if len(sl.active) >= show.TotalSeats {
        return model.Booking{}, ErrShowFull
    }

    l.mu.Lock()
    l.nextID++
    now := l.now()
    b := &model.Booking{
        ID:         l.nextID,
        UserID:     userID,
        ShowID:     showID,
        SeatNumber: seat,
        Status:     model.BookingStatusBooked,
        CreatedAt:  now,
        UpdatedAt:  now,
    }
    l.bookings[b.ID] = b
    l.byUser[userID] = append(l.byUser[userID], b.ID)
    l.mu.Unlock()

    sl.mu.Lock()
    sl.active[seat] = b.ID
    sl.mu.Unlock()
    return *b, nil
}

// Cancel releases an owned active booking.  The status flip and the seat
// release happen together under the show lock.
func (l *MemoryLedger) Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
    l.mu.RLock()
    b, ok := l.bookings[bookingID]
    var snapshot model.Booking
    if ok {
        snapshot = *b
    }
    l.mu.RUnlock()
    if !ok {
        return model.Booking{}, ErrBookingNotFound
    }
    if snapshot.UserID != userID {
        return model.Booking{}, ErrForbidden
    }

    sl := l.ledgerFor(snapshot.ShowID)
    release, err := sl.acquire(ctx)
    if err != nil {
        return model.Booking{}, err
    }
    defer release()

    l.mu.Lock()
    if !b.Active() {
        l.mu.Unlock()
        return model.Booking{}, ErrAlreadyCancelled
    }
    b.Status = model.BookingStatusCancelled
    b.UpdatedAt = l.now()
    out := *b
    l.mu.Unlock()

    sl.mu.Lock()
    delete(sl.active, out.SeatNumber)
    sl.mu.Unlock()
    return out, nil
}

// AvailableSeats derives the free seats from the active bookings without
// taking the show lock.
func (l *MemoryLedger) AvailableSeats(ctx context.Context, showID uint64) (int, error) {
    show, err := l.shows.GetByID(ctx, showID)
    if err != nil {
        return 0, err
    }
    n := show.TotalSeats - l.ledgerFor(showID).bookedCount()
    if n < 0 {
        n = 0
    }
    return n, nil
}

// ListByUser returns copies of the user's bookings, newest first.
func (l *MemoryLedger) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
    l.mu.RLock()
    ids := l.byUser[userID]
    out := make([]model.Booking, 0, len(ids))
    for _, id := range ids {
        out = append(out, *l.bookings[id])
    }
    l.mu.RUnlock()

    sort.SliceStable(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID > out[j].ID
    })
    return out, nil
}
