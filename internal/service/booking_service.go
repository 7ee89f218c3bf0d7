// Package service holds the reservation service: the operations users
// call to book, cancel and list seats.  It validates requests against the
// catalog, runs the ledger under a bounded context and projects ledger
// rows into display records.
package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
    "github.com/iliyamo/cinema-seat-booking/internal/queue"
    "github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// Ledger is the booking store.  repository.BookingRepo and
// repository.MemoryLedger both satisfy it.
type Ledger interface {
    TryReserve(ctx context.Context, showID uint64, seat int, userID uint64) (model.Booking, error)
    Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
    AvailableSeats(ctx context.Context, showID uint64) (int, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// ShowCatalog resolves shows.
type ShowCatalog interface {
    GetByID(ctx context.Context, id uint64) (model.ShowDetail, error)
}

// UserDirectory resolves usernames for booking projections.
type UserDirectory interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// EventPublisher receives booking events after they are committed.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.BookingEvent) error
}

// DefaultLedgerTimeout bounds a single ledger call when none is configured.
const DefaultLedgerTimeout = 5 * time.Second

const publishTimeout = 2 * time.Second

// BookingService implements BookSeat, CancelBooking, ListMyBookings and
// AvailableSeats.  It is safe for concurrent use; all coordination happens
// inside the ledger.
type BookingService struct {
    ledger  Ledger
    shows   ShowCatalog
    users   UserDirectory
    events  EventPublisher
    timeout time.Duration
    log     *zap.Logger
    now     func() time.Time
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithEvents publishes booking.confirmed and booking.cancelled after each
// successful operation.
func WithEvents(p EventPublisher) Option { return func(s *BookingService) { s.events = p } }

// WithLedgerTimeout sets the deadline applied to every ledger call.
func WithLedgerTimeout(d time.Duration) Option {
    return func(s *BookingService) {
        if d > 0 {
            s.timeout = d
        }
    }
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l *zap.Logger) Option { return func(s *BookingService) { s.log = l } }

// NewBookingService wires a service to its stores.  users may be nil, in
// which case projections omit the username.
func NewBookingService(ledger Ledger, shows ShowCatalog, users UserDirectory, opts ...Option) *BookingService {
    s := &BookingService{
        ledger:  ledger,
        shows:   shows,
        users:   users,
        timeout: DefaultLedgerTimeout,
        log:     zap.NewNop(),
        now:     func() time.Time { return time.Now().UTC() },
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

// BookSeat reserves seat on show for userID.
//
// Checks run in this order: seat below 1, unknown show, seat above the
// show's capacity, then the ledger's seat-taken and show-full checks.
func (s *BookingService) BookSeat(ctx context.Context, showID uint64, seat int, userID uint64) (model.BookingDetail, error) {
    if seat < 1 {
        return model.BookingDetail{}, &InvalidSeatError{}
    }
    show, err := s.shows.GetByID(ctx, showID)
    if err != nil {
        return model.BookingDetail{}, s.translate("book seat: show lookup", err)
    }
    if seat > show.TotalSeats {
        return model.BookingDetail{}, &InvalidSeatError{TotalSeats: show.TotalSeats}
    }

    lctx, cancel := context.WithTimeout(ctx, s.timeout)
    b, err := s.ledger.TryReserve(lctx, showID, seat, userID)
    cancel()
    if err != nil {
        return model.BookingDetail{}, s.translate("book seat", err)
    }

    detail := s.project(ctx, b, show, nil)
    s.publish(ctx, queue.QueueBookingConfirmed, b, show)
    return detail, nil
}

// CancelBooking releases a booking owned by userID and returns the
// cancelled record.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
    lctx, cancel := context.WithTimeout(ctx, s.timeout)
    b, err := s.ledger.Cancel(lctx, bookingID, userID)
    cancel()
    if err != nil {
        return model.Booking{}, s.translate("cancel booking", err)
    }
    if s.events != nil {
        show, err := s.shows.GetByID(ctx, b.ShowID)
        if err != nil {
            s.log.Warn("cancel booking: show lookup for event failed", zap.Uint64("show_id", b.ShowID), zap.Error(err))
        }
        s.publish(ctx, queue.QueueBookingCancelled, b, show)
    }
    return b, nil
}

// ListMyBookings returns every booking of userID, newest first, in any
// status.
func (s *BookingService) ListMyBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
    bookings, err := s.ledger.ListByUser(ctx, userID)
    if err != nil {
        return nil, s.translate("list bookings", err)
    }
    var user *model.User
    if s.users != nil && len(bookings) > 0 {
        if u, err := s.users.GetByID(ctx, userID); err == nil {
            user = &u
        }
    }
    shows := make(map[uint64]model.ShowDetail)
    out := make([]model.BookingDetail, 0, len(bookings))
    for _, b := range bookings {
        show, ok := shows[b.ShowID]
        if !ok {
            show, err = s.shows.GetByID(ctx, b.ShowID)
            if err != nil {
                return nil, s.translate("list bookings: show lookup", err)
            }
            shows[b.ShowID] = show
        }
        out = append(out, s.project(ctx, b, show, user))
    }
    return out, nil
}

// AvailableSeats returns the show's free seat count.
func (s *BookingService) AvailableSeats(ctx context.Context, showID uint64) (int, error) {
    n, err := s.ledger.AvailableSeats(ctx, showID)
    if err != nil {
        return 0, s.translate("available seats", err)
    }
    return n, nil
}

func (s *BookingService) project(ctx context.Context, b model.Booking, show model.ShowDetail, user *model.User) model.BookingDetail {
    d := model.BookingDetail{
        ID:         b.ID,
        UserID:     b.UserID,
        ShowID:     b.ShowID,
        MovieTitle: show.MovieTitle,
        ScreenName: show.ScreenName,
        ShowTime:   show.DateTime,
        SeatNumber: b.SeatNumber,
        Status:     b.Status,
        CreatedAt:  b.CreatedAt,
        UpdatedAt:  b.UpdatedAt,
    }
    if user == nil && s.users != nil {
        if u, err := s.users.GetByID(ctx, b.UserID); err == nil {
            user = &u
        }
    }
    if user != nil {
        d.UserUsername = user.Username
    }
    return d
}

func (s *BookingService) publish(ctx context.Context, kind string, b model.Booking, show model.ShowDetail) {
    if s.events == nil {
        return
    }
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
    defer cancel()
    ev := queue.BookingEvent{
        Type:       kind,
        BookingID:  b.ID,
        UserID:     b.UserID,
        ShowID:     b.ShowID,
        SeatNumber: b.SeatNumber,
        MovieTitle: show.MovieTitle,
        ScreenName: show.ScreenName,
        ShowTime:   show.DateTime,
        OccurredAt: s.now(),
    }
    if err := s.events.Publish(pctx, ev); err != nil {
        s.log.Warn("booking event not published", zap.String("type", kind), zap.Uint64("booking_id", b.ID), zap.Error(err))
    }
}

// expected lists the failures callers are meant to see as-is.
var expected = []error{
    repository.ErrShowNotFound,
    repository.ErrBookingNotFound,
    repository.ErrSeatTaken,
    repository.ErrShowFull,
    repository.ErrForbidden,
    repository.ErrAlreadyCancelled,
    repository.ErrTransient,
    ErrInvalidSeat,
}

// translate passes expected failures through, turns an expired deadline or
// a caller that went away into ErrTransient and wraps anything else with op
// after logging it.
func (s *BookingService) translate(op string, err error) error {
    for _, e := range expected {
        if errors.Is(err, e) {
            return err
        }
    }
    if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
        s.log.Debug(op+": context ended", zap.Error(err))
        return fmt.Errorf("%w: %v", repository.ErrTransient, err)
    }
    s.log.Error(op, zap.Error(err))
    return fmt.Errorf("%s: %w", op, err)
}
