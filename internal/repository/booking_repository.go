package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// BookingRepo is the MySQL booking ledger.
//
// TryReserve serialises all reservations of one show by taking a row lock
// on the show (SELECT ... FOR UPDATE) before checking the seat and the
// booked count, so two transactions for the same show run one after the
// other while different shows never wait on each other.  The unique index
// on (show_id, active_seat) backs the seat check at the storage level.
//
// Waits are bounded by innodb_lock_wait_timeout (set in the DSN) and by
// the caller's context.  Lock timeouts and deadlocks are retried up to
// MaxRetries times and then reported as ErrTransient.
type BookingRepo struct {
    db    *sql.DB
    retry retryPolicy
    now   func() time.Time
}

// NewBookingRepo constructs a ledger on db.  maxRetries is the number of
// extra attempts made after a lock wait timeout or deadlock.
func NewBookingRepo(db *sql.DB, maxRetries int) *BookingRepo {
    return &BookingRepo{
        db:    db,
        retry: retryPolicy{maxRetries: maxRetries, backoff: 20 * time.Millisecond},
        now:   func() time.Time { return time.Now().UTC() },
    }
}

const bookingColumns = `id, user_id, show_id, seat_number, status, created_at, updated_at`

// TryReserve creates a BOOKED row for (showID, seat) owned by userID.
// The seat range is not checked here; the caller validates it against the
// show's capacity.  Returns ErrShowNotFound, ErrSeatTaken, ErrShowFull or
// ErrTransient for the expected failures.  A seat that is taken wins over
// a show that is full.
func (r *BookingRepo) TryReserve(ctx context.Context, showID uint64, seat int, userID uint64) (model.Booking, error) {
    var out model.Booking
    err := r.retry.run(ctx, func() error {
        b, err := r.reserveOnce(ctx, showID, seat, userID)
        if err == nil {
            out = b
        }
        return err
    })
    return out, err
}

func (r *BookingRepo) reserveOnce(ctx context.Context, showID uint64, seat int, userID uint64) (model.Booking, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Booking{}, err
    }
    // Ensure rollback on any early return; set committed=true after Commit.
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Show-scoped lock.  Every reservation for this show queues here.
    var total int
    err = tx.QueryRowContext(ctx, `SELECT total_seats FROM shows WHERE id = ? FOR UPDATE`, showID).Scan(&total)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrShowNotFound
    }
    if err != nil {
        return model.Booking{}, err
    }

    var taken int
    err = tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM bookings WHERE show_id = ? AND seat_number = ? AND status = 'BOOKED'`,
        showID, seat).Scan(&taken)
    if err != nil {
        return model.Booking{}, err
    }
    if taken > 0 {
        return model.Booking{}, ErrSeatTaken
    }

    var booked int
    err = tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM bookings WHERE show_id = ? AND status = 'BOOKED'`, showID).Scan(&booked)
    if err != nil {
        return model.Booking{}, err
    }
    if booked >= total {
        return model.Booking{}, ErrShowFull
    }

    now := r.now()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO bookings (user_id, show_id, seat_number, status, created_at, updated_at) VALUES (?, ?, ?, 'BOOKED', ?, ?)`,
        userID, showID, seat, now, now)
    if err != nil {
        if isDuplicateKey(err) {
            return model.Booking{}, ErrSeatTaken
        }
        return model.Booking{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Booking{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Booking{}, err
    }
    committed = true

    return model.Booking{
        ID:         uint64(id),
        UserID:     userID,
        ShowID:     showID,
        SeatNumber: seat,
        Status:     model.BookingStatusBooked,
        CreatedAt:  now,
        UpdatedAt:  now,
    }, nil
}

// Cancel flips an owned BOOKED row to CANCELLED and stamps updated_at.
// The row lock taken by SELECT ... FOR UPDATE makes concurrent cancels of
// the same booking observe each other: exactly one succeeds and the rest
// see ErrAlreadyCancelled.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
    var out model.Booking
    err := r.retry.run(ctx, func() error {
        b, err := r.cancelOnce(ctx, bookingID, userID)
        if err == nil {
            out = b
        }
        return err
    })
    return out, err
}

func (r *BookingRepo) cancelOnce(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Booking{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    b, err := scanBooking(tx.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, bookingID))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrBookingNotFound
    }
    if err != nil {
        return model.Booking{}, err
    }
    if b.UserID != userID {
        return model.Booking{}, ErrForbidden
    }
    if !b.Active() {
        return model.Booking{}, ErrAlreadyCancelled
    }

    now := r.now()
    if _, err := tx.ExecContext(ctx,
        `UPDATE bookings SET status = 'CANCELLED', updated_at = ? WHERE id = ?`, now, bookingID); err != nil {
        return model.Booking{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Booking{}, err
    }
    committed = true

    b.Status = model.BookingStatusCancelled
    b.UpdatedAt = now
    return b, nil
}

// AvailableSeats returns total_seats minus the active bookings of the
// show.  It is a plain read and may lag a reservation in flight.
func (r *BookingRepo) AvailableSeats(ctx context.Context, showID uint64) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT s.total_seats - (SELECT COUNT(*) FROM bookings b WHERE b.show_id = s.id AND b.status = 'BOOKED')
         FROM shows s WHERE s.id = ?`, showID).Scan(&n)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, ErrShowNotFound
    }
    if err != nil {
        return 0, fmt.Errorf("available seats: %w", err)
    }
    if n < 0 {
        n = 0
    }
    return n, nil
}

// ListByUser returns every booking of the user in any status, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

func scanBooking(s rowScanner) (model.Booking, error) {
    var (
        b      model.Booking
        status string
    )
    err := s.Scan(&b.ID, &b.UserID, &b.ShowID, &b.SeatNumber, &status, &b.CreatedAt, &b.UpdatedAt)
    b.Status = model.BookingStatus(status)
    return b, err
}
