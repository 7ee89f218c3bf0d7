// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// booking service and the handlers to distinguish between failure
// scenarios with errors.Is, independent of which storage backend
// produced them.
package repository

import "errors"

// Catalog lookups.
var (
    ErrMovieNotFound = errors.New("movie not found")
    ErrShowNotFound  = errors.New("show not found")
)

// Booking ledger outcomes.
var (
    // ErrBookingNotFound is returned when a booking id does not exist.
    ErrBookingNotFound = errors.New("booking not found")

    // ErrForbidden is returned when the caller attempts an operation
    // on a booking they do not own.  Handlers should translate this
    // into an HTTP 403 response.
    ErrForbidden = errors.New("you can only cancel your own bookings")

    // ErrSeatTaken is returned when the requested seat already has an
    // active booking for the show.
    ErrSeatTaken = errors.New("this seat is already booked")

    // ErrShowFull is returned when every seat of the show is taken.
    ErrShowFull = errors.New("this show is fully booked")

    // ErrAlreadyCancelled is returned when cancelling a booking whose
    // status is already CANCELLED.
    ErrAlreadyCancelled = errors.New("booking is already cancelled")

    // ErrTransient signals that the operation lost a race for the show
    // lock or hit a deadlock and may succeed if retried.  Nothing was
    // written.
    ErrTransient = errors.New("booking temporarily unavailable, please retry")
)

// Access layer.
var (
    ErrUserNotFound   = errors.New("user not found")
    ErrEmailExists    = errors.New("email already exists")
    ErrUsernameExists = errors.New("username already exists")
    ErrInvalidRefresh = errors.New("invalid refresh token")
)
