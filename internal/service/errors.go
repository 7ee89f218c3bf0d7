package service

import (
    "errors"
    "fmt"
)

// ErrInvalidSeat matches every InvalidSeatError.
var ErrInvalidSeat = errors.New("invalid seat number")

// InvalidSeatError reports a seat number outside 1..TotalSeats.
// TotalSeats is zero when the number was rejected before the show was
// looked up.
type InvalidSeatError struct {
    TotalSeats int
}

func (e *InvalidSeatError) Error() string {
    if e.TotalSeats > 0 {
        return fmt.Sprintf("Invalid seat number. This show has only %d seats.", e.TotalSeats)
    }
    return "Seat number must be at least 1."
}

func (e *InvalidSeatError) Is(target error) bool { return target == ErrInvalidSeat }
