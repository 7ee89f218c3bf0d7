package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    // BookingStatusBooked marks an active booking.  Active bookings count
    // against the show's capacity and hold their seat exclusively.
    BookingStatusBooked BookingStatus = "BOOKED"
    // BookingStatusCancelled marks a booking released by its owner.  The
    // row is kept as history; re-booking the seat creates a new row.
    BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a claim on one seat of one show by one user.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner of the booking.
//  ShowID     – show being booked.
//  SeatNumber – seat within the show, 1..TotalSeats.
//  Status     – BOOKED or CANCELLED.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last status change.
type Booking struct {
    ID         uint64        // bookings.id
    UserID     uint64        // bookings.user_id
    ShowID     uint64        // bookings.show_id
    SeatNumber int           // bookings.seat_number
    Status     BookingStatus // bookings.status
    CreatedAt  time.Time     // bookings.created_at
    UpdatedAt  time.Time     // bookings.updated_at
}

// Active reports whether the booking currently holds its seat.
func (b Booking) Active() bool { return b.Status == BookingStatusBooked }

// BookingDetail is the caller-facing projection of a booking, carrying
// the show and movie fields needed for display.
type BookingDetail struct {
    ID           uint64        `json:"id"`
    UserID       uint64        `json:"user"`
    UserUsername string        `json:"user_username,omitempty"`
    ShowID       uint64        `json:"show"`
    MovieTitle   string        `json:"movie_title"`
    ScreenName   string        `json:"screen_name"`
    ShowTime     time.Time     `json:"show_time"`
    SeatNumber   int           `json:"seat_number"`
    Status       BookingStatus `json:"status"`
    CreatedAt    time.Time     `json:"created_at"`
    UpdatedAt    time.Time     `json:"updated_at"`
}
