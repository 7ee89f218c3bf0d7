// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import "time"

// Queue names.  Each doubles as the routing key on the default exchange.
const (
    QueueBookingConfirmed = "booking.confirmed"
    QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking is created or cancelled.  It
// carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingEvent struct {
    Type       string    `json:"type"` // one of the queue names above
    BookingID  uint64    `json:"booking_id"`
    UserID     uint64    `json:"user_id"`
    ShowID     uint64    `json:"show_id"`
    SeatNumber int       `json:"seat_number"`
    MovieTitle string    `json:"movie_title"`
    ScreenName string    `json:"screen_name"`
    ShowTime   time.Time `json:"show_time"`
    OccurredAt time.Time `json:"occurred_at"`
}
