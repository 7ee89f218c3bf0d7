package model

import "time"

// Show represents a single scheduled screening of a movie on a screen.
// Its seat capacity is fixed at creation.  The number of available seats
// is never stored on the show; it is derived from the booking ledger
// whenever it is read.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being screened.
//  ScreenName – screen or venue label.
//  DateTime   – when the show starts (UTC).
//  TotalSeats – seat capacity, always positive.
//  CreatedAt  – creation timestamp.
type Show struct {
    ID         uint64    `json:"id"`          // shows.id
    MovieID    uint64    `json:"movie"`       // shows.movie_id
    ScreenName string    `json:"screen_name"` // shows.screen_name
    DateTime   time.Time `json:"date_time"`   // shows.date_time
    TotalSeats int       `json:"total_seats"` // shows.total_seats
    CreatedAt  time.Time `json:"created_at"`  // shows.created_at
}

// ShowDetail is a show joined with the title of its movie.  Catalog
// lookups return this shape so callers can build display projections
// without a second query.
type ShowDetail struct {
    Show
    MovieTitle string `json:"movie_title"`
}
