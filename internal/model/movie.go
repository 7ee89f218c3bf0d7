package model

import "time"

// Movie is a film that can be scheduled into one or more shows.  Movies
// are immutable once created.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display title.
//  DurationMinutes – running time, always positive.
//  CreatedAt       – creation timestamp.
type Movie struct {
    ID              uint64    `json:"id"`               // movies.id
    Title           string    `json:"title"`            // movies.title
    DurationMinutes int       `json:"duration_minutes"` // movies.duration_minutes
    CreatedAt       time.Time `json:"created_at"`       // movies.created_at
}
