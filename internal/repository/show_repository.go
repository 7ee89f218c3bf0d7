// Package repository contains data access logic for the cinema catalog
// and the booking ledger.  This file holds the show repository.  A show
// is a single screening of a movie with a fixed seat capacity; how many
// of those seats are free is answered by the ledger, never stored here.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
    db *sql.DB
}

// NewShowRepo constructs a new ShowRepo using the given database handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
    return &ShowRepo{db: db}
}

const showDetailSelect = `SELECT s.id, s.movie_id, s.screen_name, s.date_time, s.total_seats, s.created_at, m.title
                          FROM shows s JOIN movies m ON m.id = s.movie_id`

// Create inserts a new show and populates its ID and CreatedAt.  A
// movie_id that does not exist yields ErrMovieNotFound.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
    s.CreatedAt = time.Now().UTC().Truncate(time.Second)
    s.DateTime = s.DateTime.UTC()
    const q = `INSERT INTO shows (movie_id, screen_name, date_time, total_seats, created_at) VALUES (?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, s.MovieID, s.ScreenName, s.DateTime, s.TotalSeats, s.CreatedAt)
    if err != nil {
        if isForeignKeyMissing(err) {
            return ErrMovieNotFound
        }
        return err
    }
    // Retrieve the auto-incremented ID assigned by the database.
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// GetByID retrieves a show joined with its movie title.  Returns
// ErrShowNotFound when no row exists.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (model.ShowDetail, error) {
    row := r.db.QueryRowContext(ctx, showDetailSelect+` WHERE s.id = ?`, id)
    d, err := scanShowDetail(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.ShowDetail{}, ErrShowNotFound
    }
    return d, err
}

// ListByMovie returns the shows of one movie ordered by start time.
func (r *ShowRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.ShowDetail, error) {
    rows, err := r.db.QueryContext(ctx, showDetailSelect+` WHERE s.movie_id = ? ORDER BY s.date_time ASC, s.id ASC`, movieID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.ShowDetail, 0)
    for rows.Next() {
        d, err := scanShowDetail(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

type rowScanner interface {
    Scan(dest ...any) error
}

func scanShowDetail(s rowScanner) (model.ShowDetail, error) {
    var d model.ShowDetail
    err := s.Scan(&d.ID, &d.MovieID, &d.ScreenName, &d.DateTime, &d.TotalSeats, &d.CreatedAt, &d.MovieTitle)
    return d, err
}
