package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// MovieRepo manages persistence for movies.
type MovieRepo struct {
    db *sql.DB
}

// NewMovieRepo constructs a MovieRepo backed by db.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts m and fills in its ID and CreatedAt.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
    m.CreatedAt = time.Now().UTC().Truncate(time.Second)
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO movies (title, duration_minutes, created_at) VALUES (?, ?, ?)`,
        m.Title, m.DurationMinutes, m.CreatedAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    return nil
}

// GetByID returns the movie with the given id or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
    var m model.Movie
    err := r.db.QueryRowContext(ctx,
        `SELECT id, title, duration_minutes, created_at FROM movies WHERE id = ?`, id).
        Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.CreatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Movie{}, ErrMovieNotFound
    }
    return m, err
}

// List returns all movies, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, title, duration_minutes, created_at FROM movies ORDER BY created_at DESC, id DESC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Movie, 0)
    for rows.Next() {
        var m model.Movie
        if err := rows.Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}
