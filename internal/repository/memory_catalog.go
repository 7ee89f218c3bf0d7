package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// MemoryMovieRepo keeps movies in process memory.
type MemoryMovieRepo struct {
    mu     sync.RWMutex
    movies map[uint64]model.Movie
    nextID uint64
}

func NewMemoryMovieRepo() *MemoryMovieRepo {
    return &MemoryMovieRepo{movies: make(map[uint64]model.Movie)}
}

func (r *MemoryMovieRepo) Create(_ context.Context, m *model.Movie) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.nextID++
    m.ID = r.nextID
    m.CreatedAt = time.Now().UTC()
    r.movies[m.ID] = *m
    return nil
}

func (r *MemoryMovieRepo) GetByID(_ context.Context, id uint64) (model.Movie, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    m, ok := r.movies[id]
    if !ok {
        return model.Movie{}, ErrMovieNotFound
    }
    return m, nil
}

// List returns all movies, newest first.
func (r *MemoryMovieRepo) List(_ context.Context) ([]model.Movie, error) {
    r.mu.RLock()
    out := make([]model.Movie, 0, len(r.movies))
    for _, m := range r.movies {
        out = append(out, m)
    }
    r.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID > out[j].ID
    })
    return out, nil
}

// MemoryShowRepo keeps shows in process memory and joins movie titles
// from the movie repository it was built with.
type MemoryShowRepo struct {
    movies *MemoryMovieRepo

    mu     sync.RWMutex
    shows  map[uint64]model.Show
    nextID uint64
}

func NewMemoryShowRepo(movies *MemoryMovieRepo) *MemoryShowRepo {
    return &MemoryShowRepo{movies: movies, shows: make(map[uint64]model.Show)}
}

// Create stores s.  The movie must exist.
func (r *MemoryShowRepo) Create(ctx context.Context, s *model.Show) error {
    if _, err := r.movies.GetByID(ctx, s.MovieID); err != nil {
        return err
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    r.nextID++
    s.ID = r.nextID
    s.DateTime = s.DateTime.UTC()
    s.CreatedAt = time.Now().UTC()
    r.shows[s.ID] = *s
    return nil
}

func (r *MemoryShowRepo) GetByID(ctx context.Context, id uint64) (model.ShowDetail, error) {
    r.mu.RLock()
    s, ok := r.shows[id]
    r.mu.RUnlock()
    if !ok {
        return model.ShowDetail{}, ErrShowNotFound
    }
    return r.detail(ctx, s), nil
}

// ListByMovie returns the movie's shows ordered by start time.
func (r *MemoryShowRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.ShowDetail, error) {
    r.mu.RLock()
    var shows []model.Show
    for _, s := range r.shows {
        if s.MovieID == movieID {
            shows = append(shows, s)
        }
    }
    r.mu.RUnlock()
    sort.Slice(shows, func(i, j int) bool {
        if !shows[i].DateTime.Equal(shows[j].DateTime) {
            return shows[i].DateTime.Before(shows[j].DateTime)
        }
        return shows[i].ID < shows[j].ID
    })
    out := make([]model.ShowDetail, 0, len(shows))
    for _, s := range shows {
        out = append(out, r.detail(ctx, s))
    }
    return out, nil
}

func (r *MemoryShowRepo) detail(ctx context.Context, s model.Show) model.ShowDetail {
    d := model.ShowDetail{Show: s}
    if m, err := r.movies.GetByID(ctx, s.MovieID); err == nil {
        d.MovieTitle = m.Title
    }
    return d
}
