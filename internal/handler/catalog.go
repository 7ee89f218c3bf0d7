// Package handler exposes HTTP handlers for both authenticated and public
// endpoints.  This file holds the catalog API: public browsing of movies
// and shows, and the admin routes that create them.  Show responses carry
// available_seats, read from the booking ledger at request time.
package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// MovieStore is implemented by repository.MovieRepo and MemoryMovieRepo.
type MovieStore interface {
    Create(ctx context.Context, m *model.Movie) error
    GetByID(ctx context.Context, id uint64) (model.Movie, error)
    List(ctx context.Context) ([]model.Movie, error)
}

// ShowStore is implemented by repository.ShowRepo and MemoryShowRepo.
type ShowStore interface {
    Create(ctx context.Context, s *model.Show) error
    GetByID(ctx context.Context, id uint64) (model.ShowDetail, error)
    ListByMovie(ctx context.Context, movieID uint64) ([]model.ShowDetail, error)
}

// SeatCounter reports free seats of a show.
type SeatCounter interface {
    AvailableSeats(ctx context.Context, showID uint64) (int, error)
}

// CatalogHandler serves movies and shows.
type CatalogHandler struct {
    Movies MovieStore
    Shows  ShowStore
    Seats  SeatCounter
    Log    *zap.Logger
}

// PublicShow is a show as returned by the API.
type PublicShow struct {
    model.ShowDetail
    AvailableSeats int `json:"available_seats"`
}

type createMovieReq struct {
    Title           string `json:"title" validate:"required,max=255"`
    DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
}

type createShowReq struct {
    ScreenName string    `json:"screen_name" validate:"required,max=100"`
    DateTime   time.Time `json:"date_time" validate:"required"`
    TotalSeats int       `json:"total_seats" validate:"required,gt=0"`
}

func (h *CatalogHandler) withSeats(ctx context.Context, d model.ShowDetail) (PublicShow, error) {
    n, err := h.Seats.AvailableSeats(ctx, d.ID)
    if err != nil {
        return PublicShow{}, err
    }
    return PublicShow{ShowDetail: d, AvailableSeats: n}, nil
}

// ListMovies returns all movies, newest first, as {"items": [...]}.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
    movies, err := h.Movies.List(c.Request().Context())
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// ListMovieShows returns the shows of one movie ordered by start time.
func (h *CatalogHandler) ListMovieShows(c echo.Context) error {
    movieID, ok := pathID(c, "id")
    if !ok {
        return errorJSON(c, http.StatusBadRequest, "invalid movie id")
    }
    ctx := c.Request().Context()
    if _, err := h.Movies.GetByID(ctx, movieID); err != nil {
        return writeError(c, h.Log, err)
    }
    shows, err := h.Shows.ListByMovie(ctx, movieID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    out := make([]PublicShow, 0, len(shows))
    for _, s := range shows {
        ps, err := h.withSeats(ctx, s)
        if err != nil {
            return writeError(c, h.Log, err)
        }
        out = append(out, ps)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetShow returns a single show with its available seat count.
func (h *CatalogHandler) GetShow(c echo.Context) error {
    showID, ok := pathID(c, "id")
    if !ok {
        return errorJSON(c, http.StatusBadRequest, "invalid show id")
    }
    ctx := c.Request().Context()
    d, err := h.Shows.GetByID(ctx, showID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    ps, err := h.withSeats(ctx, d)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, ps)
}

// CreateMovie (admin) adds a movie.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
    var req createMovieReq
    if err := c.Bind(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, "invalid body")
    }
    req.Title = strings.TrimSpace(req.Title)
    if err := c.Validate(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, validationMessage(err))
    }
    m := model.Movie{Title: req.Title, DurationMinutes: req.DurationMinutes}
    if err := h.Movies.Create(c.Request().Context(), &m); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, m)
}

// CreateShow (admin) schedules a show of the movie in the path.
func (h *CatalogHandler) CreateShow(c echo.Context) error {
    movieID, ok := pathID(c, "id")
    if !ok {
        return errorJSON(c, http.StatusBadRequest, "invalid movie id")
    }
    var req createShowReq
    if err := c.Bind(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, "invalid body")
    }
    req.ScreenName = strings.TrimSpace(req.ScreenName)
    if err := c.Validate(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, validationMessage(err))
    }
    ctx := c.Request().Context()
    s := model.Show{MovieID: movieID, ScreenName: req.ScreenName, DateTime: req.DateTime, TotalSeats: req.TotalSeats}
    if err := h.Shows.Create(ctx, &s); err != nil {
        return writeError(c, h.Log, err)
    }
    d, err := h.Shows.GetByID(ctx, s.ID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, PublicShow{ShowDetail: d, AvailableSeats: d.TotalSeats})
}
