package handler // handler defines http handlers

import (
    "errors"   // errors matches sentinel values
    "net/http" // status codes
    "strconv"  // strconv converts strings to numeric types

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-seat-booking/internal/middleware"
    "github.com/iliyamo/cinema-seat-booking/internal/repository"
    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

// getUserID extracts the user_id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get(middleware.CtxUserID).(type) {
    case uint64:
        if t != 0 {
            return t, nil
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    return n, err == nil && n > 0
}

func errorJSON(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"error": msg})
}

// statusFor maps domain failures to an HTTP status and the message shown
// to the client.  ok is false for errors with no mapping.
func statusFor(err error) (status int, msg string, ok bool) {
    switch {
    case errors.Is(err, service.ErrInvalidSeat):
        return http.StatusBadRequest, err.Error(), true
    case errors.Is(err, repository.ErrShowNotFound):
        return http.StatusNotFound, "Show not found", true
    case errors.Is(err, repository.ErrMovieNotFound):
        return http.StatusNotFound, "Movie not found", true
    case errors.Is(err, repository.ErrBookingNotFound):
        return http.StatusNotFound, "Booking not found", true
    case errors.Is(err, repository.ErrForbidden):
        return http.StatusForbidden, "You can only cancel your own bookings", true
    case errors.Is(err, repository.ErrSeatTaken):
        return http.StatusConflict, "This seat is already booked", true
    case errors.Is(err, repository.ErrShowFull):
        return http.StatusConflict, "This show is fully booked", true
    case errors.Is(err, repository.ErrAlreadyCancelled):
        return http.StatusConflict, "Booking is already cancelled", true
    case errors.Is(err, repository.ErrTransient):
        return http.StatusServiceUnavailable, "Booking temporarily unavailable, please retry", true
    }
    return 0, "", false
}

// writeError renders err as {"error": ...}.  Unmapped errors are logged
// and reported as a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
    status, msg, ok := statusFor(err)
    if !ok {
        log.Error("request failed",
            zap.String("path", c.Path()),
            zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
            zap.Error(err))
        return errorJSON(c, http.StatusInternalServerError, "internal server error")
    }
    if status == http.StatusServiceUnavailable {
        c.Response().Header().Set("Retry-After", "1")
    }
    return errorJSON(c, status, msg)
}
