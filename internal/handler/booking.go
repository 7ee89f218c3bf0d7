package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

// BookingAPI is the reservation service as seen by HTTP.
type BookingAPI interface {
    BookSeat(ctx context.Context, showID uint64, seat int, userID uint64) (model.BookingDetail, error)
    CancelBooking(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
    ListMyBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// BookingHandler serves the customer booking routes.
type BookingHandler struct {
    Svc BookingAPI
    Log *zap.Logger
}

type bookReq struct {
    // pointer so a missing field is told apart from seat 0
    SeatNumber *int `json:"seat_number" validate:"required"`
}

// Book handles POST /v1/shows/:id/book.
func (h *BookingHandler) Book(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return errorJSON(c, http.StatusUnauthorized, "unauthorized")
    }
    showID, ok := pathID(c, "id")
    if !ok {
        return errorJSON(c, http.StatusBadRequest, "invalid show id")
    }
    var req bookReq
    if err := c.Bind(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, "invalid body")
    }
    if err := c.Validate(&req); err != nil {
        return errorJSON(c, http.StatusBadRequest, validationMessage(err))
    }

    b, err := h.Svc.BookSeat(c.Request().Context(), showID, *req.SeatNumber, uid)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "message": "Seat booked successfully",
        "booking": b,
    })
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return errorJSON(c, http.StatusUnauthorized, "unauthorized")
    }
    bookingID, ok := pathID(c, "id")
    if !ok {
        return errorJSON(c, http.StatusBadRequest, "invalid booking id")
    }
    b, err := h.Svc.CancelBooking(c.Request().Context(), bookingID, uid)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":    "Booking cancelled successfully",
        "booking_id": b.ID,
    })
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return errorJSON(c, http.StatusUnauthorized, "unauthorized")
    }
    items, err := h.Svc.ListMyBookings(c.Request().Context(), uid)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
