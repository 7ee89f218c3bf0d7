package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-seat-booking/internal/middleware"
    "github.com/iliyamo/cinema-seat-booking/internal/model"
    "github.com/iliyamo/cinema-seat-booking/internal/repository"
    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

type mockBookingAPI struct {
    mock.Mock
}

func (m *mockBookingAPI) BookSeat(ctx context.Context, showID uint64, seat int, userID uint64) (model.BookingDetail, error) {
    args := m.Called(ctx, showID, seat, userID)
    return args.Get(0).(model.BookingDetail), args.Error(1)
}

func (m *mockBookingAPI) CancelBooking(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
    args := m.Called(ctx, bookingID, userID)
    return args.Get(0).(model.Booking), args.Error(1)
}

func (m *mockBookingAPI) ListMyBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
    args := m.Called(ctx, userID)
    return args.Get(0).([]model.BookingDetail), args.Error(1)
}

func TestStatusFor(t *testing.T) {
    testCases := []struct {
        err    error
        status int
    }{
        {&service.InvalidSeatError{TotalSeats: 10}, http.StatusBadRequest},
        {repository.ErrShowNotFound, http.StatusNotFound},
        {repository.ErrMovieNotFound, http.StatusNotFound},
        {repository.ErrBookingNotFound, http.StatusNotFound},
        {repository.ErrForbidden, http.StatusForbidden},
        {repository.ErrSeatTaken, http.StatusConflict},
        {repository.ErrShowFull, http.StatusConflict},
        {repository.ErrAlreadyCancelled, http.StatusConflict},
        {fmt.Errorf("%w: lock wait", repository.ErrTransient), http.StatusServiceUnavailable},
    }
    for _, tc := range testCases {
        status, msg, ok := statusFor(tc.err)
        assert.True(t, ok, tc.err.Error())
        assert.Equal(t, tc.status, status, tc.err.Error())
        assert.NotEmpty(t, msg)
    }

    _, _, ok := statusFor(errors.New("connection refused"))
    assert.False(t, ok)
}

func newBookingRequest(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    e.Validator = NewRequestValidator()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set(middleware.CtxUserID, uint64(5))
    return c, rec
}

func TestBook_TransientIsRetryable(t *testing.T) {
    svc := new(mockBookingAPI)
    svc.On("BookSeat", mock.Anything, uint64(3), 2, uint64(5)).
        Return(model.BookingDetail{}, fmt.Errorf("%w: deadlock", repository.ErrTransient)).Once()
    h := &BookingHandler{Svc: svc, Log: zap.NewNop()}

    c, rec := newBookingRequest(http.MethodPost, "/v1/shows/3/book", `{"seat_number":2}`)
    c.SetParamNames("id")
    c.SetParamValues("3")

    assert.NoError(t, h.Book(c))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
    assert.Equal(t, "1", rec.Header().Get("Retry-After"))
    svc.AssertExpectations(t)
}

func TestBook_InternalErrorIsOpaque(t *testing.T) {
    svc := new(mockBookingAPI)
    svc.On("BookSeat", mock.Anything, uint64(3), 2, uint64(5)).
        Return(model.BookingDetail{}, errors.New("dial tcp 10.0.0.5:3306: connection refused")).Once()
    h := &BookingHandler{Svc: svc, Log: zap.NewNop()}

    c, rec := newBookingRequest(http.MethodPost, "/v1/shows/3/book", `{"seat_number":2}`)
    c.SetParamNames("id")
    c.SetParamValues("3")

    assert.NoError(t, h.Book(c))
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestBook_BadPath(t *testing.T) {
    h := &BookingHandler{Svc: new(mockBookingAPI), Log: zap.NewNop()}
    c, rec := newBookingRequest(http.MethodPost, "/v1/shows/abc/book", `{"seat_number":2}`)
    c.SetParamNames("id")
    c.SetParamValues("abc")

    assert.NoError(t, h.Book(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMine_RequiresUser(t *testing.T) {
    h := &BookingHandler{Svc: new(mockBookingAPI), Log: zap.NewNop()}
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/my-bookings", nil), rec)

    assert.NoError(t, h.ListMine(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
