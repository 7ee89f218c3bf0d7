package service_test

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"
    "github.com/stretchr/testify/suite"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
    "github.com/iliyamo/cinema-seat-booking/internal/queue"
    "github.com/iliyamo/cinema-seat-booking/internal/repository"
    "github.com/iliyamo/cinema-seat-booking/internal/service"
)

type mockPublisher struct {
    mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
    args := m.Called(ctx, ev)
    return args.Error(0)
}

type BookingServiceSuite struct {
    suite.Suite
    ctx    context.Context
    movies *repository.MemoryMovieRepo
    shows  *repository.MemoryShowRepo
    users  *repository.MemoryUserRepo
    ledger *repository.MemoryLedger
    svc    *service.BookingService
    showID uint64
    userA  uint64
    userB  uint64
}

func TestBookingServiceSuite(t *testing.T) {
    suite.Run(t, new(BookingServiceSuite))
}

func (s *BookingServiceSuite) SetupTest() {
    s.ctx = context.Background()
    s.movies = repository.NewMemoryMovieRepo()
    s.shows = repository.NewMemoryShowRepo(s.movies)
    s.users = repository.NewMemoryUserRepo()
    s.ledger = repository.NewMemoryLedger(s.shows)
    s.svc = service.NewBookingService(s.ledger, s.shows, s.users)

    var err error
    s.userA, err = s.users.Create(s.ctx, "alice", "alice@example.com", "password1", model.RoleCustomer, 4)
    s.Require().NoError(err)
    s.userB, err = s.users.Create(s.ctx, "bob", "bob@example.com", "password2", model.RoleCustomer, 4)
    s.Require().NoError(err)
    s.showID = s.newShow(10)
}

func (s *BookingServiceSuite) newShow(total int) uint64 {
    m := &model.Movie{Title: "Arrival", DurationMinutes: 116}
    s.Require().NoError(s.movies.Create(s.ctx, m))
    sh := &model.Show{
        MovieID:    m.ID,
        ScreenName: "Screen 1",
        DateTime:   time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
        TotalSeats: total,
    }
    s.Require().NoError(s.shows.Create(s.ctx, sh))
    return sh.ID
}

func (s *BookingServiceSuite) available(showID uint64) int {
    n, err := s.svc.AvailableSeats(s.ctx, showID)
    s.Require().NoError(err)
    return n
}

func (s *BookingServiceSuite) TestBookSeat_Projection() {
    d, err := s.svc.BookSeat(s.ctx, s.showID, 4, s.userA)
    s.Require().NoError(err)
    s.Equal(s.userA, d.UserID)
    s.Equal("alice", d.UserUsername)
    s.Equal(s.showID, d.ShowID)
    s.Equal(4, d.SeatNumber)
    s.Equal(model.BookingStatusBooked, d.Status)
    s.Equal("Arrival", d.MovieTitle)
    s.Equal("Screen 1", d.ScreenName)
    s.Equal(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC), d.ShowTime)
    s.False(d.CreatedAt.IsZero())
    s.Equal(9, s.available(s.showID))
}

func (s *BookingServiceSuite) TestBookSeat_ValidationOrder() {
    testCases := []struct {
        name        string
        showID      uint64
        seat        int
        expectedErr error
        message     string
    }{
        {name: "zero seat on unknown show", showID: 999, seat: 0, expectedErr: service.ErrInvalidSeat, message: "Seat number must be at least 1."},
        {name: "negative seat", showID: s.showID, seat: -3, expectedErr: service.ErrInvalidSeat},
        {name: "unknown show", showID: 999, seat: 11, expectedErr: repository.ErrShowNotFound},
        {name: "beyond capacity", showID: s.showID, seat: 11, expectedErr: service.ErrInvalidSeat, message: "Invalid seat number. This show has only 10 seats."},
    }
    for _, tc := range testCases {
        s.Run(tc.name, func() {
            _, err := s.svc.BookSeat(s.ctx, tc.showID, tc.seat, s.userA)
            s.ErrorIs(err, tc.expectedErr)
            if tc.message != "" {
                s.EqualError(err, tc.message)
            }
        })
    }
    s.Equal(10, s.available(s.showID))
}

func (s *BookingServiceSuite) TestNoDoubleBooking() {
    const workers = 32
    var (
        wg    sync.WaitGroup
        mu    sync.Mutex
        ok    int
        taken int
    )
    start := make(chan struct{})
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            <-start
            _, err := s.svc.BookSeat(s.ctx, s.showID, 7, user)
            mu.Lock()
            defer mu.Unlock()
            if err == nil {
                ok++
            } else if errors.Is(err, repository.ErrSeatTaken) {
                taken++
            }
        }(uint64(1000 + i))
    }
    close(start)
    wg.Wait()

    s.Equal(1, ok)
    s.Equal(workers-1, taken)
}

func (s *BookingServiceSuite) TestCapacityBound() {
    showID := s.newShow(3)
    for seat := 1; seat <= 3; seat++ {
        _, err := s.svc.BookSeat(s.ctx, showID, seat, s.userA)
        s.Require().NoError(err)
    }
    s.Equal(0, s.available(showID))

    // every seat is taken, so a valid seat number reports the more specific outcome
    _, err := s.svc.BookSeat(s.ctx, showID, 2, s.userB)
    s.ErrorIs(err, repository.ErrSeatTaken)
}

func (s *BookingServiceSuite) TestCancelThenRebook() {
    first, err := s.svc.BookSeat(s.ctx, s.showID, 2, s.userA)
    s.Require().NoError(err)
    _, err = s.svc.CancelBooking(s.ctx, first.ID, s.userA)
    s.Require().NoError(err)

    second, err := s.svc.BookSeat(s.ctx, s.showID, 2, s.userB)
    s.Require().NoError(err)
    s.NotEqual(first.ID, second.ID)

    mine, err := s.svc.ListMyBookings(s.ctx, s.userA)
    s.Require().NoError(err)
    s.Require().Len(mine, 1)
    s.Equal(model.BookingStatusCancelled, mine[0].Status)
    s.True(!mine[0].UpdatedAt.Before(mine[0].CreatedAt))
}

func (s *BookingServiceSuite) TestCancel_NonOwnerForbidden() {
    b, err := s.svc.BookSeat(s.ctx, s.showID, 1, s.userA)
    s.Require().NoError(err)

    _, err = s.svc.CancelBooking(s.ctx, b.ID, s.userB)
    s.ErrorIs(err, repository.ErrForbidden)

    mine, err := s.svc.ListMyBookings(s.ctx, s.userA)
    s.Require().NoError(err)
    s.Equal(model.BookingStatusBooked, mine[0].Status)
    s.Equal(9, s.available(s.showID))
}

func (s *BookingServiceSuite) TestCancel_Twice() {
    b, err := s.svc.BookSeat(s.ctx, s.showID, 1, s.userA)
    s.Require().NoError(err)

    cancelled, err := s.svc.CancelBooking(s.ctx, b.ID, s.userA)
    s.Require().NoError(err)
    s.Equal(b.ID, cancelled.ID)

    _, err = s.svc.CancelBooking(s.ctx, b.ID, s.userA)
    s.ErrorIs(err, repository.ErrAlreadyCancelled)
    s.Equal(10, s.available(s.showID))

    _, err = s.svc.CancelBooking(s.ctx, 12345, s.userA)
    s.ErrorIs(err, repository.ErrBookingNotFound)
}

// TestFullHouseScenario walks a ten seat show from empty to full and back.
func (s *BookingServiceSuite) TestFullHouseScenario() {
    ids := make(map[int]uint64)
    for seat := 1; seat <= 10; seat++ {
        d, err := s.svc.BookSeat(s.ctx, s.showID, seat, s.userA)
        s.Require().NoError(err)
        ids[seat] = d.ID
    }
    s.Equal(0, s.available(s.showID))

    _, err := s.svc.BookSeat(s.ctx, s.showID, 5, s.userB)
    s.ErrorIs(err, repository.ErrSeatTaken)

    _, err = s.svc.CancelBooking(s.ctx, ids[3], s.userA)
    s.Require().NoError(err)
    s.Equal(1, s.available(s.showID))

    d, err := s.svc.BookSeat(s.ctx, s.showID, 3, s.userB)
    s.Require().NoError(err)
    s.Equal("bob", d.UserUsername)
    s.Equal(0, s.available(s.showID))

    mine, err := s.svc.ListMyBookings(s.ctx, s.userA)
    s.Require().NoError(err)
    s.Len(mine, 10)
}

func (s *BookingServiceSuite) TestListMyBookings_NewestFirst() {
    other := s.newShow(5)
    _, err := s.svc.BookSeat(s.ctx, s.showID, 1, s.userA)
    s.Require().NoError(err)
    time.Sleep(2 * time.Millisecond)
    latest, err := s.svc.BookSeat(s.ctx, other, 1, s.userA)
    s.Require().NoError(err)

    mine, err := s.svc.ListMyBookings(s.ctx, s.userA)
    s.Require().NoError(err)
    s.Require().Len(mine, 2)
    s.Equal(latest.ID, mine[0].ID)
    s.Equal("alice", mine[1].UserUsername)

    none, err := s.svc.ListMyBookings(s.ctx, 777)
    s.Require().NoError(err)
    s.Empty(none)
}

func TestBookingService_PublishesEvents(t *testing.T) {
    ctx := context.Background()
    movies := repository.NewMemoryMovieRepo()
    shows := repository.NewMemoryShowRepo(movies)
    m := &model.Movie{Title: "Heat", DurationMinutes: 170}
    require.NoError(t, movies.Create(ctx, m))
    sh := &model.Show{MovieID: m.ID, ScreenName: "Screen 2", DateTime: time.Now(), TotalSeats: 4}
    require.NoError(t, shows.Create(ctx, sh))

    pub := new(mockPublisher)
    svc := service.NewBookingService(repository.NewMemoryLedger(shows), shows, nil, service.WithEvents(pub))

    pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
        return ev.Type == queue.QueueBookingConfirmed && ev.SeatNumber == 2 && ev.MovieTitle == "Heat"
    })).Return(errors.New("broker down")).Once()
    pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
        return ev.Type == queue.QueueBookingCancelled && ev.SeatNumber == 2
    })).Return(nil).Once()

    // a failed publish never undoes the booking
    d, err := svc.BookSeat(ctx, sh.ID, 2, 1)
    require.NoError(t, err)
    assert.Empty(t, d.UserUsername)

    _, err = svc.CancelBooking(ctx, d.ID, 1)
    require.NoError(t, err)

    pub.AssertExpectations(t)
}

// blockingLedger never completes a reservation until its context expires.
type blockingLedger struct {
    service.Ledger
}

func (blockingLedger) TryReserve(ctx context.Context, _ uint64, _ int, _ uint64) (model.Booking, error) {
    <-ctx.Done()
    return model.Booking{}, ctx.Err()
}

func TestBookingService_LedgerTimeoutIsTransient(t *testing.T) {
    ctx := context.Background()
    movies := repository.NewMemoryMovieRepo()
    shows := repository.NewMemoryShowRepo(movies)
    m := &model.Movie{Title: "Heat", DurationMinutes: 170}
    require.NoError(t, movies.Create(ctx, m))
    sh := &model.Show{MovieID: m.ID, ScreenName: "Screen 2", DateTime: time.Now(), TotalSeats: 4}
    require.NoError(t, shows.Create(ctx, sh))

    svc := service.NewBookingService(blockingLedger{}, shows, nil, service.WithLedgerTimeout(20*time.Millisecond))
    _, err := svc.BookSeat(ctx, sh.ID, 1, 1)
    assert.ErrorIs(t, err, repository.ErrTransient)
}

// abortedLedger fails every read as if the client had disconnected.
type abortedLedger struct {
    service.Ledger
}

func (abortedLedger) ListByUser(context.Context, uint64) ([]model.Booking, error) {
    return nil, context.Canceled
}

func (abortedLedger) AvailableSeats(context.Context, uint64) (int, error) {
    return 0, fmt.Errorf("query: %w", context.Canceled)
}

func TestBookingService_ClientAbortIsNotInternal(t *testing.T) {
    core, logs := observer.New(zapcore.DebugLevel)
    svc := service.NewBookingService(abortedLedger{}, nil, nil, service.WithLogger(zap.New(core)))

    _, err := svc.ListMyBookings(context.Background(), 1)
    assert.ErrorIs(t, err, repository.ErrTransient)

    _, err = svc.AvailableSeats(context.Background(), 1)
    assert.ErrorIs(t, err, repository.ErrTransient)

    assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
    assert.Equal(t, 2, logs.FilterLevelExact(zapcore.DebugLevel).Len())
}
