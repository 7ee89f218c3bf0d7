package repository

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-seat-booking/internal/model"
)

func newMemoryFixture(t *testing.T, totalSeats int) (*MemoryLedger, uint64) {
    t.Helper()
    ctx := context.Background()
    movies := NewMemoryMovieRepo()
    shows := NewMemoryShowRepo(movies)

    m := &model.Movie{Title: "Arrival", DurationMinutes: 116}
    require.NoError(t, movies.Create(ctx, m))
    s := &model.Show{MovieID: m.ID, ScreenName: "Screen 1", DateTime: time.Now().Add(24 * time.Hour), TotalSeats: totalSeats}
    require.NoError(t, shows.Create(ctx, s))

    return NewMemoryLedger(shows), s.ID
}

func TestMemoryLedger_SameSeatRace(t *testing.T) {
    ledger, showID := newMemoryFixture(t, 10)
    const workers = 64

    var (
        wg      sync.WaitGroup
        mu      sync.Mutex
        ok      int
        taken   int
        unknown []error
    )
    start := make(chan struct{})
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            <-start
            _, err := ledger.TryReserve(context.Background(), showID, 5, user)
            mu.Lock()
            defer mu.Unlock()
            switch {
            case err == nil:
                ok++
            case errors.Is(err, ErrSeatTaken):
                taken++
            default:
                unknown = append(unknown, err)
            }
        }(uint64(i + 1))
    }
    close(start)
    wg.Wait()

    assert.Empty(t, unknown)
    assert.Equal(t, 1, ok)
    assert.Equal(t, workers-1, taken)

    n, err := ledger.AvailableSeats(context.Background(), showID)
    require.NoError(t, err)
    assert.Equal(t, 9, n)
}

func TestMemoryLedger_CapacityBound(t *testing.T) {
    const total = 10
    ledger, showID := newMemoryFixture(t, total)

    var (
        wg   sync.WaitGroup
        mu   sync.Mutex
        ok   int
        full int
    )
    start := make(chan struct{})
    // three times as many distinct seats as there is capacity
    for seat := 1; seat <= 3*total; seat++ {
        wg.Add(1)
        go func(seat int) {
            defer wg.Done()
            <-start
            _, err := ledger.TryReserve(context.Background(), showID, seat, uint64(seat))
            mu.Lock()
            defer mu.Unlock()
            if err == nil {
                ok++
            } else if errors.Is(err, ErrShowFull) {
                full++
            }
        }(seat)
    }
    close(start)
    wg.Wait()

    assert.Equal(t, total, ok)
    assert.Equal(t, 2*total, full)
    n, err := ledger.AvailableSeats(context.Background(), showID)
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestMemoryLedger_CancelLifecycle(t *testing.T) {
    ctx := context.Background()
    ledger, showID := newMemoryFixture(t, 2)

    first, err := ledger.TryReserve(ctx, showID, 1, 100)
    require.NoError(t, err)

    _, err = ledger.Cancel(ctx, first.ID, 200)
    assert.ErrorIs(t, err, ErrForbidden)

    cancelled, err := ledger.Cancel(ctx, first.ID, 100)
    require.NoError(t, err)
    assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

    _, err = ledger.Cancel(ctx, first.ID, 100)
    assert.ErrorIs(t, err, ErrAlreadyCancelled)

    _, err = ledger.Cancel(ctx, 999, 100)
    assert.ErrorIs(t, err, ErrBookingNotFound)

    again, err := ledger.TryReserve(ctx, showID, 1, 100)
    require.NoError(t, err)
    assert.NotEqual(t, first.ID, again.ID)

    list, err := ledger.ListByUser(ctx, 100)
    require.NoError(t, err)
    require.Len(t, list, 2)
    assert.Equal(t, again.ID, list[0].ID)
    assert.Equal(t, model.BookingStatusCancelled, list[1].Status)
}

func TestMemoryLedger_ConcurrentCancel(t *testing.T) {
    ctx := context.Background()
    ledger, showID := newMemoryFixture(t, 5)
    b, err := ledger.TryReserve(ctx, showID, 3, 1)
    require.NoError(t, err)

    var (
        wg        sync.WaitGroup
        mu        sync.Mutex
        ok, again int
    )
    for i := 0; i < 16; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := ledger.Cancel(ctx, b.ID, 1)
            mu.Lock()
            defer mu.Unlock()
            if err == nil {
                ok++
            } else if errors.Is(err, ErrAlreadyCancelled) {
                again++
            }
        }()
    }
    wg.Wait()

    assert.Equal(t, 1, ok)
    assert.Equal(t, 15, again)
    n, err := ledger.AvailableSeats(ctx, showID)
    require.NoError(t, err)
    assert.Equal(t, 5, n)
}

func TestMemoryLedger_BoundedWait(t *testing.T) {
    ledger, showID := newMemoryFixture(t, 5)

    release, err := ledger.ledgerFor(showID).acquire(context.Background())
    require.NoError(t, err)
    defer release()

    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    _, err = ledger.TryReserve(ctx, showID, 1, 1)
    assert.ErrorIs(t, err, ErrTransient)
}

func TestMemoryLedger_IndependentShows(t *testing.T) {
    ledger, showA := newMemoryFixture(t, 5)
    ctx := context.Background()
    shows := ledger.shows.(*MemoryShowRepo)
    s := &model.Show{MovieID: 1, ScreenName: "Screen 2", DateTime: time.Now(), TotalSeats: 5}
    require.NoError(t, shows.Create(ctx, s))

    // holding show A's lock must not delay show B
    release, err := ledger.ledgerFor(showA).acquire(ctx)
    require.NoError(t, err)
    defer release()

    tctx, cancel := context.WithTimeout(ctx, time.Second)
    defer cancel()
    _, err = ledger.TryReserve(tctx, s.ID, 1, 1)
    assert.NoError(t, err)
}

func TestMemoryLedger_UnknownShow(t *testing.T) {
    ledger, _ := newMemoryFixture(t, 5)
    _, err := ledger.TryReserve(context.Background(), 404, 1, 1)
    assert.ErrorIs(t, err, ErrShowNotFound)
    _, err = ledger.AvailableSeats(context.Background(), 404)
    assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestMemoryLedger_AvailableMatchesActiveUnderChurn(t *testing.T) {
    const total = 5
    ctx := context.Background()
    ledger, showID := newMemoryFixture(t, total)

    stop := make(chan struct{})
    var readers sync.WaitGroup
    var outOfRange []int
    var mu sync.Mutex
    for i := 0; i < 4; i++ {
        readers.Add(1)
        go func() {
            defer readers.Done()
            for {
                select {
                case <-stop:
                    return
                default:
                }
                n, err := ledger.AvailableSeats(ctx, showID)
                if err != nil || n < 0 || n > total {
                    mu.Lock()
                    outOfRange = append(outOfRange, n)
                    mu.Unlock()
                }
            }
        }()
    }

    var writers sync.WaitGroup
    for user := uint64(1); user <= 8; user++ {
        writers.Add(1)
        go func(user uint64) {
            defer writers.Done()
            for i := 0; i < 50; i++ {
                seat := int(user+uint64(i))%total + 1
                b, err := ledger.TryReserve(ctx, showID, seat, user)
                if err == nil && i%2 == 0 {
                    _, _ = ledger.Cancel(ctx, b.ID, user)
                }
            }
        }(user)
    }
    writers.Wait()
    close(stop)
    readers.Wait()

    assert.Empty(t, outOfRange)

    active := 0
    for user := uint64(1); user <= 8; user++ {
        list, err := ledger.ListByUser(ctx, user)
        require.NoError(t, err)
        for _, b := range list {
            if b.Active() {
                active++
            }
        }
    }
    n, err := ledger.AvailableSeats(ctx, showID)
    require.NoError(t, err)
    assert.Equal(t, total-active, n)
    assert.LessOrEqual(t, active, total)
}
