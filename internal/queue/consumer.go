package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Consumer listens on both booking queues and appends one line per event
// to <LogDir>/booking.log.
type Consumer struct {
    URL    string
    LogDir string
    Log    *zap.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures trigger a reconnect with exponential backoff capped at 30s;
// Run only returns once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("booking-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("booking-consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("booking-consumer: set QoS failed", zap.Error(err))
    }

    // done stops the forwarders when this loop returns for any reason
    done := make(chan struct{})
    defer close(done)

    merged := make(chan amqp.Delivery)
    for _, q := range []string{QueueBookingConfirmed, QueueBookingCancelled} {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        go forward(msgs, merged, done)
    }

    closed := ch.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("channel closed")
        case d := <-merged:
            if err := c.handleMessage(d.Body); err != nil {
                c.Log.Error("booking-consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// forward copies deliveries from msgs to out until msgs is closed or done
// is closed.
func forward(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}) {
    for d := range msgs {
        select {
        case out <- d:
        case <-done:
            return
        }
    }
}

func (c *Consumer) handleMessage(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    line, err := FormatLogLine(ev)
    if err != nil {
        return err
    }
    dir := c.LogDir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLogLine renders ev as a single human-friendly log line ending in
// a newline.
func FormatLogLine(ev BookingEvent) (string, error) {
    var verb string
    switch ev.Type {
    case QueueBookingConfirmed:
        verb = "Booking confirmed"
    case QueueBookingCancelled:
        verb = "Booking cancelled"
    default:
        return "", fmt.Errorf("unknown event type %q", ev.Type)
    }
    return fmt.Sprintf("[%s] %s | booking_id=%d | user_id=%d | show_id=%d | seat=%d | movie=%q | screen=%q | show_time=%s\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.BookingID, ev.UserID, ev.ShowID, ev.SeatNumber,
        ev.MovieTitle, ev.ScreenName, ev.ShowTime.UTC().Format(time.RFC3339)), nil
}
