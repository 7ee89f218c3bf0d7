package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// DefaultDialTimeout bounds the TCP connect and AMQP handshake when the
// caller's context carries no deadline.
const DefaultDialTimeout = 5 * time.Second

// Publisher sends booking events to RabbitMQ.  It keeps one connection and
// channel open and redials lazily after the broker drops them.  Publish is
// safe for concurrent use; a caller waiting for another publish, or for the
// broker handshake, gives up when its context is done.
type Publisher struct {
    url string
    log *zap.Logger

    sem  chan struct{} // one-slot lock guarding conn and ch
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a publisher for url.  No connection is made until
// the first Publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    return &Publisher{url: url, log: log, sem: make(chan struct{}, 1)}
}

func (p *Publisher) lock(ctx context.Context) error {
    select {
    case p.sem <- struct{}{}:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (p *Publisher) unlock() { <-p.sem }

// dialTimeout is the time left before ctx's deadline, or
// DefaultDialTimeout when there is none.
func dialTimeout(ctx context.Context) (time.Duration, error) {
    deadline, ok := ctx.Deadline()
    if !ok {
        return DefaultDialTimeout, nil
    }
    d := time.Until(deadline)
    if d <= 0 {
        return 0, context.DeadlineExceeded
    }
    return d, nil
}

// channel returns an open channel, dialing and declaring both durable
// queues when needed.  Callers hold the lock.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    if p.conn == nil || p.conn.IsClosed() {
        d, err := dialTimeout(ctx)
        if err != nil {
            return nil, fmt.Errorf("dial: %w", err)
        }
        conn, err := amqp.DialConfig(p.url, amqp.Config{
            Heartbeat: 10 * time.Second,
            Locale:    "en_US",
            Dial:      amqp.DefaultDial(d),
        })
        if err != nil {
            return nil, fmt.Errorf("dial: %w", err)
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        return nil, fmt.Errorf("channel open: %w", err)
    }
    for _, q := range []string{QueueBookingConfirmed, QueueBookingCancelled} {
        // Durable so messages survive broker restarts.
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            _ = ch.Close()
            return nil, fmt.Errorf("queue declare %s: %w", q, err)
        }
    }
    p.ch = ch
    return ch, nil
}

// Publish marshals ev and publishes it as a persistent message to the
// queue named by ev.Type.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
    if ev.Type != QueueBookingConfirmed && ev.Type != QueueBookingCancelled {
        return fmt.Errorf("unknown event type %q", ev.Type)
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    if err := p.lock(ctx); err != nil {
        return fmt.Errorf("publisher busy: %w", err)
    }
    defer p.unlock()

    ch, err := p.channel(ctx)
    if err != nil {
        p.log.Warn("rabbitmq: unavailable", zap.Error(err))
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    uuid.NewString(),
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.String("queue", ev.Type), zap.Error(err))
        // force a fresh channel next time
        _ = ch.Close()
        p.ch = nil
        return err
    }
    return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
    p.sem <- struct{}{}
    defer p.unlock()
    var errs []error
    if p.ch != nil {
        errs = append(errs, p.ch.Close())
        p.ch = nil
    }
    if p.conn != nil {
        errs = append(errs, p.conn.Close())
        p.conn = nil
    }
    return errors.Join(errs...)
}
