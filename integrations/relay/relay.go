package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tonaffiliate/core/events"
	"tonaffiliate/core/types"
	"tonaffiliate/observability"
)

const (
	defaultMaxAttempts = 5
	defaultMinBackoff  = 100 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
	defaultQueueSize   = 1024
	publishTimeout     = 5 * time.Second
)

// Publisher delivers one payload to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher publishes through client.
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// Connect accepts either a redis:// URL or a host:port address.
func Connect(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}), nil
}

// Relay forwards committed ledger events to a pub/sub channel. Emit never
// blocks the ledger: events are queued and a worker publishes them with
// retry and exponential backoff. When the queue is full the event is dropped.
type Relay struct {
	publisher   Publisher
	channel     string
	logger      *slog.Logger
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan []byte
	wg     sync.WaitGroup
}

// Option mutates relay configuration.
type Option func(*Relay)

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(r *Relay) {
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			r.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			r.maxBackoff = maxBackoff
		}
	}
}

// WithQueueSize bounds the number of undelivered events.
func WithQueueSize(size int) Option {
	return func(r *Relay) {
		if size > 0 {
			r.queue = make(chan []byte, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a relay and spawns the worker goroutine.
func New(publisher Publisher, channel string, opts ...Option) (*Relay, error) {
	if publisher == nil {
		return nil, errors.New("relay: publisher required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("relay: channel required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		publisher:   publisher,
		channel:     channel,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan []byte, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.worker()
	return r, nil
}

// Close stops the relay and waits for the inflight publish to finish.
// Queued events are discarded.
func (r *Relay) Close() {
	if r == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

// Emit implements events.Emitter.
func (r *Relay) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	payload, err := json.Marshal(delivery{DeliveryID: uuid.NewString(), Event: wireEvent(evt)})
	if err != nil {
		r.logger.Warn("relay: encode event", slog.String("type", evt.EventType()), slog.Any("error", err))
		return
	}
	select {
	case <-r.ctx.Done():
		return
	default:
	}
	select {
	case r.queue <- payload:
	default:
		observability.Events().RecordPublished(false)
		r.logger.Warn("relay: queue full, dropping event", slog.String("type", evt.EventType()))
	}
}

// delivery is the published payload. DeliveryID lets subscribers drop
// duplicates produced by retries.
type delivery struct {
	DeliveryID string `json:"deliveryId"`
	*types.Event
}

// wireEvent returns the published form of evt.
func wireEvent(evt events.Event) *types.Event {
	if env, ok := evt.(interface{ Event() *types.Event }); ok && env.Event() != nil {
		return env.Event()
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

func (r *Relay) worker() {
	defer r.wg.Done()
	for {
		select {
		case payload := <-r.queue:
			r.process(payload)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Relay) process(payload []byte) {
	attempt := 0
	backoff := r.minBackoff
	for {
		attempt++
		ctx, cancel := context.WithTimeout(r.ctx, publishTimeout)
		err := r.publisher.Publish(ctx, r.channel, payload)
		cancel()
		if err == nil {
			observability.Events().RecordPublished(true)
			return
		}
		if attempt >= r.maxAttempts {
			observability.Events().RecordPublished(false)
			r.logger.Warn("relay: publish failed", slog.Int("attempts", attempt), slog.Any("error", err))
			return
		}
		select {
		case <-time.After(backoff):
		case <-r.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, r.maxBackoff)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	if next < current {
		return max
	}
	return next
}
