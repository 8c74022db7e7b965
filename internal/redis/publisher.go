// Package redis fans holder notifications out to Redis.
//
//	holder ──ResultChanged/ErrorOccurred──▶ Publisher
//	                                          │ PUBLISH {prefix}:{holder}  → live subscribers
//	                                          │ XADD    {prefix}:stream    → durable history
//
// Every notification becomes one Event, encoded as JSON.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chrisglass/windmobile/internal/holder"
)

// EventVersion is the current version of the event payload format.
const EventVersion = "1.0"

// streamMaxLen bounds the event stream.
const streamMaxLen = 10000

// namePattern validates holder names and prefixes used in Redis keys.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]{1,64}$`)

// Event is the payload published for every holder notification.
type Event struct {
	Version   string           `json:"version"`
	ID        string           `json:"id"`
	Type      holder.EventType `json:"type"` // "result", "error"
	Holder    string           `json:"holder"`
	Source    string           `json:"source,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp string           `json:"timestamp"`
	Data      json.RawMessage  `json:"data,omitempty"`
}

// Publisher publishes holder notifications to Redis Pub/Sub and Streams.
type Publisher struct {
	client  *redis.Client
	prefix  string
	stream  string
	timeout time.Duration

	// Debug callback (optional)
	debugFunc func(format string, args ...any)
	logFn     func(level, msg string)
}

// PublisherConfig holds configuration for the Redis publisher.
type PublisherConfig struct {
	// URL is the Redis connection URL
	URL string

	// Password is the Redis password (optional)
	Password string

	// ChannelPrefix prefixes every channel and the stream (default: "windmobile")
	ChannelPrefix string

	// Timeout bounds each publish (default: 5s)
	Timeout time.Duration

	// DebugFunc is an optional callback for debug logging
	DebugFunc func(format string, args ...any)

	// LogFn receives publish failures (optional)
	LogFn func(level, msg string)
}

// NewPublisher creates a new Redis event publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "windmobile"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if !namePattern.MatchString(cfg.ChannelPrefix) {
		return nil, fmt.Errorf("invalid channel prefix %q: must be 1-64 alphanumeric characters, dots, colons, hyphens, or underscores", cfg.ChannelPrefix)
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	return &Publisher{
		client:    redis.NewClient(opts),
		prefix:    cfg.ChannelPrefix,
		stream:    cfg.ChannelPrefix + ":stream",
		timeout:   cfg.Timeout,
		debugFunc: cfg.DebugFunc,
		logFn:     cfg.LogFn,
	}, nil
}

// debug logs a message if debug function is configured
func (p *Publisher) debug(format string, args ...any) {
	if p.debugFunc != nil {
		p.debugFunc(format, args...)
	}
}

// Ping verifies the connection to Redis.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Channel returns the Pub/Sub channel used for the named holder.
func (p *Publisher) Channel(name string) string {
	return p.prefix + ":" + name
}

// Stream returns the name of the event stream.
func (p *Publisher) Stream() string {
	return p.stream
}

// Publish sends ev to the holder's channel and appends it to the stream.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if !namePattern.MatchString(ev.Holder) {
		return fmt.Errorf("invalid holder name %q", ev.Holder)
	}

	jsonData, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := p.Channel(ev.Holder)
	p.debug("redis: publishing %s event %s to %s (%d bytes)", ev.Type, ev.ID, channel, len(jsonData))

	if err := p.client.Publish(ctx, channel, jsonData).Err(); err != nil {
		return fmt.Errorf("failed to publish to Pub/Sub: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"holder":    ev.Holder,
			"type":      string(ev.Type),
			"timestamp": ev.Timestamp,
			"payload":   string(jsonData),
		},
		MaxLen: streamMaxLen,
		Approx: true,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// NewEvent converts a holder event into a publishable Event with a fresh id.
func NewEvent[R any](ev holder.Event[R]) (Event, error) {
	out := Event{
		Version:   EventVersion,
		ID:        uuid.New().String(),
		Type:      ev.Type,
		Holder:    ev.Holder,
		Source:    ev.Source,
		Timestamp: ev.Timestamp.Format(time.RFC3339),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	if ev.Type == holder.EventResult {
		data, err := json.Marshal(ev.Result)
		if err != nil {
			return out, fmt.Errorf("failed to marshal result: %w", err)
		}
		out.Data = data
	}
	return out, nil
}

// Attach publishes every notification of h until the returned function is
// called. Failures are reported to the publisher's LogFn.
func Attach[P, R any](p *Publisher, h *holder.Holder[P, R]) (detach func()) {
	return holder.Watch(h, func(ev holder.Event[R]) {
		out, err := NewEvent(ev)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			err = p.Publish(ctx, out)
			cancel()
		}
		if err != nil && p.logFn != nil {
			p.logFn("warning", fmt.Sprintf("redis: %s: %v", ev.Holder, err))
		}
	})
}
