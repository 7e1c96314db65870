// Package redis implements the Redis-backed notification queue and
// reminder deduplication for the rector task bot.
//
// Key components:
//   - Queue: notification delivery queue (LPUSH producer, BRPOP consumer)
//   - Dedupe: once-per-window marks for deadline reminders (SET NX EX)
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	// Must exceed BlockTimeout for BRPOP to work.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration

	// BlockTimeout is how long Dequeue blocks waiting for an item
	// before re-checking the context.
	BlockTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Second,
		BlockTimeout: 5 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrQueueConnection is returned when the Redis connection fails.
	ErrQueueConnection = errors.New("redis queue: connection failed")

	// ErrQueueClosed is returned when operating on a closed queue.
	ErrQueueClosed = errors.New("redis queue: closed")

	// ErrQueueSerialization is returned when encoding/decoding fails.
	ErrQueueSerialization = errors.New("redis queue: serialization failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

// Key prefixes for namespacing Redis keys.
const (
	// KeyNotificationQueue is the list key holding pending notifications.
	KeyNotificationQueue = "notifications:queue"

	// PrefixReminderDedupe is the prefix for reminder dedupe marks.
	PrefixReminderDedupe = "reminder:sent:"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQueueConnection, err)
	}

	return client, nil
}

// NewClientFromURL creates a Redis client from a connection URL.
func NewClientFromURL(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueConnection, err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQueueConnection, err)
	}

	return client, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// envelope is the wire format for queued notifications.
type envelope struct {
	ID          string                           `json:"id"`
	Type        string                           `json:"type"`
	RecipientID int64                            `json:"recipient_id"`
	Priority    int                              `json:"priority"`
	Message     string                           `json:"message"`
	TaskID      string                           `json:"task_id,omitempty"`
	Buttons     [][]notification.InlineButton    `json:"buttons,omitempty"`
	RetryCount  int                              `json:"retry_count"`
	MaxRetries  int                              `json:"max_retries"`
	CreatedAt   time.Time                        `json:"created_at"`
}

// Queue implements notification.Queue on top of a Redis list.
// Producers LPUSH, the delivery worker BRPOPs: FIFO per queue.
type Queue struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
	closed       bool
}

// NewQueue creates a Redis-backed notification queue.
func NewQueue(client *redis.Client, cfg Config) *Queue {
	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	return &Queue{
		client:       client,
		key:          KeyNotificationQueue,
		blockTimeout: blockTimeout,
	}
}

// Enqueue pushes a notification onto the queue.
func (q *Queue) Enqueue(ctx context.Context, n *notification.Notification) error {
	if q.closed {
		return ErrQueueClosed
	}

	if err := n.MarkQueued(); err != nil {
		return err
	}

	data, err := json.Marshal(envelope{
		ID:          n.ID.String(),
		Type:        n.Type.String(),
		RecipientID: n.RecipientID.Int64(),
		Priority:    int(n.Priority),
		Message:     n.Message,
		TaskID:      n.TaskID.String(),
		Buttons:     n.Buttons,
		RetryCount:  n.RetryCount,
		MaxRetries:  n.MaxRetries,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueSerialization, err)
	}

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}

// Dequeue blocks until a notification arrives or the context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*notification.Notification, error) {
	for {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := q.client.BRPop(ctx, q.blockTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timeout, re-check context
			}
			return nil, fmt.Errorf("failed to dequeue notification: %w", err)
		}

		// BRPop returns [key, value]
		if len(res) != 2 {
			continue
		}

		return decodeEnvelope([]byte(res[1]))
	}
}

// Close marks the queue closed. The Redis client itself is shared and
// closed by the owner.
func (q *Queue) Close() error {
	q.closed = true
	return nil
}

// Len returns the current queue depth.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func decodeEnvelope(data []byte) (*notification.Notification, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueSerialization, err)
	}

	n := &notification.Notification{
		ID:          notification.NotificationID(env.ID),
		Type:        notification.NotificationType(env.Type),
		RecipientID: shared.TelegramID(env.RecipientID),
		Priority:    notification.Priority(env.Priority),
		Status:      notification.DeliveryQueued,
		Message:     env.Message,
		TaskID:      shared.TaskID(env.TaskID),
		Buttons:     env.Buttons,
		RetryCount:  env.RetryCount,
		MaxRetries:  env.MaxRetries,
		CreatedAt:   env.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}

	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER DEDUPE
// ══════════════════════════════════════════════════════════════════════════════

// Dedupe implements notification.Deduplicator with SET NX EX marks.
type Dedupe struct {
	client *redis.Client
	prefix string
}

// NewDedupe creates a Redis-backed deduplicator.
func NewDedupe(client *redis.Client) *Dedupe {
	return &Dedupe{
		client: client,
		prefix: PrefixReminderDedupe,
	}
}

// MarkOnce returns true the first time key is seen within ttl.
func (d *Dedupe) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder: %w", err)
	}
	return ok, nil
}
