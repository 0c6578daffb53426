package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel catalog changes are announced on.
const DefaultChannel = "tasktracker:catalog"

// Reconnect backoff bounds for the change listener.
const (
	defaultRetryMin = time.Second
	defaultRetryMax = 30 * time.Second
)

// RedisNotifier announces catalog changes to other instances over Redis
// pub/sub and relays theirs to the local hub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
	log     *zap.Logger

	retryMin time.Duration
	retryMax time.Duration
}

// NewRedisNotifier connects to redisURL and verifies the connection.
func NewRedisNotifier(redisURL, channel string, logger *zap.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		origin:   uuid.NewString(),
		log:      logger,
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
	}, nil
}

// Publish announces a change. The payload is this instance's origin id so
// it can skip its own announcements.
func (n *RedisNotifier) Publish(ctx context.Context) error {
	return n.client.Publish(ctx, n.channel, n.origin).Err()
}

// Run relays announcements from other instances to onChange until ctx is
// done. It blocks. A lost or failed subscription is retried with
// exponential backoff; after a reconnect onChange is called once so
// changes missed while disconnected are picked up.
func (n *RedisNotifier) Run(ctx context.Context, onChange func(ctx context.Context)) {
	delay := n.retryMin
	reconnect := false
	for {
		subscribed, err := n.listen(ctx, onChange, reconnect)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			delay = n.retryMin
		}
		n.log.Warn("catalog change listener disconnected; retrying",
			zap.String("channel", n.channel),
			zap.Duration("backoff", delay),
			zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		reconnect = true
		if delay *= 2; delay > n.retryMax {
			delay = n.retryMax
		}
	}
}

// listen holds one subscription until it fails or ctx is done. subscribed
// reports whether the subscription was established.
func (n *RedisNotifier) listen(ctx context.Context, onChange func(ctx context.Context), reconnect bool) (subscribed bool, err error) {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	n.log.Info("catalog change listener started",
		zap.String("channel", n.channel),
		zap.Bool("reconnect", reconnect))
	if reconnect {
		onChange(ctx)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case m, ok := <-msgs:
			if !ok {
				return true, errors.New("subscription closed")
			}
			if m.Payload == n.origin {
				continue
			}
			onChange(ctx)
		}
	}
}

// Close releases the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
