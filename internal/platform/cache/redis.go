package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Options describes one Redis endpoint shared by the HTTP server and the worker.
type Options struct {
	Addr        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

func (o Options) redis() *redis.Options {
	return &redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

// AsynqOpts returns the same endpoint in the form asynq expects.
func (o Options) AsynqOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

// New creates a new Redis client and verifies it answers PING.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(opts.redis())

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}

	return client, nil
}

// Check adapts a client into a readiness probe.
func Check(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("platform/cache: client not configured")
		}
		return client.Ping(ctx).Err()
	}
}
