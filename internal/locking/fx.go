package locking

import (
	"context"

	"github.com/masaladesk/masaladesk/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("locking",
	fx.Provide(New),
)

// New builds the locker when redis is configured and returns nil otherwise.
// Callers treat a nil locker as always-acquired.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Locker, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewLocker(client, log), nil
}
