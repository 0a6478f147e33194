// Package locking provides a best-effort redis mutex used to fence billing
// finalization across instances. The database status guard is the real
// arbiter; this lock only shortcuts doomed transactions. When redis is not
// configured the locker is nil and every TryLock succeeds.
package locking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by somebody else is never released from here.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Locker struct {
	client *redis.Client
	log    *zap.Logger
}

func NewLocker(client *redis.Client, log *zap.Logger) *Locker {
	return &Locker{client: client, log: log.Named("locking")}
}

// TryLock attempts to take key for ttl. It returns ok=false when somebody
// else holds it. The returned release func is always safe to call.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	noop := func() {}
	if l == nil || l.client == nil {
		return noop, true, nil
	}

	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, false, nil
	}

	release = func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}
