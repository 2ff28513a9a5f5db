// Package throttle tembel tetiklenen işleri süreli bir anahtar kilidiyle seyreltir.
package throttle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultKey = "low-stock-scan-lock"

// Locker "yoksa ekle, süreyle" işlemini atomik olarak sağlar.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Throttle struct {
	locker Locker
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func New(locker Locker, key string, ttl time.Duration, logger *zap.Logger) *Throttle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttle{locker: locker, key: key, ttl: ttl, logger: logger}
}

// Allow pencere başına yalnızca bir çağırana true döner. Kilit hatası "alınamadı" sayılır.
func (t *Throttle) Allow(ctx context.Context) bool {
	ok, err := t.locker.Acquire(ctx, t.key, t.ttl)
	if err != nil {
		t.logger.Warn("throttle lock failed", zap.String("key", t.key), zap.Error(err))
		return false
	}
	return ok
}

func (t *Throttle) TTL() time.Duration {
	return t.ttl
}
