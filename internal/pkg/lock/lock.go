package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	goredis "github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"go.uber.org/zap"
)

const (
	DefaultExpiry     = 10 * time.Second
	DefaultTries      = 20
	DefaultRetryDelay = 50 * time.Millisecond
)

// ErrLockBusy 在重试次数内没有拿到锁
var ErrLockBusy = errors.New("lock is held by another request")

// Locker 基于 redsync 的按用户分布式锁
type Locker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
	delay  time.Duration
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: DefaultExpiry,
		tries:  DefaultTries,
		delay:  DefaultRetryDelay,
	}
}

// WithTries 覆盖重试次数
func (l *Locker) WithTries(tries int) *Locker {
	l.tries = tries
	return l
}

// LockUser 获取 scope:user:<id> 锁，返回的 unlock 必须调用
func (l *Locker) LockUser(ctx context.Context, scope string, userID int64) (func(), error) {
	name := fmt.Sprintf("%s:user:%d", scope, userID)
	mutex := l.rs.NewMutex(
		name,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.delay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	unlock := func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			zap.L().Warn("failed to release lock", zap.String("lock", name), zap.Error(err))
		}
	}
	return unlock, nil
}
