package lock

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestLocker_LockAndUnlock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	locker := NewLocker(client)
	ctx := context.Background()

	unlock, err := locker.LockUser(ctx, "review_lock", 1)
	require.NoError(t, err)
	unlock()

	// 释放后可以再次获取
	unlock, err = locker.LockUser(ctx, "review_lock", 1)
	require.NoError(t, err)
	unlock()
}

func TestLocker_Busy(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	locker := NewLocker(client).WithTries(1)
	ctx := context.Background()

	unlock, err := locker.LockUser(ctx, "review_lock", 7)
	require.NoError(t, err)
	defer unlock()

	_, err = locker.LockUser(ctx, "review_lock", 7)
	assert.ErrorIs(t, err, ErrLockBusy)
}

func TestLocker_DifferentUsersIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	locker := NewLocker(client).WithTries(1)
	ctx := context.Background()

	unlockA, err := locker.LockUser(ctx, "review_lock", 1)
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.LockUser(ctx, "review_lock", 2)
	require.NoError(t, err)
	unlockB()
}
