package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/repository"
	"github.com/qs3c/visionflow_server/internal/testutil"
)

func setupQuotaService(t *testing.T) (*QuotaService, *gorm.DB, time.Time) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewQuotaService(db, repository.NewSubscriptionRepository(db))

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	return svc, db, now
}

func TestQuotaService_NoSubscription(t *testing.T) {
	svc, db, _ := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)

	decision, err := svc.CheckAndConsume(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoSubscription, decision.Reason)
}

func TestQuotaService_ExpiredSubscriptionDenied(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithEndAt(now.Add(-time.Minute)))

	decision, err := svc.CheckAndConsume(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoSubscription, decision.Reason)
}

func TestQuotaService_FirstUseEver(t *testing.T) {
	svc, db, _ := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(3))

	decision, err := svc.CheckAndConsume(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Used)
	assert.Equal(t, 3, decision.Limit)
	assert.Equal(t, sub.ID, decision.SubscriptionID)
}

func TestQuotaService_ConsumeUntilLimit(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(3), testutil.WithUsage(1, now))

	for want := 2; want <= 3; want++ {
		decision, err := svc.CheckAndConsume(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, want, decision.Used)
	}

	decision, err := svc.CheckAndConsume(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonDailyLimitReached, decision.Reason)
	assert.Equal(t, 3, decision.Used)
	assert.Equal(t, 3, decision.Limit)
}

func TestQuotaService_Rollover(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	yesterday := startOfDay(now).Add(-time.Minute)
	sub := testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(5), testutil.WithUsage(5, yesterday))

	decision, err := svc.CheckAndConsume(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Used)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DailyUsedToday)
	require.NotNil(t, stored.LastUsageDate)
	assert.Equal(t, startOfDay(now), startOfDay(*stored.LastUsageDate))
}

// 限额为 limit 时，N 个并发调用恰好 limit 个成功
func TestQuotaService_ConcurrentCallsNeverExceedLimit(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	const (
		limit   = 5
		callers = 20
	)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(limit), testutil.WithUsage(0, now))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed []int
		denied  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := svc.CheckAndConsume(ctx, user.ID)
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if decision.Allowed {
				allowed = append(allowed, decision.Used)
			} else {
				assert.Equal(t, ReasonDailyLimitReached, decision.Reason)
				denied++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, allowed, limit)
	assert.Equal(t, callers-limit, denied)

	sort.Ints(allowed)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, allowed)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, stored.DailyUsedToday)
}

// 跨天后的并发调用只重置一次
func TestQuotaService_ConcurrentRolloverResetsOnce(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	const callers = 4

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	yesterday := startOfDay(now).Add(-time.Hour)
	sub := testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(10), testutil.WithUsage(10, yesterday))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		used []int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := svc.CheckAndConsume(ctx, user.ID)
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, decision.Allowed)

			mu.Lock()
			used = append(used, decision.Used)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(used)
	assert.Equal(t, []int{1, 2, 3, 4}, used)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, callers, stored.DailyUsedToday)
}

// 读取订阅之后另一次调用抢先消费了最后一次额度，本次必须看到数据库中的计数而不是读到的旧值
func TestQuotaService_StaleReadCannotOverspend(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(2), testutil.WithUsage(1, now))

	svc.afterLoad = func(tx *gorm.DB) error {
		ok, err := repository.NewSubscriptionRepository(tx).ConsumeSameDay(ctx, sub.ID, startOfDay(now), now)
		require.True(t, ok)
		return err
	}

	decision, err := svc.CheckAndConsume(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonDailyLimitReached, decision.Reason)
	assert.Equal(t, 2, decision.Used)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.DailyUsedToday)
}

// 读取时仍是昨天，另一次调用已经完成当天的重置，本次只能在其基础上加一
func TestQuotaService_StaleReadDoesNotResetTwice(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	yesterday := startOfDay(now).Add(-time.Hour)
	sub := testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(5), testutil.WithUsage(5, yesterday))

	svc.afterLoad = func(tx *gorm.DB) error {
		ok, err := repository.NewSubscriptionRepository(tx).RollOver(ctx, sub.ID, startOfDay(now), now)
		require.True(t, ok)
		return err
	}

	decision, err := svc.CheckAndConsume(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Used)

	stored, err := repository.NewSubscriptionRepository(db).GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.DailyUsedToday)
}

func TestQuotaService_UsersAreIndependent(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	full := testutil.TestUser(t, db)
	fresh := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, full.ID, testutil.WithDailyLimit(2), testutil.WithUsage(2, now))
	testutil.TestSubscription(t, db, fresh.ID, testutil.WithDailyLimit(2))

	decision, err := svc.CheckAndConsume(ctx, full.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	decision, err = svc.CheckAndConsume(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestQuotaService_FailsClosedOnStorageError(t *testing.T) {
	svc, db, _ := setupQuotaService(t)

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	decision, err := svc.CheckAndConsume(context.Background(), user.ID)
	assert.Error(t, err)
	require.NotNil(t, decision)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonUnavailable, decision.Reason)
}

func TestQuotaService_GetQuotaInfo(t *testing.T) {
	svc, db, now := setupQuotaService(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()

	t.Run("same day usage", func(t *testing.T) {
		user := testutil.TestUser(t, db)
		testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(10), testutil.WithUsage(4, now))

		info, err := svc.GetQuotaInfo(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, info.DailyUsed)
		assert.Equal(t, 6, info.DailyRemain)
		assert.Equal(t, formatTime(startOfDay(now).AddDate(0, 0, 1)), info.ResetAt)
	})

	t.Run("stale usage shows as reset", func(t *testing.T) {
		user := testutil.TestUser(t, db)
		testutil.TestSubscription(t, db, user.ID, testutil.WithDailyLimit(10), testutil.WithUsage(10, now.AddDate(0, 0, -1)))

		info, err := svc.GetQuotaInfo(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, info.DailyUsed)
		assert.Equal(t, 10, info.DailyRemain)
	})

	t.Run("no subscription", func(t *testing.T) {
		user := testutil.TestUser(t, db)

		_, err := svc.GetQuotaInfo(ctx, user.ID)
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
	})
}
