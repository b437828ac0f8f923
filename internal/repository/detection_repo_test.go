package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/testutil"
)

func TestDetectionRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewDetectionRepository(db)
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID)

	job := &model.DetectionJob{
		UserID:         user.ID,
		SubscriptionID: sub.ID,
		ImageURL:       "https://cdn.example.com/a.jpg",
		Status:         model.DetectionStatusQueued,
	}
	require.NoError(t, repo.Create(ctx, job))
	assert.NotZero(t, job.ID)

	found, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DetectionStatusQueued, found.Status)
	assert.False(t, found.IsFinished())
}

func TestDetectionRepository_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewDetectionRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID)
	otherSub := testutil.TestSubscription(t, db, other.ID)

	now := time.Now().UTC()
	old := testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithObjectName("dog"), testutil.WithCreatedAt(now.AddDate(0, 0, -3)))
	testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithObjectName("cat"), testutil.WithCreatedAt(now.Add(-time.Hour)))
	latest := testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithObjectName("hotdog"), testutil.WithCreatedAt(now))
	testutil.TestDetection(t, db, other.ID, otherSub.ID)

	t.Run("pages newest first", func(t *testing.T) {
		jobs, total, err := repo.ListByUser(ctx, user.ID, DetectionFilter{}, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, jobs, 2)
		assert.Equal(t, latest.ID, jobs[0].ID)

		jobs, _, err = repo.ListByUser(ctx, user.ID, DetectionFilter{}, 2, 2)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, old.ID, jobs[0].ID)
	})

	t.Run("search by object name", func(t *testing.T) {
		jobs, total, err := repo.ListByUser(ctx, user.ID, DetectionFilter{Search: "dog"}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, jobs, 2)
	})

	t.Run("date range", func(t *testing.T) {
		from := now.AddDate(0, 0, -1)
		jobs, total, err := repo.ListByUser(ctx, user.ID, DetectionFilter{From: &from}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, jobs, 2)

		to := now.AddDate(0, 0, -2)
		jobs, _, err = repo.ListByUser(ctx, user.ID, DetectionFilter{To: &to}, 1, 20)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, old.ID, jobs[0].ID)
	})
}

func TestDetectionRepository_DeleteByUser_OwnerScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewDetectionRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID)
	otherSub := testutil.TestSubscription(t, db, other.ID)

	mine := testutil.TestDetection(t, db, user.ID, sub.ID)
	theirs := testutil.TestDetection(t, db, other.ID, otherSub.ID)

	deleted, err := repo.DeleteByUser(ctx, user.ID, []int64{mine.ID, theirs.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, theirs.ID)
	assert.NoError(t, err)

	deleted, err = repo.DeleteByUser(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDetectionRepository_StatusTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewDetectionRepository(db)
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID)
	job := testutil.TestDetection(t, db, user.ID, sub.ID,
		testutil.WithDetectionStatus(model.DetectionStatusQueued), testutil.WithObjectName(""))

	now := time.Now().UTC()
	claimed, err := repo.MarkProcessing(ctx, job.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// 第二个 worker 领取同一条记录失败
	claimed, err = repo.MarkProcessing(ctx, job.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, repo.MarkCompleted(ctx, job.ID, "cat", "keep it fed", "https://cdn.example.com/h.jpg", now))
	found, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DetectionStatusCompleted, found.Status)
	assert.Equal(t, "cat", found.ObjectName)
	require.NotNil(t, found.StartedAt)
	require.NotNil(t, found.CompletedAt)

	failed := testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithDetectionStatus(model.DetectionStatusProcessing))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, "inference timeout", now))
	found, err = repo.GetByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DetectionStatusFailed, found.Status)
	assert.Equal(t, "inference timeout", found.ErrorMessage)
	assert.True(t, found.IsFinished())
}

func TestDetectionRepository_Counts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewDetectionRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	idle := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID)
	otherSub := testutil.TestSubscription(t, db, other.ID)

	now := time.Now().UTC()
	testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithObjectName("cat"))
	testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithObjectName("cat"))
	testutil.TestDetection(t, db, user.ID, sub.ID, testutil.WithObjectName("dog"), testutil.WithCreatedAt(now.AddDate(0, 0, -40)))
	testutil.TestDetection(t, db, user.ID, sub.ID,
		testutil.WithDetectionStatus(model.DetectionStatusQueued), testutil.WithObjectName(""))
	testutil.TestDetection(t, db, other.ID, otherSub.ID)

	count, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	byUser, err := repo.CountByUsers(ctx, []int64{user.ID, other.ID, idle.ID})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{user.ID: 4, other.ID: 1}, byUser)

	top, err := repo.TopObjects(ctx, user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []ObjectCount{{ObjectName: "cat", Count: 2}, {ObjectName: "dog", Count: 1}}, top)

	times, err := repo.CreatedSince(ctx, user.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Len(t, times, 3)
}
