package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scamwatch/reportbot/internal/models"
)

func TestJobsRepository_DueOneShots(t *testing.T) {
	db := testDB(t)
	repo := NewJobsRepository(db)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due := &models.ScheduledJob{Kind: models.JobOneShot, RunAt: &past, Recipient: "@alice", Body: "hi"}
	notDue := &models.ScheduledJob{Kind: models.JobOneShot, RunAt: &future, Recipient: "@bob", Body: "hi"}
	recurring := &models.ScheduledJob{Kind: models.JobRecurring, Interval: models.IntervalDaily, Recipient: "@carol", Body: "hi"}

	require.NoError(t, repo.Create(ctx, due))
	require.NoError(t, repo.Create(ctx, notDue))
	require.NoError(t, repo.Create(ctx, recurring))

	jobs, err := repo.DueOneShots(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, due.ID, jobs[0].ID)

	// fired jobs are deleted
	require.NoError(t, repo.Delete(ctx, due.ID))
	jobs, err = repo.DueOneShots(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, jobs)

	rec, err := repo.Recurring(ctx)
	require.NoError(t, err)
	require.Len(t, rec, 1)
	assert.Equal(t, recurring.ID, rec[0].ID)
}

func TestJobsRepository_CreateValidates(t *testing.T) {
	db := testDB(t)
	repo := NewJobsRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &models.ScheduledJob{Kind: models.JobOneShot, Recipient: "@alice"})
	assert.ErrorIs(t, err, models.ErrJobMissingRunAt)
}

func TestUploadsRepository_TokenLookup(t *testing.T) {
	db := testDB(t)
	repo := NewUploadsRepository(db)
	ctx := context.Background()

	up := &models.SessionUpload{Path: "/uploads/acc.session", Kind: models.UploadFile, UploadedBy: 42}
	require.NoError(t, repo.Create(ctx, up))
	require.NotEmpty(t, up.Token)

	got, err := repo.ByToken(ctx, up.Token)
	require.NoError(t, err)
	assert.Equal(t, up.Path, got.Path)

	_, err = repo.ByToken(ctx, "ffffffffff")
	assert.ErrorIs(t, err, ErrNotFound)

	paths, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/acc.session"}, paths)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
