package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlesRepository_Upsert(t *testing.T) {
	db := testDB(t)
	repo := NewHandlesRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "@BadActor1", 777))

	rows, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "badactor1", rows[0].Handle, "handle is stored normalized")
	assert.Equal(t, int64(777), rows[0].ResolvedID)
	assert.Equal(t, 1, rows[0].ReportCount)

	// second report against the same handle bumps the count
	require.NoError(t, repo.Upsert(ctx, "badactor1", 0))
	rows, err = repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ReportCount)
	assert.Equal(t, int64(777), rows[0].ResolvedID, "unresolved upsert keeps prior id")
}

func TestHandlesRepository_MarkChecked(t *testing.T) {
	db := testDB(t)
	repo := NewHandlesRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "@badactor1", 777))
	require.NoError(t, repo.MarkChecked(ctx, "@badactor1", 888))

	rows, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(888), rows[0].ResolvedID)
	assert.False(t, rows[0].CheckedAt.IsZero())

	err = repo.MarkChecked(ctx, "@unknown", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"@BadActor1", "badactor1"},
		{"badactor1", "badactor1"},
		{"@UPPER_case", "upper_case"},
	}
	for _, tt := range tests {
		if got := NormalizeHandle(tt.in); got != tt.want {
			t.Errorf("NormalizeHandle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
