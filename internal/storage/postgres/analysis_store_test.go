package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

func testAnalysis(symbol string, createdAt int64) *domain.Analysis {
	return &domain.Analysis{
		ID:     uuid.NewString(),
		Symbol: symbol,
		Params: domain.AnalysisParams{
			Symbol:          symbol,
			LookbackMinutes: 60,
			IntervalSeconds: 60,
			Top:             5,
			MinChangePct:    0.2,
		},
		FromTimeMs: 1_700_000_000_000,
		ToTimeMs:   1_700_003_600_000,
		CreatedAt:  createdAt,
		Intervals: []domain.Interval{
			{
				Rank:        1,
				Symbol:      symbol,
				StartTimeMs: 1_700_000_000_000,
				EndTimeMs:   1_700_000_060_000,
				StartPrice:  100.0,
				EndPrice:    101.0,
				ChangePct:   1.0,
			},
		},
	}
}

func TestAnalysisStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalysisStore(pool)
	ctx := context.Background()

	a := testAnalysis("BTCUSDT", time.Now().UnixMilli())
	require.NoError(t, store.Insert(ctx, a))

	got, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Symbol, got.Symbol)
	assert.Equal(t, a.Params, got.Params)
	assert.Equal(t, a.FromTimeMs, got.FromTimeMs)
	assert.Equal(t, a.ToTimeMs, got.ToTimeMs)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
	require.Len(t, got.Intervals, 1)
	assert.Equal(t, a.Intervals[0].ChangePct, got.Intervals[0].ChangePct)
}

func TestAnalysisStore_Insert_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalysisStore(pool)
	ctx := context.Background()

	a := testAnalysis("BTCUSDT", time.Now().UnixMilli())
	require.NoError(t, store.Insert(ctx, a))

	err := store.Insert(ctx, a)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAnalysisStore_Insert_Invalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalysisStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Analysis{}), storage.ErrInvalidInput)
}

func TestAnalysisStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalysisStore(pool)

	_, err := store.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalysisStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalysisStore(pool)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	older := testAnalysis("BTCUSDT", now-3_600_000)
	newer := testAnalysis("ETHUSDT", now)

	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	// Newest first
	assert.Equal(t, newer.ID, infos[0].ID)
	assert.Equal(t, older.ID, infos[1].ID)
	assert.Equal(t, 1, infos[0].Intervals)
}

func TestAnalysisStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnalysisStore(pool)
	ctx := context.Background()

	a := testAnalysis("BTCUSDT", time.Now().UnixMilli())
	require.NoError(t, store.Insert(ctx, a))

	require.NoError(t, store.Delete(ctx, a.ID))

	_, err := store.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
