package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btengine/internal/store"
	"btengine/internal/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRun_RoundTripsFills(t *testing.T) {
	s := openTestStore(t)

	snap := store.RunSnapshot{
		StartedAt:  "2026-01-01T00:00:00Z",
		FinishedAt: "2026-01-01T01:00:00Z",
		Fills: []types.Fill{
			{OrderID: "o1", Symbol: "BTCUSDT", Side: types.Buy, Quantity: 1, Price: 100, FeeUSDT: 0.05, EventTimeMs: 10, Liquidity: types.Taker},
			{OrderID: "o2", Symbol: "BTCUSDT", Side: types.Sell, Quantity: 0.5, Price: 105, FeeUSDT: 0.02, EventTimeMs: 20, Liquidity: types.Maker},
		},
		Positions: map[string]store.PositionSnapshot{
			"BTCUSDT": {Qty: 0.5, AvgPrice: 100},
		},
		RealizedPnLUSDT: 2.4,
		FeesPaidUSDT:    0.07,
	}

	runID, err := s.SaveRun(snap)
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	fills, err := s.LoadFills(runID)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, "o1", fills[0].OrderID)
	assert.Equal(t, types.Taker, fills[0].Liquidity)
	assert.Equal(t, types.Maker, fills[1].Liquidity)
}

func TestSaveRun_MultipleRunsGetDistinctIDs(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.SaveRun(store.RunSnapshot{StartedAt: "t0", FinishedAt: "t1"})
	require.NoError(t, err)
	id2, err := s.SaveRun(store.RunSnapshot{StartedAt: "t0", FinishedAt: "t1"})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}
