package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSource(name string, index Index, err error) Source {
	return SourceFunc{Label: name, Fn: func(ctx context.Context) (Index, error) {
		return index, err
	}}
}

func TestIndexList(t *testing.T) {
	index := IndexList([]map[string]any{
		{"name": "Japan", "formed": int64(1974)},
		{"formed": int64(1980)},
		{"name": nil},
		{"name": "U2"},
	}, "name")

	assert.Len(t, index, 2)
	assert.Equal(t, int64(1974), index["Japan"]["formed"])
	assert.Contains(t, index, "U2")
}

func TestReconcile(t *testing.T) {
	stored := Index{
		"Japan": {"name": "Japan", "formed": int64(1974)},
		"U2":    {"name": "U2", "formed": int64(1976)},
		"Can":   {"name": "Can", "formed": int64(1968)},
	}
	snapshot := Index{
		"Japan":   {"name": "Japan", "formed": float64(1974)},
		"U2":      {"name": "U2", "formed": float64(1977), "label": "Island"},
		"Rainbow": {"name": "Rainbow"},
	}

	results, err := Reconcile(context.Background(), staticSource("store", stored, nil), staticSource("snapshot", snapshot, nil))
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "Can", results[0].ID)
	assert.True(t, results[0].StorePresent)
	assert.False(t, results[0].SnapshotPresent)

	assert.Equal(t, "Japan", results[1].ID)
	assert.True(t, results[1].InSync())

	assert.Equal(t, "Rainbow", results[2].ID)
	assert.False(t, results[2].StorePresent)

	assert.Equal(t, "U2", results[3].ID)
	assert.Equal(t, []string{
		"formed: store=1976 snapshot=1977",
		"label: store=<none> snapshot=Island",
	}, results[3].Mismatch)

	summary := Summarize(results)
	assert.Equal(t, Summary{Total: 4, InSync: 1, MissingStore: 1, MissingSnapshot: 1, Mismatched: 1}, summary)

	report := &Report{Results: results, Summary: summary}
	drifted := report.Drifted()
	assert.Len(t, drifted, 3)
}

func TestReconcile_ErrorHandling(t *testing.T) {
	tests := []struct {
		name        string
		storeErr    error
		snapshotErr error
		expectErr   string
	}{
		{
			name:      "Store load error",
			storeErr:  fmt.Errorf("db error"),
			expectErr: "failed to load store: db error",
		},
		{
			name:        "Snapshot load error",
			snapshotErr: fmt.Errorf("bucket error"),
			expectErr:   "failed to load snapshot: bucket error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(context.Background(),
				staticSource("store", Index{}, tt.storeErr),
				staticSource("snapshot", Index{}, tt.snapshotErr),
			)
			assert.EqualError(t, err, tt.expectErr)
		})
	}
}

func TestCompare_Empty(t *testing.T) {
	results := Compare(Index{}, Index{})
	assert.Empty(t, results)
	assert.Equal(t, Summary{}, Summarize(results))
}
