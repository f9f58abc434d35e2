package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// IndexList keys each dict by the string form of its idKey value. Dicts
// without that key are skipped.
func IndexList(list []map[string]any, idKey string) Index {
	index := make(Index, len(list))
	for _, dict := range list {
		id, ok := dict[idKey]
		if !ok || id == nil {
			continue
		}
		index[fmt.Sprint(id)] = dict
	}
	return index
}

// Reconcile loads both sources concurrently and compares them key by key.
func Reconcile(ctx context.Context, stored, snapshot Source) ([]Result, error) {
	var (
		storeIndex    Index
		snapshotIndex Index
		storeErr      error
		snapshotErr   error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		storeIndex, storeErr = stored.Load(ctx)
	}()
	go func() {
		defer wg.Done()
		snapshotIndex, snapshotErr = snapshot.Load(ctx)
	}()
	wg.Wait()

	if storeErr != nil {
		return nil, fmt.Errorf("failed to load %s: %w", stored.Name(), storeErr)
	}
	if snapshotErr != nil {
		return nil, fmt.Errorf("failed to load %s: %w", snapshot.Name(), snapshotErr)
	}

	return Compare(storeIndex, snapshotIndex), nil
}

// Compare builds one result per key in the union of both indices, sorted by key.
func Compare(storeIndex, snapshotIndex Index) []Result {
	union := make(map[string]struct{}, len(storeIndex)+len(snapshotIndex))
	for key := range storeIndex {
		union[key] = struct{}{}
	}
	for key := range snapshotIndex {
		union[key] = struct{}{}
	}

	results := make([]Result, 0, len(union))
	for key := range union {
		stored, inStore := storeIndex[key]
		snap, inSnapshot := snapshotIndex[key]
		result := Result{
			ID:              key,
			StorePresent:    inStore,
			SnapshotPresent: inSnapshot,
			Mismatch:        []string{},
		}
		if inStore && inSnapshot {
			result.Mismatch = compareFields(stored, snap)
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// Summarize counts the results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case !r.StorePresent:
			s.MissingStore++
		case !r.SnapshotPresent:
			s.MissingSnapshot++
		case len(r.Mismatch) > 0:
			s.Mismatched++
		default:
			s.InSync++
		}
	}
	return s
}

// compareFields compares values by their printed form, since snapshot numbers
// decode as float64 while stored integers stay int64.
func compareFields(stored, snap map[string]any) []string {
	keys := make(map[string]struct{}, len(stored)+len(snap))
	for k := range stored {
		keys[k] = struct{}{}
	}
	for k := range snap {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	mismatch := []string{}
	for _, k := range sorted {
		a, b := printed(stored, k), printed(snap, k)
		if a != b {
			mismatch = append(mismatch, fmt.Sprintf("%s: store=%s snapshot=%s", k, a, b))
		}
	}
	return mismatch
}

func printed(dict map[string]any, key string) string {
	v, ok := dict[key]
	if !ok || v == nil {
		return "<none>"
	}
	return fmt.Sprint(v)
}
