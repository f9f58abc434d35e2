package reconcile

import "context"

// Index maps identifier strings to serialized objects.
type Index map[string]map[string]any

// Source loads one side of a reconciliation.
type Source interface {
	Name() string
	Load(ctx context.Context) (Index, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	Label string
	Fn    func(ctx context.Context) (Index, error)
}

// Name returns the label.
func (s SourceFunc) Name() string { return s.Label }

// Load calls Fn.
func (s SourceFunc) Load(ctx context.Context) (Index, error) { return s.Fn(ctx) }

// Result is the reconciliation output for a single identifier.
type Result struct {
	// ID is the identifier as a string.
	ID string `json:"id"`

	// StorePresent indicates whether the store holds the object.
	StorePresent bool `json:"store_present"`

	// SnapshotPresent indicates whether the snapshot holds the object.
	SnapshotPresent bool `json:"snapshot_present"`

	// Mismatch describes field differences, e.g. "formed: store=1976 snapshot=1977".
	Mismatch []string `json:"mismatch"`
}

// InSync reports whether both sides hold the object with equal fields.
func (r Result) InSync() bool {
	return r.StorePresent && r.SnapshotPresent && len(r.Mismatch) == 0
}

// Summary counts the outcomes of a report.
type Summary struct {
	Total           int `json:"total"`
	InSync          int `json:"in_sync"`
	MissingStore    int `json:"missing_store"`
	MissingSnapshot int `json:"missing_snapshot"`
	Mismatched      int `json:"mismatched"`
}

// Report is the full outcome of reconciling one entity.
type Report struct {
	Entity   string   `json:"entity"`
	Snapshot string   `json:"snapshot"`
	Results  []Result `json:"results"`
	Summary  Summary  `json:"summary"`
}

// Drifted returns the results that are not in sync.
func (r *Report) Drifted() []Result {
	out := make([]Result, 0)
	for _, res := range r.Results {
		if !res.InSync() {
			out = append(out, res)
		}
	}
	return out
}
