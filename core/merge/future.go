package merge

import (
	"context"
	"sync"
)

// Result summarizes a committed cycle.
type Result struct {
	// Entities is the number of entity names merged.
	Entities int `json:"entities"`
	// Objects is the number of distinct objects upserted.
	Objects int `json:"objects"`
	// Relationships is the number of to-one relationships wired.
	Relationships int `json:"relationships"`
}

// Future is the pending outcome of Apply. It completes exactly once.
type Future struct {
	done chan struct{}
	once sync.Once
	res  Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(res Result, err error) {
	f.once.Do(func() {
		f.res, f.err = res, err
		close(f.done)
	})
}

// Done is closed when the cycle has committed or aborted.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the cycle finishes or ctx is done. Cancelling ctx does not
// stop the cycle.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Err returns the cycle error, or nil while the cycle is still running.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}
