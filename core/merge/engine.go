package merge

import (
	"context"
	"sync"

	"jsoncache/core/cacheerr"
	"jsoncache/core/casing"
	"jsoncache/core/store"

	"go.uber.org/zap"
)

// Backend provides the contexts a cycle runs in. *store.Store implements it.
type Backend interface {
	Main() *store.Context
	NewChildContext() (*store.Context, error)
}

var _ Backend = (*store.Store)(nil)

// Engine stages dictionaries and merges them into a Backend.
type Engine struct {
	backend   Backend
	opts      Options
	converter casing.Converter
	logger    *zap.Logger

	staging *staging
	// cycle serializes Apply calls.
	cycle sync.Mutex
}

// New creates an engine over backend.
func New(backend Backend, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Engine{
		backend:   backend,
		opts:      opts,
		converter: casing.New(opts.Casing),
		logger:    logger,
		staging:   newStaging(),
	}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Stage converts dicts to internal keys and stages them for entity, replacing
// anything staged for entity before.
func (e *Engine) Stage(entity string, dicts []map[string]any) {
	converted := make([]map[string]any, 0, len(dicts))
	for _, d := range dicts {
		converted = append(converted, e.converter.ConvertMap(casing.FromExternal, d, entity))
	}
	e.staging.stage(entity, converted)
	e.logger.Debug("Staged dictionaries", zap.String("entity", entity), zap.Int("staged", len(converted)))
}

// StageOne stages a single dictionary for entity.
func (e *Engine) StageOne(entity string, dict map[string]any) {
	e.Stage(entity, []map[string]any{dict})
}

// Pending returns the number of staged dictionaries per entity.
func (e *Engine) Pending() map[string]int {
	return e.staging.counts()
}

// Drain returns and clears the staged dictionaries, keyed by entity.
func (e *Engine) Drain() map[string][]map[string]any {
	return e.staging.drain()
}

// Apply merges everything staged so far. It returns immediately; the cycle
// runs in the background and cycles never overlap.
func (e *Engine) Apply(ctx context.Context) *Future {
	f := newFuture()
	go func() {
		f.complete(e.apply(ctx))
	}()
	return f
}

func (e *Engine) apply(ctx context.Context) (Result, error) {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	var main *store.Context
	if e.backend != nil {
		main = e.backend.Main()
	}
	if main == nil {
		return Result{}, cacheerr.StoreUnavailable()
	}

	b := e.staging.snapshot()
	if b.empty() {
		return Result{}, nil
	}
	log := e.logger.With(zap.Strings("entities", b.entities), zap.Int("staged", b.size()))
	log.Debug("Merge cycle started")

	child, err := e.backend.NewChildContext()
	if err != nil {
		return Result{}, err
	}
	defer child.Close()

	var (
		res      Result
		cycleErr error
	)
	if err := child.PerformAndWait(func() {
		res, cycleErr = e.merge(ctx, child, b)
	}); err != nil {
		return Result{}, err
	}
	if cycleErr != nil {
		log.Warn("Merge cycle aborted", zap.Error(cycleErr))
		return Result{}, cycleErr
	}

	if err := main.PerformAndWait(func() {
		cycleErr = main.Save(ctx)
	}); err != nil {
		return Result{}, err
	}
	if cycleErr != nil {
		log.Warn("Merge cycle aborted in main save", zap.Error(cycleErr))
		return Result{}, cycleErr
	}

	e.staging.release(b)
	log.Info("Merge cycle committed",
		zap.Int("objects", res.Objects),
		zap.Int("relationships", res.Relationships),
	)
	return res, nil
}

// merge runs the upsert and resolve passes in a, then saves a.
func (e *Engine) merge(ctx context.Context, a store.Adapter, b batch) (Result, error) {
	ix := newIndex()
	if err := upsert(ctx, a, b, ix); err != nil {
		a.Rollback()
		return Result{}, err
	}
	wired, err := resolve(ctx, a, ix)
	if err != nil {
		a.Rollback()
		return Result{}, err
	}
	if err := a.Save(ctx); err != nil {
		return Result{}, err
	}
	return Result{
		Entities:      len(b.entities),
		Objects:       len(ix.order),
		Relationships: wired,
	}, nil
}
