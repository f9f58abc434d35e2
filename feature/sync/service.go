package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"jsoncache/core/cacheerr"
	"jsoncache/core/casing"
	"jsoncache/core/merge"
	"jsoncache/core/reconcile"
	"jsoncache/core/serializer"
	"jsoncache/core/storage"
	"jsoncache/core/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrObjectNotFound is returned by reads of identifiers the store does not hold.
var ErrObjectNotFound = errors.New("object not found")

// SnapshotPrefix is where exported entity snapshots are written in the bucket.
const SnapshotPrefix = "snapshots/"

// snapshotTTL bounds how long a decoded snapshot is reused by Drift.
const snapshotTTL = 5 * time.Minute

// Service exposes the merge engine and read-back over the object store.
type Service struct {
	engine     *merge.Engine
	store      *store.Store
	serializer *serializer.Serializer
	casing     casing.Converter
	snapshots  *reconcile.Cache
	client     storage.Client
	bucket     string
	logger     *zap.Logger
	reads      singleflight.Group
}

// NewService creates a sync service. client may be nil when no bucket is configured.
func NewService(engine *merge.Engine, st *store.Store, client storage.Client, bucket string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := engine.Options()
	return &Service{
		engine:     engine,
		store:      st,
		serializer: serializer.New(opts.Casing, opts.DateFormat),
		casing:     casing.New(opts.Casing),
		snapshots:  reconcile.NewCache(snapshotTTL),
		client:     client,
		bucket:     bucket,
		logger:     logger,
	}
}

// Stage stages dicts for entity after checking the entity exists.
func (s *Service) Stage(entity string, dicts []map[string]any) error {
	if _, err := s.store.IdentifierAttribute(entity); err != nil {
		return err
	}
	s.engine.Stage(entity, dicts)
	return nil
}

// Apply runs a merge cycle and waits for it.
func (s *Service) Apply(ctx context.Context) (merge.Result, error) {
	return s.engine.Apply(context.Background()).Wait(ctx)
}

// ApplyAsync starts a merge cycle without waiting. Failures are logged.
func (s *Service) ApplyAsync() {
	f := s.engine.Apply(context.Background())
	go func() {
		<-f.Done()
		if err := f.Err(); err != nil {
			s.logger.Error("Background merge failed", zap.Error(err))
		}
	}()
}

// Pending returns the staged dictionary counts per entity.
func (s *Service) Pending() map[string]int {
	return s.engine.Pending()
}

// Discard drops everything staged and returns how much was dropped per entity.
func (s *Service) Discard() map[string]int {
	dropped := make(map[string]int)
	for entity, dicts := range s.engine.Drain() {
		dropped[entity] = len(dicts)
	}
	return dropped
}

// Object returns the serialized object with the given identifier.
// Concurrent reads of the same object share one lookup.
func (s *Service) Object(ctx context.Context, entity, id string) (map[string]any, error) {
	v, err, _ := s.reads.Do("object\x00"+entity+"\x00"+id, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		var (
			dict map[string]any
			err  error
		)
		main := s.store.Main()
		if perr := main.PerformAndWait(func() {
			var obj *store.Object
			obj, err = main.FetchByKey(ctx, entity, id)
			if err == nil && obj == nil {
				err = ErrObjectNotFound
			}
			if err == nil {
				dict = s.serializer.ToJSON(obj)
			}
		}); perr != nil {
			return nil, perr
		}
		return dict, err
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// Related returns the serialized objects on the far side of a relationship.
// A to-one relationship yields at most one object.
func (s *Service) Related(ctx context.Context, entity, id, relationship string) ([]map[string]any, error) {
	v, err, _ := s.reads.Do("related\x00"+entity+"\x00"+id+"\x00"+relationship, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		var (
			list []map[string]any
			err  error
		)
		main := s.store.Main()
		if perr := main.PerformAndWait(func() {
			list, err = s.related(ctx, main, entity, id, relationship)
		}); perr != nil {
			return nil, perr
		}
		return list, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]map[string]any), nil
}

func (s *Service) related(ctx context.Context, c *store.Context, entity, id, relationship string) ([]map[string]any, error) {
	obj, err := c.FetchByKey(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrObjectNotFound
	}
	rel, ok := obj.Entity().Relationship(relationship)
	if !ok {
		return nil, cacheerr.BadState(entity, fmt.Sprintf("no relationship %q", relationship))
	}

	if !rel.ToMany {
		target, err := c.Relationship(ctx, obj, relationship)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return []map[string]any{}, nil
		}
		return []map[string]any{s.serializer.ToJSON(target)}, nil
	}

	objs, err := c.Related(ctx, obj, relationship)
	if err != nil {
		return nil, err
	}
	return s.serializer.ToJSONList(objs), nil
}

// ImportBundle stages every mapped entity of a bundle object in the bucket and applies it.
func (s *Service) ImportBundle(ctx context.Context, objectName string, mapping Mapping) (merge.Result, error) {
	if s.client == nil {
		return merge.Result{}, fmt.Errorf("storage is not configured")
	}
	data, err := storage.ReadObject(ctx, s.client, s.bucket, objectName)
	if err != nil {
		return merge.Result{}, err
	}
	return s.ImportData(ctx, data, mapping)
}

// ImportData stages every mapped entity of a bundle document and applies it.
func (s *Service) ImportData(ctx context.Context, data []byte, mapping Mapping) (merge.Result, error) {
	bundle, err := LoadBundle(data, mapping)
	if err != nil {
		return merge.Result{}, err
	}
	for entity := range bundle {
		if _, err := s.store.IdentifierAttribute(entity); err != nil {
			return merge.Result{}, err
		}
	}
	for entity, dicts := range bundle {
		s.engine.Stage(entity, dicts)
	}
	s.logger.Info("Bundle staged", zap.Int("entities", len(bundle)))
	return s.Apply(ctx)
}

// Dump serializes every object of entity, ordered by identifier.
func (s *Service) Dump(ctx context.Context, entity string) ([]map[string]any, error) {
	var (
		list []map[string]any
		err  error
	)
	main := s.store.Main()
	if perr := main.PerformAndWait(func() {
		var objs []*store.Object
		if objs, err = main.FetchAll(ctx, entity); err == nil {
			list = s.serializer.ToJSONList(objs)
		}
	}); perr != nil {
		return nil, perr
	}
	return list, err
}

// Export writes every object of entity as a JSON array to the bucket and
// returns the object name and the number of objects written.
func (s *Service) Export(ctx context.Context, entity, objectName string) (string, int, error) {
	if s.client == nil {
		return "", 0, fmt.Errorf("storage is not configured")
	}
	objectName = snapshotName(entity, objectName)

	list, err := s.Dump(ctx, entity)
	if err != nil {
		return "", 0, err
	}

	data, err := json.Marshal(list)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode %s snapshot: %w", entity, err)
	}
	if err := storage.EnsureBucket(ctx, s.client, s.bucket, ""); err != nil {
		return "", 0, err
	}
	if err := storage.WriteObject(ctx, s.client, s.bucket, objectName, data, "application/json"); err != nil {
		return "", 0, err
	}
	s.snapshots.Invalidate(objectName)

	s.logger.Info("Snapshot exported",
		zap.String("entity", entity),
		zap.String("object", objectName),
		zap.Int("objects", len(list)),
	)
	return objectName, len(list), nil
}

// Snapshots lists the exported snapshot objects.
func (s *Service) Snapshots(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return storage.ListNames(ctx, s.client, s.bucket, SnapshotPrefix)
}

// Drift compares the stored objects of entity with an exported snapshot.
// objectName defaults to the snapshot Export writes for entity.
func (s *Service) Drift(ctx context.Context, entity, objectName string) (*reconcile.Report, error) {
	if s.client == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	idAttr, err := s.store.IdentifierAttribute(entity)
	if err != nil {
		return nil, err
	}
	idKey := s.casing.Convert(casing.ToExternal, idAttr, entity)
	objectName = snapshotName(entity, objectName)

	stored := reconcile.SourceFunc{Label: "store", Fn: func(ctx context.Context) (reconcile.Index, error) {
		list, err := s.Dump(ctx, entity)
		if err != nil {
			return nil, err
		}
		return reconcile.IndexList(list, idKey), nil
	}}
	results, err := reconcile.Reconcile(ctx, stored, s.snapshotSource(objectName, idKey))
	if err != nil {
		return nil, err
	}
	report := &reconcile.Report{
		Entity:   entity,
		Snapshot: objectName,
		Results:  results,
		Summary:  reconcile.Summarize(results),
	}
	s.logger.Info("Drift computed",
		zap.String("entity", entity),
		zap.String("object", objectName),
		zap.Int("total", report.Summary.Total),
		zap.Int("in_sync", report.Summary.InSync),
	)
	return report, nil
}

// Restore stages the snapshot version of every drifted object the snapshot
// holds and applies it. Objects only the store holds are left alone.
func (s *Service) Restore(ctx context.Context, report *reconcile.Report) (merge.Result, error) {
	idAttr, err := s.store.IdentifierAttribute(report.Entity)
	if err != nil {
		return merge.Result{}, err
	}
	index, err := s.snapshotSource(report.Snapshot, s.casing.Convert(casing.ToExternal, idAttr, report.Entity)).Load(ctx)
	if err != nil {
		return merge.Result{}, err
	}

	var dicts []map[string]any
	for _, res := range report.Drifted() {
		if dict, ok := index[res.ID]; ok && res.SnapshotPresent {
			dicts = append(dicts, dict)
		}
	}
	if len(dicts) == 0 {
		return merge.Result{}, nil
	}
	s.engine.Stage(report.Entity, dicts)
	s.logger.Info("Snapshot objects staged for restore",
		zap.String("entity", report.Entity),
		zap.Int("objects", len(dicts)),
	)
	return s.Apply(ctx)
}

func (s *Service) snapshotSource(objectName, idKey string) reconcile.Source {
	source := reconcile.SourceFunc{Label: "snapshot", Fn: func(ctx context.Context) (reconcile.Index, error) {
		data, err := storage.ReadObject(ctx, s.client, s.bucket, objectName)
		if err != nil {
			return nil, err
		}
		var list []map[string]any
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", objectName, err)
		}
		return reconcile.IndexList(list, idKey), nil
	}}
	return s.snapshots.Cached(objectName, source)
}

func snapshotName(entity, objectName string) string {
	if objectName == "" {
		return path.Join(SnapshotPrefix, entity+".json")
	}
	return objectName
}
