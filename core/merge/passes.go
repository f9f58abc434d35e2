package merge

import (
	"context"

	"jsoncache/core/cacheerr"
	"jsoncache/core/store"
)

type indexEntry struct {
	obj  *store.Object
	dict map[string]any
}

// index maps the keys upserted in a cycle to their objects and source dictionaries.
type index struct {
	entries map[store.Key]*indexEntry
	order   []store.Key
}

func newIndex() *index {
	return &index{entries: make(map[store.Key]*indexEntry)}
}

func (ix *index) put(key store.Key, obj *store.Object, dict map[string]any) {
	if e, ok := ix.entries[key]; ok {
		e.obj, e.dict = obj, dict
		return
	}
	ix.entries[key] = &indexEntry{obj: obj, dict: dict}
	ix.order = append(ix.order, key)
}

func (ix *index) get(key store.Key) (*store.Object, bool) {
	e, ok := ix.entries[key]
	if !ok {
		return nil, false
	}
	return e.obj, true
}

// upsert applies every staged dictionary to a fetched or inserted object.
func upsert(ctx context.Context, a store.Adapter, b batch, ix *index) error {
	for _, entity := range b.entities {
		idAttr, err := a.IdentifierAttribute(entity)
		if err != nil {
			return err
		}

		for _, dict := range b.lists[entity].dicts {
			id, ok := dict[idAttr]
			if !ok || id == nil {
				return cacheerr.BadState(entity, "missing identifier")
			}
			key, err := a.KeyFor(entity, id)
			if err != nil {
				return err
			}

			obj, err := a.FetchByKey(ctx, entity, key.ID)
			if err != nil {
				return err
			}
			if obj == nil {
				if obj, err = a.InsertNew(entity); err != nil {
					return err
				}
			}
			if err := a.SetAttributes(obj, dict); err != nil {
				return err
			}
			ix.put(key, obj, dict)
		}
	}
	return nil
}

// resolve wires the to-one relationships named in the indexed dictionaries.
// It returns the number of relationships set.
func resolve(ctx context.Context, a store.Adapter, ix *index) (int, error) {
	wired := 0
	for _, key := range ix.order {
		entry := ix.entries[key]
		for _, rel := range a.RelationshipsOf(entry.obj) {
			if rel.ToMany {
				continue
			}
			raw, ok := entry.dict[rel.Name]
			if !ok || raw == nil {
				continue
			}
			targetID, err := targetIdentifier(a, rel.Destination, raw)
			if err != nil {
				return wired, err
			}
			if targetID == nil {
				continue
			}
			targetKey, err := a.KeyFor(rel.Destination, targetID)
			if err != nil {
				return wired, err
			}

			target, ok := ix.get(targetKey)
			if !ok {
				target, err = a.FetchByKey(ctx, rel.Destination, targetKey.ID)
				if err != nil {
					return wired, err
				}
				if target == nil {
					continue
				}
			}
			if err := a.SetRelationship(entry.obj, rel.Name, target); err != nil {
				return wired, err
			}
			wired++
		}
	}
	return wired, nil
}

// targetIdentifier reads a relationship value, which is either the target's
// identifier or a nested dictionary carrying it.
func targetIdentifier(a store.Adapter, destination string, raw any) (any, error) {
	nested, ok := raw.(map[string]any)
	if !ok {
		return raw, nil
	}
	idAttr, err := a.IdentifierAttribute(destination)
	if err != nil {
		return nil, err
	}
	return nested[idAttr], nil
}
