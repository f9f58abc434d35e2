package merge

import (
	"maps"
	"slices"
	"sync"
)

type stagedList struct {
	dicts []map[string]any
	gen   uint64
}

// staging holds converted dictionaries per entity name until a cycle commits.
type staging struct {
	mu      sync.Mutex
	entries map[string]stagedList
	gen     uint64
}

func newStaging() *staging {
	return &staging{entries: make(map[string]stagedList)}
}

// stage replaces the list staged for entity.
func (s *staging) stage(entity string, dicts []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.entries[entity] = stagedList{dicts: dicts, gen: s.gen}
}

// batch is a snapshot of the staging buffer taken at the start of a cycle.
type batch struct {
	entities []string
	lists    map[string]stagedList
}

func (b batch) empty() bool {
	return len(b.entities) == 0
}

func (b batch) size() int {
	n := 0
	for _, l := range b.lists {
		n += len(l.dicts)
	}
	return n
}

func (s *staging) snapshot() batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists := maps.Clone(s.entries)
	return batch{
		entities: slices.Sorted(maps.Keys(lists)),
		lists:    lists,
	}
}

// release drops the lists of a committed batch. Lists staged again while the
// cycle ran are kept for the next one.
func (s *staging) release(b batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for entity, l := range b.lists {
		if cur, ok := s.entries[entity]; ok && cur.gen == l.gen {
			delete(s.entries, entity)
		}
	}
}

// drain returns and clears the staged content.
func (s *staging) drain() map[string][]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]map[string]any, len(s.entries))
	for entity, l := range s.entries {
		out[entity] = l.dicts
	}
	clear(s.entries)
	return out
}

// counts returns the number of staged dictionaries per entity.
func (s *staging) counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.entries))
	for entity, l := range s.entries {
		out[entity] = len(l.dicts)
	}
	return out
}
