package store

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of the Store interface.
// Suitable for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	scalars map[string]string
	objects map[string]map[string]string
	sets    map[string]map[string]float64 // key -> member -> score
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scalars: make(map[string]string),
		objects: make(map[string]map[string]string),
		sets:    make(map[string]map[string]float64),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scalars[key], nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.scalars, key)
		delete(s.objects, key)
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.scalars[key]; ok {
		return true, nil
	}
	if _, ok := s.objects[key]; ok {
		return true, nil
	}
	_, ok := s.sets[key]
	return ok, nil
}

func (s *MemoryStore) GetObject(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	// Copy to prevent external mutation of stored data
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) GetObjects(ctx context.Context, keys []string) ([]map[string]string, error) {
	objects := make([]map[string]string, len(keys))
	for i, key := range keys {
		obj, err := s.GetObject(ctx, key)
		if err != nil {
			return nil, err
		}
		objects[i] = obj
	}
	return objects, nil
}

func (s *MemoryStore) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(map[string]string, len(fields))
	for k, v := range fields {
		stored[k] = v
	}
	s.objects[key] = stored
	return nil
}

func (s *MemoryStore) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(key, score, member)
	return nil
}

func (s *MemoryStore) SortedSetAddMulti(ctx context.Context, key string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.addLocked(key, e.Score, e.Member)
	}
	return nil
}

func (s *MemoryStore) addLocked(key string, score float64, member string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]float64)
		s.sets[key] = set
	}
	set[member] = score
}

func (s *MemoryStore) SortedSetRemove(ctx context.Context, keys []string, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.sets[key], member)
	}
	return nil
}

func (s *MemoryStore) SortedSetRemoveMulti(ctx context.Context, key string, members []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range members {
		delete(s.sets[key], member)
	}
	return nil
}

func (s *MemoryStore) SortedSetIsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *MemoryStore) SortedSetIsMembers(ctx context.Context, key string, members []string) ([]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]bool, len(members))
	for i, member := range members {
		_, results[i] = s.sets[key][member]
	}
	return results, nil
}

func (s *MemoryStore) SortedSetCard(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) SortedSetRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	entries := s.sortedEntries(key, true)

	var members []string
	for _, e := range entries {
		if e.Score < min || e.Score > max {
			continue
		}
		members = append(members, e.Member)
	}

	if offset >= int64(len(members)) {
		return nil, nil
	}
	members = members[offset:]
	if count >= 0 && count < int64(len(members)) {
		members = members[:count]
	}
	return members, nil
}

func (s *MemoryStore) SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	entries := s.sortedEntries(key, false)

	n := int64(len(entries))
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = n + start
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}

	members := make([]string, 0, stop-start+1)
	for _, e := range entries[start : stop+1] {
		members = append(members, e.Member)
	}
	return members, nil
}

func (s *MemoryStore) SortedSetMove(ctx context.Context, fromKey, toKey, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[fromKey], member)
	s.addLocked(toKey, score, member)
	return nil
}

func (s *MemoryStore) SortedSetMoveMulti(ctx context.Context, fromKey, toKey string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		delete(s.sets[fromKey], e.Member)
		s.addLocked(toKey, e.Score, e.Member)
	}
	return nil
}

// sortedEntries snapshots a set ordered by score; ties break on member
// to keep ordering deterministic.
func (s *MemoryStore) sortedEntries(key string, ascending bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.sets[key]
	entries := make([]Entry, 0, len(set))
	for member, score := range set {
		entries = append(entries, Entry{Member: member, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			if ascending {
				return entries[i].Score < entries[j].Score
			}
			return entries[i].Score > entries[j].Score
		}
		if ascending {
			return entries[i].Member < entries[j].Member
		}
		return entries[i].Member > entries[j].Member
	})
	return entries
}
