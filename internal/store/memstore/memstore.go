// Package memstore is an in-memory ItemStore for tests and local runs. It
// mirrors the postgres backend's query semantics exactly, including
// exclusive-start-key pagination.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/appmancer/foxy-backend/internal/store"
)

type table struct {
	// keyed by PK, each partition keyed by SK
	partitions map[string]map[string]store.Item
}

// Store is a threadsafe in-memory item store.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

func (s *Store) PutItem(_ context.Context, name string, item store.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		t = &table{partitions: make(map[string]map[string]store.Item)}
		s.tables[name] = t
	}
	pk := item[store.AttrPK]
	part, ok := t.partitions[pk]
	if !ok {
		part = make(map[string]store.Item)
		t.partitions[pk] = part
	}
	part[item[store.AttrSK]] = item.Clone()
	return nil
}

func (s *Store) Query(_ context.Context, name string, q store.Query) (*store.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []store.Item
	if t, ok := s.tables[name]; ok {
		for sk, item := range t.partitions[q.PartitionKey] {
			if q.SortPrefix == "" || hasPrefix(sk, q.SortPrefix) {
				matched = append(matched, item.Clone())
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i][store.AttrSK] > matched[j][store.AttrSK]
		}
		return matched[i][store.AttrSK] < matched[j][store.AttrSK]
	})

	matched = afterStartKey(matched, q.StartKey, func(item store.Item) bool {
		if q.Descending {
			return item[store.AttrSK] < q.StartKey[store.AttrSK]
		}
		return item[store.AttrSK] > q.StartKey[store.AttrSK]
	})
	return paginate(matched, q.Limit), nil
}

func (s *Store) QueryByAttr(_ context.Context, name, attr, value string, limit int, startKey store.Item) (*store.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []store.Item
	if t, ok := s.tables[name]; ok {
		for _, part := range t.partitions {
			for _, item := range part {
				if item[attr] == value {
					matched = append(matched, item.Clone())
				}
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i][store.AttrPK] != matched[j][store.AttrPK] {
			return matched[i][store.AttrPK] < matched[j][store.AttrPK]
		}
		return matched[i][store.AttrSK] < matched[j][store.AttrSK]
	})

	matched = afterStartKey(matched, startKey, func(item store.Item) bool {
		if item[store.AttrPK] != startKey[store.AttrPK] {
			return item[store.AttrPK] > startKey[store.AttrPK]
		}
		return item[store.AttrSK] > startKey[store.AttrSK]
	})
	return paginate(matched, limit), nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func afterStartKey(items []store.Item, startKey store.Item, after func(store.Item) bool) []store.Item {
	if len(startKey) == 0 {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if after(item) {
			out = append(out, item)
		}
	}
	return out
}

func paginate(items []store.Item, limit int) *store.QueryResult {
	res := &store.QueryResult{}
	if limit > 0 && len(items) > limit {
		res.Items = items[:limit]
		last := res.Items[len(res.Items)-1]
		res.LastKey = store.Item{store.AttrPK: last[store.AttrPK], store.AttrSK: last[store.AttrSK]}
	} else {
		res.Items = items
	}
	return res
}
