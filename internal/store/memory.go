package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/simple-mediasync/pkg/status"
)

// Memory keeps status words in process. It backs tests and the
// STORE_BACKEND=memory option for running without a database.
type Memory struct {
	mu   sync.Mutex
	rows map[Item]*memoryRow
}

type memoryRow struct {
	status uint32
	parts  map[string]string
	seq    int // insertion order stands in for updated_at
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[Item]*memoryRow)}
}

func (s *Memory) EnsureItem(_ context.Context, item Item, parts map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[item]; ok {
		return nil
	}
	copied := make(map[string]string, len(parts))
	for k, v := range parts {
		copied[k] = v
	}
	s.rows[item] = &memoryRow{parts: copied, seq: len(s.rows)}
	return nil
}

func (s *Memory) GetStatus(_ context.Context, item Item) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[item]
	if !ok {
		return 0, ErrNotFound
	}
	return row.status, nil
}

func (s *Memory) SaveStatus(_ context.Context, item Item, raw uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[item]
	if !ok {
		row = &memoryRow{parts: map[string]string{}, seq: len(s.rows)}
		s.rows[item] = row
	}
	row.status = raw
	return nil
}

func (s *Memory) ListPending(_ context.Context, kind string, limit int) ([]PendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []PendingItem
	for item, row := range s.rows {
		if item.Kind != kind || row.status&status.CompletedFlag != 0 {
			continue
		}
		parts := make(map[string]string, len(row.parts))
		for k, v := range row.parts {
			parts[k] = v
		}
		pending = append(pending, PendingItem{Item: item, Status: row.status, Parts: parts})
	}
	// Map order is random; stable output keeps reconciliation deterministic.
	sort.Slice(pending, func(i, j int) bool {
		return s.rows[pending[i].Item].seq < s.rows[pending[j].Item].seq
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}
