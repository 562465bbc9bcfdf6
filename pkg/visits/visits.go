// Package visits counts how many times each visitor has loaded the home page.
package visits

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// Counter reads and bumps per-visitor counts. A visitor that has never been
// counted reads as zero, and its first Increment returns 1.
type Counter interface {
	Read(ctx context.Context, visitorID string) (int, error)
	Increment(ctx context.Context, visitorID string) (int, error)
}

// Store keeps counts in the visit_counts table.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db}
}

func (s *Store) Read(ctx context.Context, visitorID string) (int, error) {
	vc := &models.VisitCount{}
	err := s.db.NewSelect().
		Model(vc).
		Where("vc.visitor_id = ?", visitorID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}
	return vc.Count, nil
}

func (s *Store) Increment(ctx context.Context, visitorID string) (int, error) {
	now := time.Now()
	vc := &models.VisitCount{
		VisitorID: visitorID,
		CreatedAt: now,
		UpdatedAt: now,
		Count:     1,
	}

	var count int
	err := s.db.NewInsert().
		Model(vc).
		On("CONFLICT (visitor_id) DO UPDATE").
		Set("count = count + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("count").
		Scan(ctx, &count)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// MemoryCounter is a Counter that lives only as long as the process.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int)}
}

func (m *MemoryCounter) Read(_ context.Context, visitorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[visitorID], nil
}

func (m *MemoryCounter) Increment(_ context.Context, visitorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[visitorID]++
	return m.counts[visitorID], nil
}
