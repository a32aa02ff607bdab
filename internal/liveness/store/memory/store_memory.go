// Package memory implements the liveness store in process memory. It backs
// unit tests and single-node deployments; the version check mirrors the
// postgres store so concurrency behavior is identical in both.
package memory

import (
	"context"
	"sort"
	"sync"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
	"heirloom/pkg/platform/sentinel"
)

type Store struct {
	mu            sync.RWMutex
	records       map[id.UserID]*models.LivenessRecord
	notifications map[id.UserID][]*models.NotificationRecord
	releases      map[id.UserID][]*models.InheritanceReleaseEvent
}

func New() *Store {
	return &Store{
		records:       make(map[id.UserID]*models.LivenessRecord),
		notifications: make(map[id.UserID][]*models.NotificationRecord),
		releases:      make(map[id.UserID][]*models.InheritanceReleaseEvent),
	}
}

func (s *Store) Create(_ context.Context, record *models.LivenessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.UserID]; exists {
		return sentinel.ErrConflict
	}
	record.Version = 1
	s.records[record.UserID] = record.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, userID id.UserID) (*models.LivenessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

// Update applies an optimistic write: it succeeds only when the caller's
// version matches the stored one, and bumps the version on success. This is
// the per-user serialization point between check-ins and sweep workers.
func (s *Store) Update(_ context.Context, record *models.LivenessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[record.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != record.Version {
		return sentinel.ErrVersionMismatch
	}
	record.Version++
	s.records[record.UserID] = record.Clone()
	return nil
}

func (s *Store) ListActive(_ context.Context) ([]*models.LivenessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.LivenessRecord
	for _, record := range s.records {
		if record.IsActive {
			out = append(out, record.Clone())
		}
	}
	// Deterministic order keeps sweep tests stable.
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

func (s *Store) AppendNotification(_ context.Context, n *models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.UserID] = append(s.notifications[n.UserID], &cp)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID id.UserID) ([]*models.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.notifications[userID]
	out := make([]*models.NotificationRecord, 0, len(records))
	for _, n := range records {
		cp := *n
		out = append(out, &cp)
	}
	// Most recent first; stable sort keeps same-timestamp records in append
	// order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out, nil
}

func (s *Store) AppendReleaseEvent(_ context.Context, e *models.InheritanceReleaseEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.releases[e.UserID] = append(s.releases[e.UserID], &cp)
	return nil
}

func (s *Store) ListReleaseEvents(_ context.Context, userID id.UserID) ([]*models.InheritanceReleaseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.releases[userID]
	out := make([]*models.InheritanceReleaseEvent, 0, len(events))
	for _, e := range events {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
