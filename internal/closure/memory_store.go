package closure

import (
	"context"
	"sort"
	"sync"
	"time"

	"cashup-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps versions in process. It backs tests and runs without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []models.TillClosure
	nextID uint
	now    func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{now: o.now}
}

func (s *MemoryStore) Create(_ context.Context, c *models.TillClosure, actorID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareFirstVersion(c, actorID, s.now())
	s.insert(c)
	return nil
}

func (s *MemoryStore) insert(c *models.TillClosure) {
	s.nextID++
	c.ID = s.nextID
	s.rows = append(s.rows, *c)
}

func (s *MemoryStore) Update(_ context.Context, identity uuid.UUID, expectedVersion int, actorID uint, apply ApplyFunc) (*models.TillClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.currentIndex(identity, expectedVersion)
	if err != nil {
		return nil, err
	}

	now := s.now()
	head := s.rows[idx]
	previous := historicalCopy(head, now)
	if err := advance(&head, apply, actorID, now); err != nil {
		return nil, err
	}

	s.rows[idx] = head
	s.insert(&previous)
	return &head, nil
}

func (s *MemoryStore) Withdraw(_ context.Context, identity uuid.UUID, expectedVersion int) (*models.TillClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.currentIndex(identity, expectedVersion)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.rows[idx].VersionSupersededTime = &now
	head := s.rows[idx]
	return &head, nil
}

func (s *MemoryStore) currentIndex(identity uuid.UUID, expectedVersion int) (int, error) {
	for i := range s.rows {
		r := &s.rows[i]
		if r.Identity == identity && r.IsCurrent() {
			if r.VersionNumber != expectedVersion {
				return -1, ErrConcurrentModification
			}
			return i, nil
		}
	}
	return -1, ErrNotFound
}

func (s *MemoryStore) Current(_ context.Context, identity uuid.UUID) (*models.TillClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rows {
		if r.Identity == identity && r.IsCurrent() {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Head(_ context.Context, identity uuid.UUID) (*models.TillClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if head, ok := s.head(identity); ok {
		return &head, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) head(identity uuid.UUID) (models.TillClosure, bool) {
	var head models.TillClosure
	found := false
	for _, r := range s.rows {
		if r.Identity == identity && (!found || r.VersionNumber > head.VersionNumber) {
			head, found = r, true
		}
	}
	return head, found
}

func (s *MemoryStore) IsDeleted(ctx context.Context, identity uuid.UUID) (bool, error) {
	head, err := s.Head(ctx, identity)
	if err != nil {
		return false, err
	}
	return !head.IsCurrent(), nil
}

func (s *MemoryStore) AuditTrail(_ context.Context, identity uuid.UUID) ([]models.TillClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var versions []models.TillClosure
	for _, r := range s.rows {
		if r.Identity == identity {
			versions = append(versions, r)
		}
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber < versions[j].VersionNumber
	})
	return versions, nil
}

func (s *MemoryStore) ListForOutlet(_ context.Context, outletID uint, includeWithdrawn bool) ([]models.TillClosure, error) {
	return s.listHeads(func(r models.TillClosure) bool { return r.OutletID == outletID }, includeWithdrawn), nil
}

func (s *MemoryStore) ListForPersonnel(_ context.Context, personnelID uint, includeWithdrawn bool) ([]models.TillClosure, error) {
	return s.listHeads(func(r models.TillClosure) bool { return r.ClosedByID == personnelID }, includeWithdrawn), nil
}

func (s *MemoryStore) listHeads(match func(models.TillClosure) bool, includeWithdrawn bool) []models.TillClosure {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.TillClosure{}
	for _, r := range s.rows {
		if !match(r) {
			continue
		}
		if r.IsCurrent() {
			out = append(out, r)
			continue
		}
		if includeWithdrawn {
			if head, _ := s.head(r.Identity); head.ID == r.ID {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CloseTime.Equal(out[j].CloseTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].CloseTime.Before(out[j].CloseTime)
	})
	return out
}

func (s *MemoryStore) DailyTakings(_ context.Context, outletID uint, from, to time.Time) ([]DailyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []models.TillClosure
	for _, r := range s.rows {
		if r.OutletID != outletID || !r.IsCurrent() || r.CloseTime.Before(from) || !r.CloseTime.Before(to) {
			continue
		}
		rows = append(rows, r)
	}
	return sumByDay(rows, from.Location()), nil
}
