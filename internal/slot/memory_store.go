package slot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same guard semantics as the
// Postgres one. Used by tests and offline simulation.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*TimeSlot
	keys  map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[uuid.UUID]*TimeSlot),
		keys:  make(map[string]uuid.UUID),
	}
}

func naturalKey(s TimeSlot) string {
	return s.LocationID.String() + "|" + s.Date.Format(time.DateOnly) + "|" + s.StartTime.String()
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) CountForDate(_ context.Context, locationID uuid.UUID, date time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.slots {
		if s.LocationID == locationID && s.Date.Equal(date) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListForDate(_ context.Context, locationID uuid.UUID, date time.Time, window *Window) ([]TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []TimeSlot
	for _, s := range m.slots {
		if s.LocationID != locationID || !s.Date.Equal(date) {
			continue
		}
		if window != nil && !window.Contains(s.StartTime) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *MemoryStore) InsertMany(_ context.Context, slots []TimeSlot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range slots {
		k := naturalKey(s)
		if _, exists := m.keys[k]; exists {
			continue
		}
		cp := s
		m.slots[s.ID] = &cp
		m.keys[k] = s.ID
		n++
	}
	return n, nil
}

func (m *MemoryStore) IncrementBookings(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok || s.CurrentBookings >= s.MaxCapacity || s.Status == StatusBlocked || s.Status == StatusUnavailable {
		return nil, errNoRowChanged
	}
	s.CurrentBookings++
	s.Status = s.EffectiveStatus()
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) DecrementBookings(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok || s.CurrentBookings == 0 {
		return nil, errNoRowChanged
	}
	s.CurrentBookings--
	if s.Status == StatusBooked {
		s.Status = StatusAvailable
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) SetBlocked(_ context.Context, id uuid.UUID, reason *string) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	s.Status = StatusBlocked
	s.BlockedReason = reason
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ClearBlock(_ context.Context, id uuid.UUID) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok || (s.Status != StatusBlocked && s.Status != StatusUnavailable) {
		return nil, errNoRowChanged
	}
	s.Status = StatusAvailable
	s.Status = s.EffectiveStatus()
	s.BlockedReason = nil
	cp := *s
	return &cp, nil
}
