package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository backs the proxy when no DATABASE_URL is configured.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]Profile
	feedback []Feedback
	now      func() time.Time
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]Profile), now: time.Now}
}

func (m *MemoryRepository) FindProfileByDevice(_ context.Context, deviceID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[deviceID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryRepository) FindProfileByEmail(_ context.Context, email string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best Profile
	found := false
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) && (!found || p.UpdatedAt.After(best.UpdatedAt)) {
			best, found = p, true
		}
	}
	if !found {
		return Profile{}, ErrNotFound
	}
	return best, nil
}

func (m *MemoryRepository) RelinkDevice(_ context.Context, oldDeviceID, newDeviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[oldDeviceID]
	if !ok {
		return ErrNotFound
	}
	delete(m.profiles, oldDeviceID)
	p.DeviceID = newDeviceID
	p.UpdatedAt = m.now()
	m.profiles[newDeviceID] = p
	return nil
}

func (m *MemoryRepository) UpsertProfile(_ context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = m.now()
	m.profiles[p.DeviceID] = p
	return nil
}

func (m *MemoryRepository) InsertFeedback(_ context.Context, f Feedback) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = int64(len(m.feedback) + 1)
	m.feedback = append(m.feedback, f)
	return f.ID, nil
}

func (m *MemoryRepository) ListFeedback(_ context.Context, limit int) ([]Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Feedback(nil), m.feedback...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) PendingFeedback(_ context.Context, limit int) ([]Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Feedback{}
	for _, f := range m.feedback {
		if f.NotifiedAt == nil {
			out = append(out, f)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRepository) MarkFeedbackNotified(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.feedback {
		if m.feedback[i].ID == id {
			t := at
			m.feedback[i].NotifiedAt = &t
			return nil
		}
	}
	return ErrNotFound
}
