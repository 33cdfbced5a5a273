package transcript

import (
	"context"
	"sync"
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Memory is an in-memory Store. Records are msgpack-encoded like Badger's,
// so items returned by Load never alias saved ones.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
	now      func() time.Time
}

type memSession struct {
	meta    Session
	records [][]byte
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*memSession),
		now:      time.Now,
	}
}

func (m *Memory) Save(_ context.Context, sessionID string, items []rt.Item) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	now := m.now()
	records, err := encodeItems(items, now)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	meta := Session{ID: sessionID, Items: len(items), CreatedAt: now.UTC(), UpdatedAt: now.UTC()}
	if prev, ok := m.sessions[sessionID]; ok {
		meta.CreatedAt = prev.meta.CreatedAt
	}
	m.sessions[sessionID] = &memSession{meta: meta, records: records}
	return nil
}

func (m *Memory) Load(_ context.Context, sessionID string) ([]rt.Item, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	items := make([]rt.Item, 0, len(s.records))
	for _, data := range s.records {
		item, err := decodeItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *Memory) Sessions(_ context.Context) ([]Session, error) {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.meta)
	}
	m.mu.RUnlock()
	sortSessions(out)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)
