package meeting

import (
	"context"
	"sync"
)

// MemoryDirectory is an in-process Directory used in development and tests.
type MemoryDirectory struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

// NewMemoryDirectory returns a directory preloaded with meetings.
func NewMemoryDirectory(meetings ...Meeting) *MemoryDirectory {
	d := &MemoryDirectory{meetings: make(map[string]Meeting, len(meetings))}
	for _, m := range meetings {
		d.meetings[m.ID] = m
	}
	return d
}

// Put inserts or replaces a meeting.
func (d *MemoryDirectory) Put(m Meeting) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meetings[m.ID] = m
}

// Find implements Directory.
func (d *MemoryDirectory) Find(_ context.Context, meetingID string) (Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.meetings[meetingID]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return m, nil
}
