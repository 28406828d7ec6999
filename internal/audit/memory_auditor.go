package audit

import (
	"sync"

	"github.com/darmiel/idtoken/internal/core"
)

var _ core.Auditor = (*InMemoryAuditor)(nil)

// DefaultMemoryCapacity bounds the number of entries kept by an InMemoryAuditor.
const DefaultMemoryCapacity = 1000

// InMemoryAuditor keeps the most recent audit entries in memory.
// Older entries are dropped once capacity is reached.
type InMemoryAuditor struct {
	mu       sync.Mutex
	entries  []core.AuditEntry
	capacity int
}

func NewInMemoryAuditor(capacity int) *InMemoryAuditor {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &InMemoryAuditor{
		entries:  make([]core.AuditEntry, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.entries) >= i.capacity {
		// drop the oldest entry
		i.entries = append(i.entries[:0], i.entries[1:]...)
	}
	i.entries = append(i.entries, entry)
	return nil
}

// Recent returns up to limit of the newest entries, oldest first.
func (i *InMemoryAuditor) Recent(limit int) []core.AuditEntry {
	return i.Find(nil, limit)
}

// Find returns up to limit of the newest entries accepted by filter, oldest first.
// A nil filter accepts every entry.
func (i *InMemoryAuditor) Find(filter func(entry core.AuditEntry) bool, limit int) []core.AuditEntry {
	i.mu.Lock()
	defer i.mu.Unlock()

	matches := make([]core.AuditEntry, 0)
	for _, entry := range i.entries {
		if filter == nil || filter(entry) {
			matches = append(matches, entry)
		}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}
	return matches
}

func (i *InMemoryAuditor) Close() error {
	return nil
}
