package site

import (
	"sync"
	"time"
)

// BuildStatus describes the most recent build attempt.
type BuildStatus struct {
	BuiltAt  time.Time     `json:"builtAt"`
	Duration time.Duration `json:"duration"`
	Slides   int           `json:"slides"`
	Files    int           `json:"files"`
	Error    string        `json:"error,omitempty"`
}

// OK reports whether the last build succeeded.
func (b BuildStatus) OK() bool {
	return !b.BuiltAt.IsZero() && b.Error == ""
}

type statusCache struct {
	mu       sync.RWMutex
	snapshot BuildStatus
	builds   int
}

func newStatusCache() *statusCache {
	return &statusCache{}
}

func (c *statusCache) Update(status BuildStatus) {
	c.mu.Lock()
	c.snapshot = status
	c.builds++
	c.mu.Unlock()
}

func (c *statusCache) Snapshot() (BuildStatus, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.builds
}
