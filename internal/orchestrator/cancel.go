package orchestrator

import "sync"

// cancelSet is the registry of files with a cancellation requested. Marks are
// write-once-consume-once: the sole consumer is the suspension-point check of a
// running pipeline, and consuming removes the mark so a later unrelated run for
// the same file is never cancelled spuriously.
type cancelSet struct {
	mu    sync.Mutex
	marks map[string]struct{}
}

func newCancelSet() *cancelSet {
	return &cancelSet{marks: make(map[string]struct{})}
}

// Request marks a file for cancellation.
func (c *cancelSet) Request(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[file] = struct{}{}
}

// Consume reports whether a mark was present, removing it if so.
func (c *cancelSet) Consume(file string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.marks[file]; ok {
		delete(c.marks, file)
		return true
	}
	return false
}

// Clear drops any mark for a file without consuming it. Fresh runs call this
// so a stale mark from a previous run cannot abort them.
func (c *cancelSet) Clear(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.marks, file)
}

// Reset drops every mark. A batch run starts clean.
func (c *cancelSet) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks = make(map[string]struct{})
}
