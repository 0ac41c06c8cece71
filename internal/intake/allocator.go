package intake

import (
	"fmt"
	"sync"
)

// Allocator hands out the next docket identifier per (program, country)
// scope. It is seeded once per run from persisted state and advanced only
// after a confirmed successful insert; within a run the in-memory counter is
// authoritative so the store is never re-queried between inserts.
type Allocator struct {
	mu   sync.Mutex
	next map[scopeKey]int64
}

type scopeKey struct {
	programID string
	country   string
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{next: make(map[scopeKey]int64)}
}

// Seed records the last allocated docket identifier for a scope. For an
// empty scope callers pass the configured starting identifier minus one.
func (a *Allocator) Seed(programID, country string, lastDocketID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next[scopeKey{programID, country}] = lastDocketID + 1
}

// Next returns the identifier the next successful persistence will use. It
// does not advance the counter.
func (a *Allocator) Next(programID, country string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.next[scopeKey{programID, country}]
	if !ok {
		return 0, fmt.Errorf("allocator not seeded for program %s country %s", programID, country)
	}
	return id, nil
}

// Advance commits the current identifier after a confirmed insert. Skipped
// and failed candidates never advance, so identifiers stay gapless.
func (a *Allocator) Advance(programID, country string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := scopeKey{programID, country}
	if _, ok := a.next[key]; ok {
		a.next[key]++
	}
}

// DocID derives the document identifier for the first sub-document of a
// docket.
func DocID(docketID int64) string {
	return fmt.Sprintf("%d-01", docketID)
}
