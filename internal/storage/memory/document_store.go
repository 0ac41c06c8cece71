// Package memory provides in-memory persistence implementations for local
// development and tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/medregs/guidance-intake/internal/intake"
)

// DocumentStore keeps document records in memory. Safe for concurrent use.
type DocumentStore struct {
	mu   sync.RWMutex
	docs []intake.Document
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// MaxDocketID returns the highest docket identifier for the scope.
func (s *DocumentStore) MaxDocketID(_ context.Context, programID, country string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	found := false
	for _, doc := range s.docs {
		if doc.ProgramID != programID || doc.Country != country {
			continue
		}
		id, err := strconv.ParseInt(doc.DocketID, 10, 64)
		if err != nil {
			continue
		}
		if !found || id > max {
			max = id
			found = true
		}
	}
	return max, found, nil
}

// LatestDate returns the maximum date across all date fields for the scope.
func (s *DocumentStore) LatestDate(_ context.Context, programID, country string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *time.Time
	for _, doc := range s.docs {
		if doc.ProgramID != programID || doc.Country != country {
			continue
		}
		for _, d := range []*time.Time{doc.ModifiedDate, doc.EffectiveDate, doc.PublishDate} {
			if d == nil {
				continue
			}
			if latest == nil || d.After(*latest) {
				v := *d
				latest = &v
			}
		}
	}
	return latest, nil
}

// ExistsByFingerprint reports whether any record carries the fingerprint.
func (s *DocumentStore) ExistsByFingerprint(_ context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// ExistsByURL reports whether any record was ingested from the URL.
func (s *DocumentStore) ExistsByURL(_ context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.URL == url {
			return true, nil
		}
	}
	return false, nil
}

// Insert appends one record.
func (s *DocumentStore) Insert(_ context.Context, doc intake.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

// Documents returns a copy of everything inserted so far.
func (s *DocumentStore) Documents() []intake.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]intake.Document, len(s.docs))
	copy(out, s.docs)
	return out
}
