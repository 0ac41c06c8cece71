package intake

import (
	"context"
	"time"
)

// Adapter produces the finite candidate sequence for one configured source.
// Discovery is materialized once per run; adapters are not expected to
// support resumable or streaming discovery.
type Adapter interface {
	Discover(ctx context.Context) ([]Candidate, error)
}

// DocumentStore is the persistence collaborator. The store is the single
// source of truth for scope state and dedup history.
type DocumentStore interface {
	// MaxDocketID returns the highest docket identifier persisted for the
	// scope. The boolean is false when the scope has no records.
	MaxDocketID(ctx context.Context, programID, country string) (int64, bool, error)

	// LatestDate returns the maximum date across the modified, publish and
	// effective date columns over all records in scope, or nil for an
	// empty scope.
	LatestDate(ctx context.Context, programID, country string) (*time.Time, error)

	// ExistsByFingerprint reports whether any persisted record carries the
	// given content fingerprint. Matching is exact.
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)

	// ExistsByURL reports whether any persisted record was ingested from
	// the given URL.
	ExistsByURL(ctx context.Context, url string) (bool, error)

	// Insert persists one document record. Each insert is atomic at the
	// single-record level; no transaction spans more than one insert.
	Insert(ctx context.Context, doc Document) error
}

// FileCache retrieves and caches document artifacts locally. It never
// re-fetches what is already available, locally or in the store.
type FileCache interface {
	Fetch(ctx context.Context, url, title string) (CachedFile, error)
	Remove(path string) error
}

// Publisher pushes ingest events after successful persistence.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Uploader copies a persisted artifact to long-term object storage.
type Uploader interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
