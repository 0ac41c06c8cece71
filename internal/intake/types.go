package intake

import (
	"time"
)

// Decision is the outcome of the deduplication and staleness engine for a
// single normalized document.
type Decision string

// Decision values returned by Engine.Decide.
const (
	DecisionNew         Decision = "new"
	DecisionAlreadySeen Decision = "already_seen"
	DecisionStale       Decision = "stale"
)

// Source describes one configured authority listing page. A source is the
// unit of isolation in a run: a failure discovering one source never blocks
// the others.
type Source struct {
	Name             string
	URL              string
	Country          string
	AgencyID         string
	StartingDocketID int64
	Selector         string
	TimeoutSeconds   int
}

// RawDates carries the unparsed date strings a source adapter managed to
// scrape alongside a candidate link. Any of them may be empty.
type RawDates struct {
	Effective string
	Modified  string
	Publish   string
	Posted    string
}

// Candidate is a raw, unnormalized document reference produced by a source
// adapter. It has not yet been validated or deduplicated.
type Candidate struct {
	// Href is the anchor target, possibly relative to PageURL.
	Href string
	// Text is the anchor's own text content.
	Text string
	// Topic is the contextual label of the listing section the link was
	// found under (used as a title fallback).
	Topic string
	// PageURL is the listing page the candidate was discovered on.
	PageURL string
	Dates   RawDates
}

// Document is the canonical metadata record produced by the normalizer.
// DocketID, DocID and CreateDate are assigned only at persistence time.
type Document struct {
	Country       string
	ProgramID     string
	Title         string
	URL           string
	Fingerprint   string
	Abstract      string
	AgencyID      string
	DocumentType  string
	Reference     string
	DocFormat     string
	PublishDate   *time.Time
	ModifiedDate  *time.Time
	EffectiveDate *time.Time

	DocketID   string
	DocID      string
	InElastic  bool
	CreateDate time.Time
}

// ScopeState is the persisted-state snapshot for a (program, country) scope,
// read once at the start of a source's processing.
type ScopeState struct {
	// LastDocketID is the highest docket identifier allocated so far, or
	// the configured starting identifier minus one for an empty scope.
	LastDocketID int64
	// HighWater is the maximum date across all date fields over all
	// persisted records in scope; nil when the scope is empty.
	HighWater *time.Time
}

// CachedFile describes the outcome of a retrieval-cache lookup for one
// candidate URL.
type CachedFile struct {
	// Path is the local file path the artifact lives at (or would live at;
	// the file may be absent when AlreadyStored is true).
	Path string
	// AlreadyStored reports that the persisted store already has a record
	// for this URL, so no network access was attempted.
	AlreadyStored bool
	// Downloaded reports that this call performed a network fetch.
	Downloaded bool
}
