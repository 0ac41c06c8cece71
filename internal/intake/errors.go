package intake

import "fmt"

// The error kinds below form the pipeline's failure taxonomy. Every kind is
// caught at the smallest enclosing scope (candidate, then source, then run)
// and converted to a log record plus a skip decision; none of them aborts a
// run.

// DiscoveryError reports that a source's listing page could not be fetched
// or parsed. It is fatal to that source and recoverable for the run.
type DiscoveryError struct {
	Source string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover source %s: %v", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// CandidateInvalidError reports a candidate that cannot be normalized into a
// valid document record (missing URL, unresolvable link). It is fatal to the
// candidate and recoverable for the source.
type CandidateInvalidError struct {
	Href   string
	Reason string
}

func (e *CandidateInvalidError) Error() string {
	return fmt.Sprintf("invalid candidate %q: %s", e.Href, e.Reason)
}

// DateParseError reports a date string that could not be parsed. The field
// becomes nil and processing continues.
type DateParseError struct {
	Input string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Input, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// FetchError reports that retrieval of a candidate's artifact exhausted its
// retries (or rendering of an HTML resource failed). It is fatal to the
// candidate and recoverable for the source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError reports an insert rejected by the store. The allocator is
// not advanced and the cached artifact is kept for a later retry.
type PersistenceError struct {
	Title string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %q: %v", e.Title, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
