// Package intake implements the document intake pipeline: normalization of
// discovered guidance documents into canonical records, deduplication and
// staleness decisions against previously ingested state, monotonic docket
// identifier allocation, and the per-source orchestration loop that ties
// them together.
package intake
