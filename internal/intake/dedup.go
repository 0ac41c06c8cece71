package intake

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Engine decides whether a normalized document is new, already ingested, or
// older than the scope's high-water date.
type Engine struct {
	store  DocumentStore
	logger *zap.Logger
}

// NewEngine builds a dedup/staleness engine backed by the given store.
func NewEngine(store DocumentStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// Decide classifies doc against the persisted state for its scope.
//
// Fingerprint equality is checked first and is exact-match. Otherwise the
// document's comparison date is the first non-nil of modified, publish,
// effective (first-present wins, not max). A document is stale only when both
// the scope's high-water date and the comparison date exist and the
// comparison date is on or before the high-water mark; the boundary is
// inclusive. A document with no dates at all is never stale.
func (e *Engine) Decide(ctx context.Context, doc Document, scope ScopeState) (Decision, error) {
	if doc.Title == "" || doc.URL == "" {
		return "", fmt.Errorf("document missing title or url")
	}

	seen, err := e.store.ExistsByFingerprint(ctx, doc.Fingerprint)
	if err != nil {
		return "", fmt.Errorf("fingerprint lookup: %w", err)
	}
	if seen {
		return DecisionAlreadySeen, nil
	}

	dateToCheck := ComparisonDate(doc)
	if scope.HighWater != nil && dateToCheck != nil && !dateToCheck.After(*scope.HighWater) {
		e.logger.Debug("document predates high-water mark",
			zap.String("title", doc.Title),
			zap.String("date", FormatDate(dateToCheck)),
			zap.String("high_water", FormatDate(scope.HighWater)),
		)
		return DecisionStale, nil
	}

	return DecisionNew, nil
}

// ComparisonDate selects the date used for staleness checks: the first
// non-nil of modified, publish, effective. Preserve this order; changing it
// silently changes staleness outcomes.
func ComparisonDate(doc Document) *time.Time {
	for _, d := range []*time.Time{doc.ModifiedDate, doc.PublishDate, doc.EffectiveDate} {
		if d != nil {
			return d
		}
	}
	return nil
}
