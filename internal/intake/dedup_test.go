package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubStore satisfies DocumentStore with canned dedup answers.
type stubStore struct {
	DocumentStore

	seenFingerprints map[string]bool
	fingerprintErr   error
}

func (s *stubStore) ExistsByFingerprint(_ context.Context, fingerprint string) (bool, error) {
	if s.fingerprintErr != nil {
		return false, s.fingerprintErr
	}
	return s.seenFingerprints[fingerprint], nil
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestDecideRequiresIdentity(t *testing.T) {
	t.Parallel()

	e := NewEngine(&stubStore{}, zap.NewNop())
	_, err := e.Decide(context.Background(), Document{URL: "https://x.org/a.pdf"}, ScopeState{})
	require.Error(t, err)
	_, err = e.Decide(context.Background(), Document{Title: "A"}, ScopeState{})
	require.Error(t, err)
}

func TestDecideDuplicate(t *testing.T) {
	t.Parallel()

	doc := Document{Title: "Guide", URL: "https://x.org/a.pdf"}
	doc.Fingerprint = Fingerprint(doc.Title, doc.URL)

	e := NewEngine(&stubStore{seenFingerprints: map[string]bool{doc.Fingerprint: true}}, zap.NewNop())
	got, err := e.Decide(context.Background(), doc, ScopeState{})
	require.NoError(t, err)
	require.Equal(t, DecisionAlreadySeen, got)
}

func TestDecideStoreErrorPropagates(t *testing.T) {
	t.Parallel()

	e := NewEngine(&stubStore{fingerprintErr: errors.New("connection refused")}, zap.NewNop())
	doc := Document{Title: "Guide", URL: "https://x.org/a.pdf", Fingerprint: "abc"}
	_, err := e.Decide(context.Background(), doc, ScopeState{})
	require.ErrorContains(t, err, "connection refused")
}

func TestDecideStaleness(t *testing.T) {
	t.Parallel()

	highWater := datePtr(2024, time.March, 15)

	tests := []struct {
		name      string
		modified  *time.Time
		publish   *time.Time
		effective *time.Time
		highWater *time.Time
		want      Decision
	}{
		{
			name:      "before high water is stale",
			modified:  datePtr(2024, time.March, 1),
			highWater: highWater,
			want:      DecisionStale,
		},
		{
			name:      "equal to high water is stale",
			modified:  datePtr(2024, time.March, 15),
			highWater: highWater,
			want:      DecisionStale,
		},
		{
			name:      "after high water is new",
			modified:  datePtr(2024, time.March, 16),
			highWater: highWater,
			want:      DecisionNew,
		},
		{
			name:      "no dates is never stale",
			highWater: highWater,
			want:      DecisionNew,
		},
		{
			name:     "empty scope is never stale",
			modified: datePtr(2000, time.January, 1),
			want:     DecisionNew,
		},
		{
			name:      "modified outranks newer publish",
			modified:  datePtr(2024, time.March, 1),
			publish:   datePtr(2024, time.June, 1),
			highWater: highWater,
			want:      DecisionStale,
		},
		{
			name:      "publish used when modified absent",
			publish:   datePtr(2024, time.June, 1),
			effective: datePtr(2024, time.January, 1),
			highWater: highWater,
			want:      DecisionNew,
		},
		{
			name:      "effective used last",
			effective: datePtr(2024, time.January, 1),
			highWater: highWater,
			want:      DecisionStale,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := Document{
				Title:         "Guide",
				URL:           "https://x.org/a.pdf",
				Fingerprint:   "f",
				ModifiedDate:  tc.modified,
				PublishDate:   tc.publish,
				EffectiveDate: tc.effective,
			}
			e := NewEngine(&stubStore{}, zap.NewNop())
			got, err := e.Decide(context.Background(), doc, ScopeState{HighWater: tc.highWater})
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComparisonDate(t *testing.T) {
	t.Parallel()

	require.Nil(t, ComparisonDate(Document{}))

	modified := datePtr(2024, time.March, 1)
	publish := datePtr(2024, time.April, 1)
	effective := datePtr(2024, time.May, 1)

	require.Equal(t, modified, ComparisonDate(Document{
		ModifiedDate: modified, PublishDate: publish, EffectiveDate: effective,
	}))
	require.Equal(t, publish, ComparisonDate(Document{
		PublishDate: publish, EffectiveDate: effective,
	}))
	require.Equal(t, effective, ComparisonDate(Document{EffectiveDate: effective}))
}
