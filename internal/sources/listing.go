// Package sources turns configured authority listing pages into candidate
// streams for the intake pipeline.
package sources

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/fetch"
	"github.com/medregs/guidance-intake/internal/intake"
)

// defaultSelector matches direct links to PDF documents, the dominant
// artifact format across the configured authorities.
const defaultSelector = `a[href$=".pdf"], a[href$=".PDF"]`

// defaultTopic labels candidates from listing pages that carry no section
// context of their own.
const defaultTopic = "Guidelines"

// dateRe matches the date forms that appear in listing tables: numeric
// day-first forms and spelled-out month forms.
var dateRe = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{4}|[A-Z][a-z]+ \d{1,2},? \d{4}`)

// Getter is the fetch surface a listing adapter needs.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// ListingAdapter discovers candidates by scanning one listing page for
// document links. The CSS selector is per-source configurable; dates are
// scraped opportunistically from the enclosing table row.
type ListingAdapter struct {
	src    intake.Source
	client Getter
	logger *zap.Logger
}

// NewListingAdapter builds an adapter for one configured source.
func NewListingAdapter(src intake.Source, client Getter, logger *zap.Logger) *ListingAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingAdapter{src: src, client: client, logger: logger}
}

// Discover fetches the listing page and extracts one candidate per matching
// link. The returned slice preserves document order.
func (a *ListingAdapter) Discover(ctx context.Context) ([]intake.Candidate, error) {
	resp, err := a.client.Get(ctx, a.src.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}

	selector := a.src.Selector
	if selector == "" {
		selector = defaultSelector
	}

	var candidates []intake.Candidate
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		candidates = append(candidates, intake.Candidate{
			Href:    strings.TrimSpace(href),
			Text:    strings.TrimSpace(sel.Text()),
			Topic:   defaultTopic,
			PageURL: a.src.URL,
			Dates:   intake.RawDates{Posted: rowDate(sel)},
		})
	})

	a.logger.Debug("listing scanned",
		zap.String("source", a.src.Name),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// rowDate pulls the first date-looking token from the link's table row, if
// the listing is tabular.
func rowDate(sel *goquery.Selection) string {
	row := sel.Closest("tr")
	if row.Length() == 0 {
		return ""
	}
	return dateRe.FindString(row.Text())
}
