package intake

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// maxTitleRunes bounds derived titles. Truncation counts runes, never bytes,
// so a multibyte sequence is never split.
const maxTitleRunes = 100

// fallbackTitle is used when neither the anchor text nor the topic label
// yields anything usable.
const fallbackTitle = "Untitled"

// Normalizer converts raw candidates into canonical document records.
type Normalizer struct {
	programID string
	docFormat string
	logger    *zap.Logger
}

// NewNormalizer builds a Normalizer for one ingestion program.
func NewNormalizer(programID, docFormat string, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		programID: programID,
		docFormat: docFormat,
		logger:    logger,
	}
}

// Normalize validates and canonicalizes a candidate discovered under the
// given source. It returns a CandidateInvalidError when the candidate cannot
// become a valid record; date parse failures are logged and leave the field
// nil rather than rejecting the candidate.
func (n *Normalizer) Normalize(c Candidate, src Source) (Document, error) {
	href := strings.TrimSpace(c.Href)
	if href == "" {
		return Document{}, &CandidateInvalidError{Href: c.Href, Reason: "no href"}
	}

	absolute, err := resolveURL(href, c.PageURL)
	if err != nil {
		return Document{}, &CandidateInvalidError{Href: href, Reason: err.Error()}
	}

	title := DeriveTitle(c.Text, c.Topic)

	effective := n.parseDate(c.Dates.Effective, absolute)
	modified := n.parseDate(c.Dates.Modified, absolute)
	publish := n.parseDate(c.Dates.Publish, absolute)
	// A posted/public date wins over a publish date for the publish slot.
	// This is a precedence rule, not a merge.
	if posted := n.parseDate(c.Dates.Posted, absolute); posted != nil {
		publish = posted
	}

	doc := Document{
		Country:       src.Country,
		ProgramID:     n.programID,
		Title:         title,
		URL:           absolute,
		Fingerprint:   Fingerprint(title, absolute),
		Abstract:      fmt.Sprintf("%s document from %s", topicOrDefault(c.Topic), src.URL),
		AgencyID:      src.AgencyID,
		DocumentType:  topicOrDefault(c.Topic),
		Reference:     "",
		DocFormat:     n.docFormat,
		PublishDate:   publish,
		ModifiedDate:  modified,
		EffectiveDate: effective,
	}
	return doc, nil
}

func (n *Normalizer) parseDate(raw, docURL string) *time.Time {
	parsed, err := NormalizeDateString(raw)
	if err != nil {
		n.logger.Warn("date parse failed",
			zap.String("input", raw),
			zap.String("url", docURL),
			zap.Error(err),
		)
		return nil
	}
	return parsed
}

// DeriveTitle picks the anchor text, falling back to the topic label and
// finally to "Untitled", then sanitizes and bounds the result.
func DeriveTitle(anchorText, topic string) string {
	title := strings.TrimSpace(anchorText)
	if title == "" {
		title = strings.TrimSpace(topic)
	}
	if title == "" {
		title = fallbackTitle
	}
	return SanitizeTitle(title)
}

// SanitizeTitle strips characters unsafe for filesystem and identity use,
// replaces spaces with underscores, and truncates to the title bound.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case isTitleRune(r):
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	runes := []rune(b.String())
	if len(runes) > maxTitleRunes {
		runes = runes[:maxTitleRunes]
	}
	return string(runes)
}

func isTitleRune(r rune) bool {
	if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
		return true
	}
	switch r {
	case '_', '-', '(', ')', '[', ']':
		return true
	}
	// Non-ASCII letters and digits stay; guidance titles are not always
	// English.
	return r > 127 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// resolveURL turns a possibly relative href into an absolute HTTP(S) URL.
func resolveURL(href, pageURL string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	resolved := ref
	if !ref.IsAbs() {
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("parse page url: %w", err)
		}
		resolved = base.ResolveReference(ref)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", resolved.Scheme)
	}
	if resolved.Host == "" {
		return "", fmt.Errorf("no host after resolution")
	}
	resolved.Fragment = ""
	return resolved.String(), nil
}

func topicOrDefault(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Guidelines"
	}
	return topic
}
