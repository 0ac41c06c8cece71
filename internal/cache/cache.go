// Package cache implements the local retrieval cache for document artifacts.
//
// The cache never re-fetches what it already has: a URL already recorded in
// the document store short-circuits before any network access, and a file
// already on disk is reused as is.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/fetch"
	"github.com/medregs/guidance-intake/internal/intake"
	"github.com/medregs/guidance-intake/internal/render"
)

// maxFileNameLen bounds derived file names, extension included.
const maxFileNameLen = 200

// Getter is the fetch surface the cache needs.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// URLChecker answers whether a URL was already ingested.
type URLChecker interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
}

// Config holds cache settings.
type Config struct {
	Dir string
}

// DiskCache stores fetched artifacts under a single directory.
type DiskCache struct {
	dir      string
	client   Getter
	renderer render.Renderer
	store    URLChecker
	logger   *zap.Logger
}

// NewDiskCache validates the cache directory and returns a ready cache. The
// directory is created if absent and probed for writability up front so a
// misconfigured mount fails at startup, not mid-run.
func NewDiskCache(cfg Config, client Getter, renderer render.Renderer, store URLChecker, logger *zap.Logger) (*DiskCache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	probe := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return nil, fmt.Errorf("cache dir not writable: %w", err)
	}
	_ = os.Remove(probe)

	return &DiskCache{
		dir:      cfg.Dir,
		client:   client,
		renderer: renderer,
		store:    store,
		logger:   logger,
	}, nil
}

// Fetch returns a local file for rawURL, downloading it only when neither the
// store nor the disk already has it. HTML resources are rendered to PDF
// before being written.
func (c *DiskCache) Fetch(ctx context.Context, rawURL, title string) (intake.CachedFile, error) {
	if c.store != nil {
		stored, err := c.store.ExistsByURL(ctx, rawURL)
		if err != nil {
			return intake.CachedFile{}, fmt.Errorf("url lookup: %w", err)
		}
		if stored {
			c.logger.Debug("url already ingested, skipping download", zap.String("url", rawURL))
			return intake.CachedFile{AlreadyStored: true}, nil
		}
	}

	name, renderNeeded := FileName(rawURL, title)
	path := filepath.Join(c.dir, name)
	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("artifact already cached", zap.String("path", path))
		return intake.CachedFile{Path: path}, nil
	}

	resp, err := c.client.Get(ctx, rawURL)
	if err != nil {
		return intake.CachedFile{}, &intake.FetchError{URL: rawURL, Err: err}
	}

	data := resp.Body
	if renderNeeded || isHTMLContent(resp.ContentType) {
		if c.renderer == nil {
			return intake.CachedFile{}, &intake.FetchError{URL: rawURL, Err: errors.New("html resource but no renderer configured")}
		}
		rendered, err := c.renderer.RenderPDF(ctx, rawURL, resp.Body)
		if err != nil {
			return intake.CachedFile{}, &intake.FetchError{URL: rawURL, Err: fmt.Errorf("render: %w", err)}
		}
		data = rendered
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		// A partial file would be mistaken for a cache hit on the next
		// run; remove it before reporting the failure.
		_ = os.Remove(path)
		return intake.CachedFile{}, fmt.Errorf("write cached file: %w", err)
	}
	return intake.CachedFile{Path: path, Downloaded: true}, nil
}

// Remove deletes a cached file. A missing file is not an error.
func (c *DiskCache) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FileName derives the cache file name for a URL. The second return reports
// that the resource is an HTML page that must be rendered; its name already
// carries the .pdf extension in that case. The title is the fallback when the
// URL path yields nothing usable.
func FileName(rawURL, title string) (string, bool) {
	base := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		base = path.Base(parsed.Path)
		if base == "." || base == "/" {
			base = ""
		}
		if unescaped, err := url.QueryUnescape(base); err == nil {
			base = unescaped
		}
	}

	base = sanitizeFileName(base)
	if strings.TrimSuffix(base, filepath.Ext(base)) == "" {
		base = sanitizeFileName(intake.SanitizeTitle(title))
	}
	if base == "" {
		base = "document"
	}

	renderNeeded := false
	switch strings.ToLower(filepath.Ext(base)) {
	case ".html", ".htm":
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
		renderNeeded = true
	case "":
		base += ".pdf"
	}

	if utf8.RuneCountInString(base) > maxFileNameLen {
		ext := filepath.Ext(base)
		stem := []rune(strings.TrimSuffix(base, ext))
		keep := maxFileNameLen - utf8.RuneCountInString(ext)
		base = string(stem[:keep]) + ext
	}
	return base, renderNeeded
}

// sanitizeFileName replaces characters that are unsafe in file names and
// collapses runs of underscores.
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*', ' ':
			b.WriteRune('_')
		default:
			if r < 32 {
				continue
			}
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_. ")
}

func isHTMLContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
