package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/fetch"
	"github.com/medregs/guidance-intake/internal/intake"
	"github.com/medregs/guidance-intake/internal/render"
)

type stubChecker struct {
	known map[string]bool
	err   error
}

func (s *stubChecker) ExistsByURL(_ context.Context, url string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[url], nil
}

func newTestClient(t *testing.T) *fetch.Client {
	t.Helper()
	c, err := fetch.NewClient(fetch.Config{
		RequestTimeout:     5 * time.Second,
		MaxAttempts:        2,
		Concurrency:        4,
		RateLimitPerDomain: 1000,
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 artifact"))
	}))
	defer srv.Close()

	c, err := NewDiskCache(Config{Dir: t.TempDir()}, newTestClient(t), nil, &stubChecker{}, zap.NewNop())
	require.NoError(t, err)

	url := srv.URL + "/files/guide.pdf"
	got, err := c.Fetch(context.Background(), url, "Guide")
	require.NoError(t, err)
	require.True(t, got.Downloaded)
	require.Equal(t, "guide.pdf", filepath.Base(got.Path))

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 artifact"), data)

	// Second fetch is served from disk.
	again, err := c.Fetch(context.Background(), url, "Guide")
	require.NoError(t, err)
	require.False(t, again.Downloaded)
	require.Equal(t, got.Path, again.Path)
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchSkipsKnownURLs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no network access expected")
	}))
	defer srv.Close()

	url := srv.URL + "/files/guide.pdf"
	checker := &stubChecker{known: map[string]bool{url: true}}
	c, err := NewDiskCache(Config{Dir: t.TempDir()}, newTestClient(t), nil, checker, zap.NewNop())
	require.NoError(t, err)

	got, err := c.Fetch(context.Background(), url, "Guide")
	require.NoError(t, err)
	require.True(t, got.AlreadyStored)
	require.Empty(t, got.Path)
}

func TestFetchRendersHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>G</title></head><body><p>text</p></body></html>"))
	}))
	defer srv.Close()

	c, err := NewDiskCache(Config{Dir: t.TempDir()}, newTestClient(t), render.NewStaticRenderer(), &stubChecker{}, zap.NewNop())
	require.NoError(t, err)

	got, err := c.Fetch(context.Background(), srv.URL+"/guide.html", "Guide")
	require.NoError(t, err)
	require.Equal(t, "guide.pdf", filepath.Base(got.Path))

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	require.True(t, len(data) > 4 && string(data[:5]) == "%PDF-")
}

func TestFetchFailureIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewDiskCache(Config{Dir: t.TempDir()}, newTestClient(t), nil, &stubChecker{}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), srv.URL+"/missing.pdf", "Guide")
	var fetchErr *intake.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := NewDiskCache(Config{Dir: dir}, newTestClient(t), nil, &stubChecker{}, zap.NewNop())
	require.NoError(t, err)

	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, c.Remove(path))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Removing again (or an empty path) is not an error.
	require.NoError(t, c.Remove(path))
	require.NoError(t, c.Remove(""))
}

func TestNewDiskCacheValidatesDir(t *testing.T) {
	t.Parallel()

	_, err := NewDiskCache(Config{}, newTestClient(t), nil, nil, zap.NewNop())
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		url        string
		title      string
		want       string
		wantRender bool
	}{
		{name: "pdf basename", url: "https://x.org/files/guide.pdf", want: "guide.pdf"},
		{name: "escaped path", url: "https://x.org/files/import%20guide.pdf", want: "import_guide.pdf"},
		{name: "html swaps extension", url: "https://x.org/page.html", want: "page.pdf", wantRender: true},
		{name: "htm swaps extension", url: "https://x.org/page.htm", want: "page.pdf", wantRender: true},
		{name: "no extension gains pdf", url: "https://x.org/files/guide", want: "guide.pdf"},
		{name: "empty path falls back to title", url: "https://x.org/", title: "Import Guide", want: "Import_Guide.pdf"},
		{name: "nothing usable", url: "https://x.org/", want: "document.pdf"},
		{name: "illegal characters replaced", url: "https://x.org/a%3Cb%3Ec.pdf", want: "a_b_c.pdf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, renderNeeded := FileName(tc.url, tc.title)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.wantRender, renderNeeded)
		})
	}
}

func TestFileNameTruncates(t *testing.T) {
	t.Parallel()

	name, _ := FileName("https://x.org/"+strings.Repeat("a", 300)+".pdf", "")
	require.LessOrEqual(t, len(name), maxFileNameLen)
	require.Equal(t, ".pdf", filepath.Ext(name))
}

func TestFileNameTruncatesWithoutSplittingRunes(t *testing.T) {
	t.Parallel()

	name, _ := FileName("https://x.org/"+strings.Repeat("%C3%A9", 300)+".pdf", "")
	require.True(t, utf8.ValidString(name))
	require.LessOrEqual(t, utf8.RuneCountInString(name), maxFileNameLen)
	require.Equal(t, ".pdf", filepath.Ext(name))
}

func TestFetchFailedWriteLeavesNoPartialFile(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 artifact"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := NewDiskCache(Config{Dir: dir}, newTestClient(t), nil, &stubChecker{}, zap.NewNop())
	require.NoError(t, err)

	// Point the target name into a directory that does not exist so the
	// write fails after a successful download.
	path := filepath.Join(dir, "guide.pdf")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing", "guide.pdf"), path))

	url := srv.URL + "/files/guide.pdf"
	_, err = c.Fetch(context.Background(), url, "Guide")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())

	// Nothing may be left behind for a later run to mistake for a cached
	// artifact.
	_, err = os.Lstat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	got, err := c.Fetch(context.Background(), url, "Guide")
	require.NoError(t, err)
	require.True(t, got.Downloaded)
	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 artifact"), data)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetchStoreErrorPropagates(t *testing.T) {
	t.Parallel()

	checker := &stubChecker{err: errors.New("db down")}
	c, err := NewDiskCache(Config{Dir: t.TempDir()}, newTestClient(t), nil, checker, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "https://x.org/a.pdf", "A")
	require.ErrorContains(t, err, "db down")
}
