package preview

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
)

const teachingPage = `---
permalink: /teaching/
title: Teaching
teaching:
  - title: Linux Workshops
  - title: Math Tutorials
---
{% include feature_row id="teaching" %}
`

func newTestServer(t *testing.T, opts ...Option) (*Server, afero.Fs, *config.Config) {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/site/pages/teaching.md": teachingPage,
		"/site/pages/broken.md":   "---\npermalink: /broken/\ntitle: Broken\n---\n{% include feature_row id=\"nope\" %}\n",
		"/site/pages/bad.md":      "no front matter\n",
		"/site/pages/index.md":    "---\npermalink: /\ntitle: Home\n---\nWelcome.\n",
		"/site/assets/me.jpg":     "jpg",
	}
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	cfg := config.Default()
	cfg.Content.Directory = "/site/pages"
	cfg.Content.Assets = "/site/assets"

	s, err := New(cfg, fs, opts...)
	require.NoError(t, err)
	return s, fs, cfg
}

func get(t *testing.T, h http.Handler, path string, header ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

func TestServer_RendersPage(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	for _, p := range []string{"/teaching/", "/teaching", "/teaching/index.html"} {
		res := get(t, h, p)
		require.Equal(t, http.StatusOK, res.StatusCode, p)
		require.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
		require.Contains(t, body(t, res), "Linux Workshops")
	}

	res := get(t, h, "/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body(t, res), "Welcome.")
}

func TestServer_ETag(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	first := get(t, h, "/teaching/")
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)
	require.Equal(t, etag, get(t, h, "/teaching/").Header.Get("ETag"))

	res := get(t, h, "/teaching/", "If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, res.StatusCode)
	require.Empty(t, body(t, res))

	res = get(t, h, "/teaching/", "If-None-Match", `"other", W/`+etag)
	require.Equal(t, http.StatusNotModified, res.StatusCode)

	res = get(t, h, "/teaching/", "If-None-Match", `"other"`)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServer_Errors(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	res := get(t, h, "/missing/")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	var notFound errors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&notFound))
	require.Equal(t, string(errors.CategoryNotFound), notFound.Code)

	res = get(t, h, "/broken/")
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	var unresolved errors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&unresolved))
	require.Equal(t, string(errors.CategoryUnresolvedReference), unresolved.Code)
	require.Equal(t, "broken.md", unresolved.Details[errors.ContextFile])
}

func TestServer_Assets(t *testing.T) {
	s, _, _ := newTestServer(t)
	res := get(t, s.Handler(), "/assets/me.jpg")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "jpg", body(t, res))

	require.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/assets/none.jpg").StatusCode)
}

func TestServer_Status(t *testing.T) {
	s, _, _ := newTestServer(t)
	res := get(t, s.Handler(), StatusPath)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status statusResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	require.Len(t, status.Pages, 3)
	require.Equal(t, "broken.md", status.Pages[0].Source)
	require.Equal(t, []string{"teaching"}, status.Pages[2].Groups)
	require.Len(t, status.Errors, 1)
	require.Equal(t, string(errors.CategoryParse), status.Errors[0].Code)
}

func TestServer_Reload(t *testing.T) {
	s, fs, _ := newTestServer(t)
	h := s.Handler()
	require.Equal(t, http.StatusNotFound, get(t, h, "/new/").StatusCode)

	require.NoError(t, afero.WriteFile(fs, "/site/pages/new.md", []byte("---\npermalink: /new/\ntitle: New\n---\n"), 0o644))
	require.NoError(t, s.Reload())
	require.Equal(t, http.StatusOK, get(t, h, "/new/").StatusCode)

	// A failed reload keeps serving the last snapshot.
	require.NoError(t, fs.RemoveAll("/site/pages"))
	require.True(t, errors.HasCategory(s.Reload(), errors.CategoryNotFound))
	require.Equal(t, http.StatusOK, get(t, h, "/new/").StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	reg := prom.NewRegistry()
	s, _, _ := newTestServer(t, WithRegistry(reg), WithRecorder(metrics.NewPrometheusRecorder(reg)))
	h := s.Handler()

	get(t, h, "/teaching/")
	get(t, h, "/missing/")

	res := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, res.StatusCode)
	text := body(t, res)
	require.Contains(t, text, `pagebuilder_preview_requests_total{code="200"} 1`)
	require.Contains(t, text, `pagebuilder_preview_requests_total{code="404"} 1`)
	require.Contains(t, text, `pagebuilder_preview_reloads_total{result="success"} 1`)
}

func TestNew_MissingContent(t *testing.T) {
	cfg := config.Default()
	cfg.Content.Directory = "/nope"
	_, err := New(cfg, afero.NewMemMapFs())
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	pages := filepath.Join(dir, "pages")
	require.NoError(t, os.MkdirAll(pages, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pages, "a.md"), []byte("---\npermalink: /a/\ntitle: A\n---\n"), 0o644))

	cfg := config.Default()
	cfg.Content.Directory = pages
	cfg.Content.Assets = ""
	s, err := New(cfg, afero.NewOsFs(), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	h := s.Handler()
	require.Eventually(t, func() bool {
		// Rewrite until the watcher has registered the directory.
		_ = os.WriteFile(filepath.Join(pages, "b.md"), []byte("---\npermalink: /b/\ntitle: B\n---\n"), 0o644)
		return get(t, h, "/b/").StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

func TestLookup(t *testing.T) {
	s, _, _ := newTestServer(t)
	site := s.current().site

	for _, p := range []string{"/", "/index.html", "/teaching", "/teaching/", "/teaching/index.html"} {
		_, ok := lookup(site, p)
		require.True(t, ok, p)
	}
	_, ok := lookup(site, "/teach")
	require.False(t, ok)
}

func TestShouldIgnoreEvent(t *testing.T) {
	require.True(t, shouldIgnoreEvent("/tmp/.hidden.md"))
	require.True(t, shouldIgnoreEvent("/tmp/#foo#"))
	require.True(t, shouldIgnoreEvent("/tmp/foo.swp"))
	require.True(t, shouldIgnoreEvent("/tmp/foo.md~"))
	require.False(t, shouldIgnoreEvent("/tmp/visible.md"))
}
