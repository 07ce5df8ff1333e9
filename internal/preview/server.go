// Package preview serves pages straight from the content directory,
// rendering each request from an in-memory snapshot that is reloaded when
// the content changes.
package preview

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/render"
)

// StatusPath serves the loaded pages and load errors as JSON.
const StatusPath = "/_pagebuilder/status"

// Option configures a Server.
type Option func(*Server)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithRegistry exposes reg on /metrics.
func WithRegistry(reg *prom.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

// WithoutWatch disables reloading on file changes in Run.
func WithoutWatch() Option {
	return func(s *Server) { s.noWatch = true }
}

// snapshot is an immutable view of the content directory.
type snapshot struct {
	site     *content.Site
	loadErrs []error
	renderer *render.Renderer
	loaded   time.Time
}

// Server renders pages on request.
type Server struct {
	cfg      *config.Config
	src      afero.Fs
	recorder metrics.Recorder
	registry *prom.Registry
	logger   *slog.Logger
	errs     *errors.HTTPErrorAdapter
	debounce time.Duration
	noWatch  bool

	mu   sync.RWMutex
	snap *snapshot
}

// New creates a Server and loads the first snapshot.
func New(cfg *config.Config, src afero.Fs, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		src:      src,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errs = errors.NewHTTPErrorAdapter(s.logger)

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reloads pages and templates. On failure the previous snapshot
// stays in place.
func (s *Server) Reload() error {
	start := time.Now()
	if ok, _ := afero.DirExists(s.src, s.cfg.Content.Directory); !ok {
		s.recorder.IncPreviewReload(false)
		return errors.NotFoundError("content directory").WithFile(s.cfg.Content.Directory).Build()
	}

	r, err := build.NewRenderer(s.cfg, s.src)
	if err != nil {
		s.recorder.IncPreviewReload(false)
		return err
	}
	site, loadErrs := content.LoadSite(s.src, s.cfg.Content.Directory)
	for _, err := range loadErrs {
		s.logger.Warn("Page not loaded", logfields.Error(err))
	}

	s.mu.Lock()
	s.snap = &snapshot{site: site, loadErrs: loadErrs, renderer: r, loaded: time.Now()}
	s.mu.Unlock()

	s.recorder.IncPreviewReload(true)
	s.logger.Info("Content loaded",
		logfields.Count(len(site.Pages)),
		slog.Int("errors", len(loadErrs)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return nil
}

func (s *Server) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withLogging)
	r.Use(middleware.GetHead)

	if s.registry != nil {
		r.Handle("/metrics", metrics.HTTPHandler(s.registry))
	}
	if dir := s.cfg.Content.Assets; dir != "" {
		files := http.FileServer(afero.NewHttpFs(afero.NewBasePathFs(s.src, dir)))
		r.Handle("/"+build.AssetsDir+"/*", http.StripPrefix("/"+build.AssetsDir, files))
	}
	r.Get(StatusPath, s.status)
	r.Get("/*", s.page)
	return r
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.recorder.IncPreviewRequest(ww.Status())
			s.logger.Debug("Request",
				logfields.Method(r.Method),
				logfields.Path(r.URL.Path),
				logfields.Status(ww.Status()),
				logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	snap := s.current()
	page, ok := lookup(snap.site, r.URL.Path)
	if !ok {
		s.errs.WriteErrorResponse(w, r, errors.NotFoundError("page").WithContext(errors.ContextPermalink, r.URL.Path).Build())
		return
	}

	start := time.Now()
	doc, err := snap.renderer.Render(page)
	s.recorder.ObservePageRender(time.Since(start))
	if err != nil {
		s.errs.WriteErrorResponse(w, r, err)
		return
	}

	etag := `"` + strconv.FormatUint(xxh3.Hash(doc), 16) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	_, _ = w.Write(doc)
}

// lookup resolves a request path to a page. /about, /about/ and
// /about/index.html all reach the page with permalink /about/.
func lookup(site *content.Site, p string) (*content.Page, bool) {
	candidates := []string{p}
	if trimmed, ok := strings.CutSuffix(p, "index.html"); ok {
		candidates = append(candidates, trimmed)
	}
	if !strings.HasSuffix(p, "/") {
		candidates = append(candidates, p+"/")
	} else if p != "/" {
		candidates = append(candidates, strings.TrimSuffix(p, "/"))
	}
	for _, c := range candidates {
		if page, ok := site.Page(c); ok {
			return page, true
		}
	}
	return nil, false
}

func matchesETag(header, etag string) bool {
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

type statusResponse struct {
	Loaded time.Time                  `json:"loaded"`
	Pages  []statusPage               `json:"pages"`
	Errors []errors.HTTPErrorResponse `json:"errors"`
}

type statusPage struct {
	Source    string   `json:"source"`
	Permalink string   `json:"permalink"`
	Groups    []string `json:"groups,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	snap := s.current()
	resp := statusResponse{
		Loaded: snap.loaded.UTC(),
		Pages:  make([]statusPage, 0, len(snap.site.Pages)),
		Errors: make([]errors.HTTPErrorResponse, 0, len(snap.loadErrs)),
	}
	for _, p := range snap.site.Pages {
		resp.Pages = append(resp.Pages, statusPage{Source: p.Source, Permalink: p.Permalink, Groups: p.GroupNames()})
	}
	for _, err := range snap.loadErrs {
		resp.Errors = append(resp.Errors, s.errs.FormatErrorResponse(err))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Run serves on the configured address and watches the content directory
// until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Preview.Addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "cannot listen").WithField("preview.addr").Build()
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	watchErr := make(chan error, 1)
	if !s.noWatch {
		go func() { watchErr <- s.Watch(ctx) }()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	s.logger.Info("Preview server listening", logfields.Addr("http://"+ln.Addr().String()))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return errors.WrapError(err, errors.CategoryInternal, "preview server stopped").Build()
		}
	case err := <-watchErr:
		if err != nil {
			_ = srv.Close()
			return err
		}
	}

	s.logger.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	return nil
}
