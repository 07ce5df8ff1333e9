package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/manifest"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/render"
	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

// AssetsDir is the output directory assets are copied to. Pages refer to
// assets as /assets/...
const AssetsDir = "assets"

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithIncremental skips pages whose source and settings are unchanged since
// the previous build. The output directory is never cleaned in this mode.
func WithIncremental(on bool) Option {
	return func(b *Builder) { b.incremental = on }
}

// WithFailOnError makes Build return an error when any page failed.
func WithFailOnError(on bool) Option {
	return func(b *Builder) { b.failOnError = on }
}

// Builder renders a content directory into an output directory.
type Builder struct {
	cfg      *config.Config
	src      afero.Fs
	out      afero.Fs
	renderer *render.Renderer
	settings string

	recorder    metrics.Recorder
	logger      *slog.Logger
	incremental bool
	failOnError bool
}

// NewBuilder creates a Builder reading pages and assets from src and
// writing to out. The configuration is validated first so that cleaning the
// output directory can never remove sources.
func NewBuilder(cfg *config.Config, src, out afero.Fs, opts ...Option) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		cfg:      cfg,
		src:      src,
		out:      out,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	r, err := NewRenderer(cfg, src)
	if err != nil {
		return nil, err
	}
	b.renderer = r

	hash, err := manifest.SettingsHash(settings{
		Site:      cfg.Site,
		Generator: version.Generator(),
		Templates: r.Fingerprint(),
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "cannot hash site settings").Build()
	}
	b.settings = hash
	return b, nil
}

// settings is everything besides page sources that shapes rendered output.
// A change invalidates every page of an incremental build.
type settings struct {
	Site      config.SiteConfig `json:"site"`
	Generator string            `json:"generator"`
	Templates string            `json:"templates"`
}

// NewRenderer creates the renderer configured by cfg. Custom templates are
// read from src.
func NewRenderer(cfg *config.Config, src afero.Fs) (*render.Renderer, error) {
	opts := []render.Option{
		render.WithBaseURL(cfg.Site.BaseURL),
		render.WithSiteTitle(cfg.Site.Title),
		render.WithMoreLabel(cfg.Site.MoreLabel),
		render.WithLanguage(cfg.Site.Language),
	}
	if dir := cfg.Content.Templates; dir != "" {
		opts = append(opts, render.WithTemplates(afero.NewIOFS(afero.NewBasePathFs(src, dir)), "*.html"))
	}
	return render.New(opts...)
}

// Build loads, renders and writes every page.
//
// Per-page failures are recorded in the report. The returned error is set
// for infrastructure failures, cancellation, or when the builder fails on
// page errors.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := &Report{BuildID: uuid.NewString(), Start: time.Now()}
	logger := b.logger.With(logfields.BuildID(report.BuildID))
	outDir := b.cfg.Output.Directory

	finish := func(status BuildStatus, err error) (*Report, error) {
		report.Status = status
		report.End = time.Now()
		report.Duration = report.End.Sub(report.Start)
		b.recorder.ObserveBuildDuration(report.Duration)
		b.recorder.IncBuildOutcome(metrics.BuildOutcome(status))
		logger.Info("Build finished",
			slog.String("status", string(status)),
			slog.Int("rendered", report.Rendered()),
			slog.Int("skipped", report.Skipped()),
			slog.Int("failed", report.Failed()+len(report.LoadErrors)),
			logfields.DurationMS(float64(report.Duration.Milliseconds())))
		return report, err
	}

	if ok, _ := afero.DirExists(b.src, b.cfg.Content.Directory); !ok {
		return finish(BuildStatusFailed, errors.NotFoundError("content directory").WithFile(b.cfg.Content.Directory).Build())
	}

	// previous drives stale output removal; reusable is consulted for skips
	// and is only set when the settings are unchanged.
	var previous, reusable *manifest.BuildManifest
	if b.incremental {
		m, err := manifest.Read(b.out, outDir)
		if err != nil {
			logger.Warn("Ignoring unreadable manifest", logfields.Error(err))
		}
		previous = m
		if m != nil && m.SettingsHash == b.settings {
			reusable = m
		} else if m != nil {
			logger.Info("Settings changed, rendering every page")
		}
	} else if b.cfg.Output.Clean {
		if err := b.out.RemoveAll(outDir); err != nil {
			return finish(BuildStatusFailed, errors.WrapError(err, errors.CategoryFileSystem, "cannot clean output directory").WithFile(outDir).Build())
		}
	}

	site, loadErrs := b.load(logger)
	report.LoadErrors = loadErrs

	stageStart := time.Now()
	written := make([]manifest.Page, 0, len(site.Pages))
	for _, page := range site.Pages {
		if err := ctx.Err(); err != nil {
			b.recorder.ObserveStageDuration("render", time.Since(stageStart))
			return finish(BuildStatusCanceled, err)
		}

		res := b.buildPage(page, reusable)
		report.Pages = append(report.Pages, res)
		b.recorder.IncPageResult(metrics.ResultLabel(res.Status))
		if res.Status == PageFailed {
			logger.Warn("Page failed", logfields.Page(page.Source), logfields.Permalink(page.Permalink), logfields.Error(res.Err))
			continue
		}
		written = append(written, manifest.Page{
			Source:      page.Source,
			Permalink:   page.Permalink,
			Fingerprint: page.Fingerprint(),
			Output:      res.Output,
		})
	}
	b.recorder.ObserveStageDuration("render", time.Since(stageStart))

	if previous != nil {
		report.Removed = b.removeStale(logger, previous, written)
	}

	stageStart = time.Now()
	assets, err := b.copyAssets()
	if err != nil {
		return finish(BuildStatusFailed, err)
	}
	report.Assets = len(assets)
	b.recorder.ObserveStageDuration("assets", time.Since(stageStart))

	status := BuildStatusSuccess
	if report.HasErrors() {
		status = BuildStatusWarning
	}

	m := &manifest.BuildManifest{
		BuildID:      report.BuildID,
		Generator:    version.Generator(),
		Timestamp:    report.Start.UTC(),
		Status:       string(status),
		Duration:     time.Since(report.Start).Milliseconds(),
		SettingsHash: b.settings,
		Pages:        written,
		Assets:       assets,
	}
	if err := m.Write(b.out, outDir); err != nil {
		return finish(BuildStatusFailed, errors.WrapError(err, errors.CategoryFileSystem, "cannot write manifest").WithFile(outDir).Build())
	}

	if b.failOnError && report.HasErrors() {
		first := report.Errors()[0]
		total := len(report.LoadErrors) + report.Failed()
		return finish(BuildStatusFailed, errors.WrapError(first, errors.GetCategory(first), fmt.Sprintf("%d page(s) failed", total)).Build())
	}
	return finish(status, nil)
}

func (b *Builder) load(logger *slog.Logger) (*content.Site, []error) {
	start := time.Now()
	site, errs := content.LoadSite(b.src, b.cfg.Content.Directory)
	d := time.Since(start)
	b.recorder.ObserveStageDuration("load", d)

	for _, err := range errs {
		b.recorder.IncPageResult(metrics.ResultFailed)
		logger.Warn("Page not loaded", logfields.Error(err))
	}
	logger.Debug("Loaded pages",
		logfields.Stage("load"),
		logfields.Count(len(site.Pages)),
		logfields.DurationMS(float64(d.Microseconds())/1000))
	return site, errs
}

func (b *Builder) buildPage(page *content.Page, previous *manifest.BuildManifest) PageResult {
	res := PageResult{Source: page.Source, Permalink: page.Permalink, Output: OutputPath(page.Permalink)}
	target := path.Join(b.cfg.Output.Directory, res.Output)

	if prev, ok := previous.Page(page.Permalink); ok && prev.Fingerprint == page.Fingerprint() && prev.Output == res.Output {
		if exists, _ := afero.Exists(b.out, target); exists {
			res.Status = PageSkipped
			return res
		}
	}

	start := time.Now()
	doc, err := b.renderer.Render(page)
	res.Duration = time.Since(start)
	b.recorder.ObservePageRender(res.Duration)
	if err != nil {
		res.Status, res.Err = PageFailed, err
		return res
	}

	if err := b.write(target, doc); err != nil {
		res.Status, res.Err = PageFailed, errors.WrapError(err, errors.CategoryFileSystem, "cannot write page").
			WithFile(page.Source).
			WithContext(errors.ContextPermalink, page.Permalink).
			Build()
		return res
	}
	res.Status = PageRendered
	return res
}

func (b *Builder) write(target string, data []byte) error {
	if err := b.out.MkdirAll(path.Dir(target), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(b.out, target, data, 0o644)
}

// removeStale deletes outputs recorded by the previous build that this build
// did not write: pages that are gone, moved, or failed to render.
func (b *Builder) removeStale(logger *slog.Logger, previous *manifest.BuildManifest, written []manifest.Page) []string {
	current := make(map[string]bool, len(written))
	for _, p := range written {
		current[p.Output] = true
	}

	var removed []string
	for _, p := range previous.Pages {
		if current[p.Output] {
			continue
		}
		target := path.Join(b.cfg.Output.Directory, p.Output)
		if err := b.out.Remove(target); err != nil && !os.IsNotExist(err) {
			logger.Warn("Cannot remove stale output", logfields.Path(target), logfields.Error(err))
			continue
		}
		removed = append(removed, p.Output)
	}
	return removed
}

// copyAssets mirrors the assets directory into the output. It returns the
// copied files relative to the assets directory.
func (b *Builder) copyAssets() ([]string, error) {
	dir := b.cfg.Content.Assets
	if dir == "" {
		return nil, nil
	}
	if ok, _ := afero.DirExists(b.src, dir); !ok {
		return nil, nil
	}

	dst := path.Join(b.cfg.Output.Directory, AssetsDir)
	var copied []string
	err := afero.Walk(b.src, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			return b.out.MkdirAll(path.Join(dst, rel), 0o755)
		}
		data, err := afero.ReadFile(b.src, p)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(b.out, path.Join(dst, rel), data, info.Mode().Perm()|0o200); err != nil {
			return err
		}
		copied = append(copied, rel)
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot copy assets").WithFile(dir).Build()
	}
	return copied, nil
}

// OutputPath maps a permalink to the file it is written to, relative to the
// output directory.
func OutputPath(permalink string) string {
	clean := strings.TrimPrefix(path.Clean("/"+permalink), "/")
	if strings.HasSuffix(strings.ToLower(clean), ".html") {
		return clean
	}
	return path.Join(clean, "index.html")
}
