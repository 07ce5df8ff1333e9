// Package render turns loaded pages into HTML documents.
//
// Page bodies are Markdown. Lines holding a feature_row include directive are
// replaced by the entries of the named feature group, in order. The result is
// wrapped in the page's layout template.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/zeebo/xxh3"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// DefaultMoreLabel is the button label used when an entry has none.
const DefaultMoreLabel = "Learn More"

// Option configures a Renderer.
type Option func(*Renderer)

// WithBaseURL sets the prefix for site-relative asset and link paths.
func WithBaseURL(baseURL string) Option {
	return func(r *Renderer) { r.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithSiteTitle sets the site name shown in document titles.
func WithSiteTitle(title string) Option {
	return func(r *Renderer) { r.siteTitle = title }
}

// WithMoreLabel sets the default button label.
func WithMoreLabel(label string) Option {
	return func(r *Renderer) {
		if label != "" {
			r.moreLabel = label
		}
	}
}

// WithLanguage sets the document language.
func WithLanguage(lang string) Option {
	return func(r *Renderer) {
		if lang != "" {
			r.lang = lang
		}
	}
}

// WithTemplates replaces the built-in templates. The file system must
// define the "single", "splash", "header" and "feature_row" templates.
func WithTemplates(fsys fs.FS, patterns ...string) Option {
	return func(r *Renderer) {
		r.templateFS = fsys
		r.templatePatterns = patterns
	}
}

// Renderer renders pages. It holds no per-page state.
type Renderer struct {
	baseURL          string
	siteTitle        string
	moreLabel        string
	lang             string
	templateFS       fs.FS
	templatePatterns []string

	tmpl        *template.Template
	sanitize    *bluemonday.Policy
	inline      goldmark.Markdown
	fingerprint string
}

// New creates a Renderer and parses its templates.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		moreLabel:        DefaultMoreLabel,
		lang:             "en",
		templateFS:       defaultTemplates,
		templatePatterns: []string{"templates/*.html"},
		sanitize:         bluemonday.UGCPolicy(),
		inline:           goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify)),
	}
	for _, opt := range opts {
		opt(r)
	}

	tmpl, err := template.New("pagebuilder").Funcs(r.funcs()).ParseFS(r.templateFS, r.templatePatterns...)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "cannot parse templates").Build()
	}
	for _, name := range []string{string(content.LayoutSingle), string(content.LayoutSplash), "header", "feature_row"} {
		if tmpl.Lookup(name) == nil {
			return nil, errors.ConfigError("template is not defined").WithContext("template", name).Build()
		}
	}
	r.tmpl = tmpl

	fp, err := templatesFingerprint(r.templateFS, r.templatePatterns)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "cannot read templates").Build()
	}
	r.fingerprint = fp
	return r, nil
}

// Fingerprint identifies the template sources the renderer was built from.
// It changes whenever a template file is edited, added or removed.
func (r *Renderer) Fingerprint() string {
	return r.fingerprint
}

func templatesFingerprint(fsys fs.FS, patterns []string) (string, error) {
	var names []string
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return "", err
		}
		names = append(names, matches...)
	}
	slices.Sort(names)
	names = slices.Compact(names)

	h := xxh3.New()
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", err
		}
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

func (r *Renderer) markdown(page *content.Page) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&featureRows{write: func(w io.Writer, row *FeatureRow) error {
				return r.writeFeatureRow(w, page, row)
			}},
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// Render produces the complete HTML document for a page.
func (r *Renderer) Render(page *content.Page) ([]byte, error) {
	body, err := r.RenderBody(page)
	if err != nil {
		return nil, err
	}

	data, err := r.documentData(page, body)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, string(page.Layout), data); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "cannot execute layout").
			WithFile(page.Source).
			WithContext("layout", string(page.Layout)).
			Build()
	}
	return buf.Bytes(), nil
}

// RenderBody renders only the page body with its feature groups interpolated.
func (r *Renderer) RenderBody(page *content.Page) ([]byte, error) {
	source := page.Body()
	md := r.markdown(page)

	doc := md.Parser().Parse(text.NewReader(source))
	if err := resolve(doc, source, page); err != nil {
		return nil, err
	}
	if err := rejectStray(doc, source, page); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, doc); err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryRender, "cannot render body").WithFile(page.Source).Build()
	}
	return buf.Bytes(), nil
}

// Directives lists the insertion directives in a page body in document order.
func (r *Renderer) Directives(page *content.Page) []Directive {
	source := page.Body()
	doc := r.markdown(page).Parser().Parse(text.NewReader(source))

	var out []Directive
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if row, ok := n.(*FeatureRow); ok && entering {
			out = append(out, row.Directive)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// resolve attaches group entries to every directive, failing on the first
// directive that cannot be satisfied by the page.
func resolve(doc ast.Node, source []byte, page *content.Page) error {
	return ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		row, ok := n.(*FeatureRow)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}

		d := row.Directive
		line := page.BodyLine()
		if row.Lines().Len() > 0 {
			line += bytes.Count(source[:row.Lines().At(0).Start], []byte("\n"))
		}
		unresolved := func(message string) error {
			return errors.UnresolvedReference(message).
				WithFile(page.Source).
				WithContext(errors.ContextDirective, d.Text).
				WithContext(errors.ContextGroup, d.Group()).
				WithContext(errors.ContextLine, line).
				Build()
		}

		if d.Include != FeatureRowInclude {
			return ast.WalkStop, unresolved("unsupported include " + strconv.Quote(d.Include))
		}
		if !rowTypes[d.Type()] {
			return ast.WalkStop, unresolved("unsupported feature_row type " + strconv.Quote(d.Type()))
		}
		entries, err := page.FeatureGroup(d.Group())
		if err != nil {
			return ast.WalkStop, unresolved("insertion point references an undefined feature group")
		}
		row.Entries = entries
		return ast.WalkSkipChildren, nil
	})
}

// rejectStray fails on include directives the block parser did not pick up,
// such as one inside a paragraph or an HTML block. Code is left alone.
func rejectStray(doc ast.Node, source []byte, page *content.Page) error {
	var found string
	var at int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *FeatureRow, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			lines := n.Lines()
			for i := range lines.Len() {
				seg := lines.At(i)
				if m := strayPattern.Find(seg.Value(source)); m != nil {
					found, at = string(m), seg.Start
					return ast.WalkStop, nil
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if m := strayPattern.FindString(inlineText(n, source)); m != "" {
				found, at = m, blockStart(n, source, m)
				return ast.WalkStop, nil
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if found == "" {
		return nil
	}

	return errors.UnresolvedReference("include directive must stand on its own line").
		WithFile(page.Source).
		WithContext(errors.ContextDirective, found).
		WithContext(errors.ContextLine, page.BodyLine()+bytes.Count(source[:at], []byte("\n"))).
		Build()
}

// inlineText joins the literal text of a block's inlines, leaving out code
// spans.
func inlineText(block ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.CodeSpan:
			sb.WriteByte(0)
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(n.Value)
		case *ast.RawHTML:
			for i := range n.Segments.Len() {
				seg := n.Segments.At(i)
				sb.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// blockStart returns the offset of the block line holding text, or of the
// block's first line.
func blockStart(block ast.Node, source []byte, text string) int {
	lines := block.Lines()
	if lines.Len() == 0 {
		return 0
	}
	for i := range lines.Len() {
		seg := lines.At(i)
		if bytes.Contains(seg.Value(source), []byte(text)) {
			return seg.Start
		}
	}
	return lines.At(0).Start
}
