package render

import (
	"bytes"
	"html/template"
	"io"
	"strings"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

type siteData struct {
	Title   string
	BaseURL string
	Lang    string
}

type documentData struct {
	Site    siteData
	Page    *content.Page
	Hero    string
	Caption template.HTML
	Excerpt template.HTML
	Content template.HTML
}

type featureRowData struct {
	Group     string
	Type      string
	MoreLabel string
	Entries   []content.FeatureEntry
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"asset":    r.assetURL,
		"markdown": r.markdownHTML,
		"inline":   r.inlineHTML,
		"default": func(fallback, v string) string {
			if strings.TrimSpace(v) == "" {
				return fallback
			}
			return v
		},
	}
}

// assetURL prefixes site-relative paths with the base URL. Anything else,
// absolute URLs included, is returned unchanged.
func (r *Renderer) assetURL(p string) string {
	if strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") {
		return r.baseURL + p
	}
	return p
}

// markdownHTML renders a short Markdown fragment and sanitizes the result.
func (r *Renderer) markdownHTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.inline.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// #nosec G203 -- output passed through the bluemonday UGC policy.
	return template.HTML(strings.TrimSpace(r.sanitize.Sanitize(buf.String()))), nil
}

// inlineHTML is markdownHTML without the wrapping paragraph.
func (r *Renderer) inlineHTML(src string) (template.HTML, error) {
	h, err := r.markdownHTML(src)
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(strings.TrimPrefix(string(h), "<p>"), "</p>")
	return template.HTML(s), nil // #nosec G203 -- already sanitized
}

func (r *Renderer) documentData(page *content.Page, body []byte) (documentData, error) {
	data := documentData{
		Site: siteData{Title: r.siteTitle, BaseURL: r.baseURL, Lang: r.lang},
		Page: page,
		Hero: page.Header.HeroImage(),
		// #nosec G203 -- body HTML is produced by goldmark from author content.
		Content: template.HTML(body),
	}

	var err error
	if page.Header.Caption != "" {
		if data.Caption, err = r.inlineHTML(page.Header.Caption); err != nil {
			return data, errors.WrapError(err, errors.CategoryRender, "cannot render header caption").WithFile(page.Source).Build()
		}
	}
	if page.Excerpt != "" {
		if data.Excerpt, err = r.markdownHTML(page.Excerpt); err != nil {
			return data, errors.WrapError(err, errors.CategoryRender, "cannot render excerpt").WithFile(page.Source).Build()
		}
	}
	return data, nil
}

func (r *Renderer) writeFeatureRow(w io.Writer, page *content.Page, row *FeatureRow) error {
	data := featureRowData{
		Group:     row.Directive.Group(),
		Type:      row.Directive.Type(),
		MoreLabel: r.moreLabel,
		Entries:   row.Entries,
	}
	if err := r.tmpl.ExecuteTemplate(w, "feature_row", data); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "cannot render feature row").
			WithFile(page.Source).
			WithContext(errors.ContextGroup, data.Group).
			Build()
	}
	return nil
}
