package content

import (
	"strconv"
	"strings"

	"github.com/inful/mdfp"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/frontmatter"
)

// Front matter keys with a fixed meaning.
const (
	KeyPermalink = "permalink"
	KeyTitle     = "title"
	KeyLayout    = "layout"
	KeyExcerpt   = "excerpt"
	KeyHeader    = "header"
)

// LoadPage parses a front matter document into a Page.
//
// name identifies the source in errors. Missing or invalid required fields
// fail with a malformed content error; a missing, unterminated or malformed
// front matter block fails with a parse error.
func LoadPage(source []byte, name string) (*Page, error) {
	block, err := frontmatter.Split(source)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "invalid front matter block").WithFile(name).Build()
	}
	if !block.Had {
		return nil, errors.ParseError("front matter block is required").WithFile(name).Build()
	}

	root, err := frontmatter.Decode(block.Raw)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "front matter is not well-formed YAML").WithFile(name).Build()
	}

	p := &Page{
		Source:      name,
		Layout:      DefaultLayout,
		body:        norm.NFC.Bytes(block.Body),
		bodyLine:    block.BodyLine,
		fingerprint: mdfp.CalculateFingerprintFromParts(string(block.Raw), string(block.Body)),
	}

	for _, f := range frontmatter.Fields(root) {
		if err := p.apply(f); err != nil {
			return nil, err
		}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) apply(f frontmatter.Field) error {
	switch f.Key {
	case KeyPermalink:
		v, err := p.scalar(f)
		p.Permalink = strings.TrimSpace(v)
		return err
	case KeyTitle:
		v, err := p.scalar(f)
		p.Title = v
		return err
	case KeyLayout:
		v, err := p.scalar(f)
		p.Layout = Layout(strings.TrimSpace(v))
		return err
	case KeyExcerpt:
		v, err := p.scalar(f)
		p.Excerpt = v
		return err
	case KeyHeader:
		return p.decodeHeader(f)
	}

	if isGroupNode(f.Value) {
		return p.decodeGroup(f)
	}
	if isEmptySequence(f.Value) {
		// Could be an empty feature group or an empty plain list such as
		// tags, so it is both.
		p.groups = append(p.groups, FeatureGroup{Name: f.Key, Entries: []FeatureEntry{}})
	}

	var v any
	if err := f.Value.Decode(&v); err != nil {
		return p.malformed(f, "cannot decode front matter value", err)
	}
	if p.Params == nil {
		p.Params = make(map[string]any)
	}
	p.Params[f.Key] = v
	return nil
}

func (p *Page) scalar(f frontmatter.Field) (string, error) {
	if f.Value.Kind != yaml.ScalarNode {
		return "", p.malformed(f, "expected a single value", nil)
	}
	if f.Value.Tag == "!!null" {
		return "", nil
	}
	return norm.NFC.String(f.Value.Value), nil
}

func (p *Page) decodeHeader(f frontmatter.Field) error {
	if f.Value.Kind != yaml.MappingNode {
		if f.Value.Tag == "!!null" {
			return nil
		}
		return p.malformed(f, "header must be a mapping", nil)
	}
	var h Header
	if err := f.Value.Decode(&h); err != nil {
		return p.malformed(f, "cannot decode header", err)
	}
	h.Caption = norm.NFC.String(h.Caption)
	for i := range h.Actions {
		h.Actions[i].Label = norm.NFC.String(h.Actions[i].Label)
	}
	p.Header = h
	return nil
}

// isGroupNode reports whether a front matter value is a feature group: a
// sequence that opens with a mapping.
func isGroupNode(n *yaml.Node) bool {
	return n.Kind == yaml.SequenceNode && len(n.Content) > 0 && n.Content[0].Kind == yaml.MappingNode
}

func isEmptySequence(n *yaml.Node) bool {
	return n.Kind == yaml.SequenceNode && len(n.Content) == 0
}

func (p *Page) decodeGroup(f frontmatter.Field) error {
	group := FeatureGroup{Name: f.Key, Entries: make([]FeatureEntry, 0, len(f.Value.Content))}
	for i, item := range f.Value.Content {
		if item.Kind != yaml.MappingNode {
			return p.malformed(f, "feature entry "+strconv.Itoa(i)+" must be a mapping", nil)
		}
		var entry FeatureEntry
		if err := item.Decode(&entry); err != nil {
			return p.malformed(f, "cannot decode feature entry "+strconv.Itoa(i), err)
		}
		for _, tag := range ButtonClassTokens(entry.ButtonClass) {
			if !IsButtonClass(tag) {
				return errors.MalformedContent("unknown button style "+strconv.Quote(tag)).
					WithFile(p.Source).
					WithField(f.Key+"["+strconv.Itoa(i)+"].btn_class").
					WithContext(errors.ContextLine, item.Line).
					Build()
			}
		}
		group.Entries = append(group.Entries, normalizeEntry(entry))
	}
	p.groups = append(p.groups, group)
	return nil
}

func normalizeEntry(e FeatureEntry) FeatureEntry {
	e.Alt = norm.NFC.String(e.Alt)
	e.ImageCaption = norm.NFC.String(e.ImageCaption)
	e.Title = norm.NFC.String(e.Title)
	e.Excerpt = norm.NFC.String(e.Excerpt)
	e.ButtonLabel = norm.NFC.String(e.ButtonLabel)
	e.ButtonClass = strings.Join(ButtonClassTokens(e.ButtonClass), " ")
	return e
}

func (p *Page) validate() error {
	if p.Permalink == "" {
		return errors.MalformedContent("missing required field").WithFile(p.Source).WithField(KeyPermalink).Build()
	}
	if !strings.HasPrefix(p.Permalink, "/") {
		return errors.MalformedContent("permalink must start with /").
			WithFile(p.Source).
			WithField(KeyPermalink).
			WithContext(errors.ContextPermalink, p.Permalink).
			Build()
	}
	if strings.TrimSpace(p.Title) == "" {
		return errors.MalformedContent("missing required field").WithFile(p.Source).WithField(KeyTitle).Build()
	}
	if !p.Layout.Valid() {
		return errors.MalformedContent("unknown layout "+strconv.Quote(string(p.Layout))).
			WithFile(p.Source).
			WithField(KeyLayout).
			Build()
	}
	return nil
}

func (p *Page) malformed(f frontmatter.Field, message string, cause error) error {
	return errors.MalformedContent(message).
		WithCause(cause).
		WithFile(p.Source).
		WithField(f.Key).
		WithContext(errors.ContextLine, f.Line).
		Build()
}

func unknownGroup(p *Page, name string) error {
	return errors.UnknownGroup(name).
		WithFile(p.Source).
		WithContext(errors.ContextPermalink, p.Permalink).
		Build()
}
