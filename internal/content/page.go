package content

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Layout selects the page template.
type Layout string

const (
	LayoutSingle Layout = "single"
	LayoutSplash Layout = "splash"
)

// DefaultLayout is used when a page does not name one.
const DefaultLayout = LayoutSingle

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == LayoutSingle || l == LayoutSplash
}

// ButtonClasses lists the button style tags a feature entry may use.
var ButtonClasses = []string{
	"btn--primary",
	"btn--secondary",
	"btn--success",
	"btn--warning",
	"btn--danger",
	"btn--info",
	"btn--inverse",
	"btn--light",
	"btn--dark",
	"btn--small",
	"btn--large",
	"btn--x-large",
	"btn--block",
}

// Header describes the hero area at the top of a page.
type Header struct {
	Image         string   `yaml:"image"`
	OverlayImage  string   `yaml:"overlay_image"`
	OverlayFilter string   `yaml:"overlay_filter"`
	OverlayColor  string   `yaml:"overlay_color"`
	Caption       string   `yaml:"caption"`
	Teaser        string   `yaml:"teaser"`
	Actions       []Action `yaml:"actions"`
}

// Action is a call-to-action button in a page header.
type Action struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// HeroImage returns the image shown behind the page title, if any.
func (h Header) HeroImage() string {
	if h.OverlayImage != "" {
		return h.OverlayImage
	}
	return h.Image
}

// FeatureEntry is one displayable item of a feature group.
type FeatureEntry struct {
	ImagePath    string `yaml:"image_path" json:"image_path,omitempty"`
	Alt          string `yaml:"alt" json:"alt,omitempty"`
	ImageCaption string `yaml:"image_caption" json:"image_caption,omitempty"`
	Title        string `yaml:"title" json:"title,omitempty"`
	Excerpt      string `yaml:"excerpt" json:"excerpt,omitempty"`
	URL          string `yaml:"url" json:"url,omitempty"`
	ButtonLabel  string `yaml:"btn_label" json:"btn_label,omitempty"`
	ButtonClass  string `yaml:"btn_class" json:"btn_class,omitempty"`
}

// FeatureGroup is a named, ordered list of feature entries.
type FeatureGroup struct {
	Name    string
	Entries []FeatureEntry
}

// Page is one routable document.
type Page struct {
	// Source names the file the page was loaded from.
	Source    string
	Permalink string
	Title     string
	Layout    Layout
	Excerpt   string
	Header    Header
	// Params holds front matter keys that carry no meaning for rendering.
	Params map[string]any

	body        []byte
	bodyLine    int
	groups      []FeatureGroup
	fingerprint string
}

// Body returns a copy of the Markdown body.
func (p *Page) Body() []byte {
	return slices.Clone(p.body)
}

// BodyLine is the source line on which the body starts.
func (p *Page) BodyLine() int {
	return p.bodyLine
}

// Fingerprint identifies the page's source content.
func (p *Page) Fingerprint() string {
	return p.fingerprint
}

// FeatureGroup returns the ordered entries of the named group.
func (p *Page) FeatureGroup(name string) ([]FeatureEntry, error) {
	for _, g := range p.groups {
		if g.Name == name {
			return slices.Clone(g.Entries), nil
		}
	}
	return nil, unknownGroup(p, name)
}

// HasFeatureGroup reports whether the page defines the named group.
func (p *Page) HasFeatureGroup(name string) bool {
	return slices.ContainsFunc(p.groups, func(g FeatureGroup) bool { return g.Name == name })
}

// GroupNames lists the page's feature groups in declaration order.
func (p *Page) GroupNames() []string {
	return lo.Map(p.groups, func(g FeatureGroup, _ int) string { return g.Name })
}

// FeatureGroups returns copies of all groups in declaration order.
func (p *Page) FeatureGroups() []FeatureGroup {
	return lo.Map(p.groups, func(g FeatureGroup, _ int) FeatureGroup {
		return FeatureGroup{Name: g.Name, Entries: slices.Clone(g.Entries)}
	})
}

// ButtonClassTokens splits a btn_class value into its style tags.
func ButtonClassTokens(class string) []string {
	return strings.Fields(class)
}

// IsButtonClass reports whether tag is a known button style tag.
func IsButtonClass(tag string) bool {
	return slices.Contains(ButtonClasses, tag)
}
