package render

import (
	"regexp"
	"strings"
)

// FeatureRowInclude is the only include a page body may use.
const FeatureRowInclude = "feature_row"

// DefaultGroup is the group rendered by a feature_row directive without an id.
const DefaultGroup = "feature_row"

// Row types accepted by the type parameter of a feature_row directive.
var rowTypes = map[string]bool{"": true, "left": true, "right": true, "center": true}

var (
	directivePattern = regexp.MustCompile(`^\{%-?\s*include\s+([^\s%]+)(.*?)\s*-?%\}$`)
	paramPattern     = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+))`)
	// strayPattern finds include directives anywhere in a line.
	strayPattern = regexp.MustCompile(`\{%-?\s*include\s[^%]*?-?%\}`)
)

// Directive is an insertion point in a page body.
type Directive struct {
	// Include names the included partial, normally feature_row.
	Include string
	Params  map[string]string
	// Text is the directive as written, for error reports.
	Text string
}

// Group returns the feature group the directive inserts.
func (d Directive) Group() string {
	if id := d.Params["id"]; id != "" {
		return id
	}
	return DefaultGroup
}

// Type returns the row type, empty for the default grid.
func (d Directive) Type() string {
	return d.Params["type"]
}

// ParseDirective recognizes a line holding only an include directive.
func ParseDirective(line []byte) (Directive, bool) {
	text := strings.TrimSpace(string(line))
	m := directivePattern.FindStringSubmatch(text)
	if m == nil {
		return Directive{}, false
	}

	d := Directive{Include: m[1], Params: map[string]string{}, Text: text}
	for _, p := range paramPattern.FindAllStringSubmatch(m[2], -1) {
		d.Params[p[1]] = p[2] + p[3] + p[4]
	}
	return d, true
}
