// Package frontmatter separates a `---` delimited YAML block from the body
// text that follows it and decodes the block into an ordered YAML node.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingClosingDelimiter indicates the document started with a front
// matter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// ErrNotMapping indicates the front matter decoded to something other than a mapping.
var ErrNotMapping = errors.New("front matter must be a key/value mapping")

// ErrDuplicateKey indicates a top-level key appears more than once.
var ErrDuplicateKey = errors.New("duplicate front matter key")

// Style captures the newline convention of a source document.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Block is a source document split at its front matter delimiters.
type Block struct {
	// Raw holds the YAML between the delimiters, without them.
	Raw []byte
	// Body holds everything after the closing delimiter.
	Body []byte
	// Had reports whether the document opened with a delimiter at all.
	Had bool
	// BodyLine is the 1-based line number on which Body starts.
	BodyLine int
	Style    Style
}

// Split separates YAML front matter from the body.
//
// A document that does not start with a delimiter line yields Had == false
// and the whole input as Body. A leading UTF-8 byte order mark is ignored.
func Split(content []byte) (Block, error) {
	content = bytes.TrimPrefix(content, bom)
	style := detectStyle(content)
	nl := style.Newline

	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return Block{Body: content, BodyLine: 1, Style: style}, nil
	}

	start := len(open)
	rest := content[start:]

	// Empty block: the closing delimiter immediately follows the opening one.
	if bytes.HasPrefix(rest, open) || bytes.Equal(rest, []byte(delimiter)) {
		end := min(len(rest), len(open))
		return Block{Raw: []byte{}, Body: rest[end:], Had: true, BodyLine: 3, Style: style}, nil
	}

	closing := []byte(nl + delimiter + nl)
	idx := bytes.Index(rest, closing)
	bodyStart := start + idx + len(closing)
	if idx < 0 {
		// Accept a closing delimiter on the final line without a newline.
		if !bytes.HasSuffix(rest, []byte(nl+delimiter)) {
			return Block{Style: style}, ErrMissingClosingDelimiter
		}
		idx = len(rest) - len(nl+delimiter)
		bodyStart = len(content)
	}

	raw := content[start : start+idx+len(nl)]
	return Block{
		Raw:      raw,
		Body:     content[bodyStart:],
		Had:      true,
		BodyLine: bytes.Count(content[:bodyStart], []byte("\n")) + 1,
		Style:    style,
	}, nil
}

// Decode parses raw front matter into its top-level mapping node.
//
// Working on the node rather than a map keeps key order, which is display
// significant for feature groups, and surfaces duplicate keys as errors.
// An empty block decodes to an empty mapping.
func Decode(raw []byte) (*yaml.Node, error) {
	empty := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(bytes.TrimSpace(raw)) == 0 {
		return empty, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return empty, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w (line %d)", ErrNotMapping, root.Line)
	}

	// Decoding into a node skips yaml's own duplicate key check.
	seen := make(map[string]int, len(root.Content)/2)
	for _, f := range Fields(root) {
		if first, ok := seen[f.Key]; ok {
			return nil, fmt.Errorf("%w: %q on line %d, first defined on line %d", ErrDuplicateKey, f.Key, f.Line, first)
		}
		seen[f.Key] = f.Line
	}
	return root, nil
}

// Fields returns the key/value node pairs of a mapping node in source order.
func Fields(mapping *yaml.Node) []Field {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	fields := make([]Field, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		fields = append(fields, Field{Key: mapping.Content[i].Value, Value: mapping.Content[i+1], Line: mapping.Content[i].Line})
	}
	return fields
}

// Field is one key of a front matter mapping.
type Field struct {
	Key   string
	Value *yaml.Node
	Line  int
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}
	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
