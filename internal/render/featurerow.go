package render

import (
	"io"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
)

// KindFeatureRow is the node kind of an insertion directive.
var KindFeatureRow = ast.NewNodeKind("FeatureRow")

// FeatureRow is a block node standing for one insertion directive.
// Entries are attached once the directive is resolved against a page.
type FeatureRow struct {
	ast.BaseBlock
	Directive Directive
	Entries   []content.FeatureEntry
}

// Kind implements ast.Node.
func (n *FeatureRow) Kind() ast.NodeKind {
	return KindFeatureRow
}

// IsRaw implements ast.Node.
func (n *FeatureRow) IsRaw() bool {
	return true
}

// Dump implements ast.Node.
func (n *FeatureRow) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Include": n.Directive.Include,
		"Group":   n.Directive.Group(),
		"Entries": strconv.Itoa(len(n.Entries)),
	}, nil)
}

type featureRowParser struct{}

func (p *featureRowParser) Trigger() []byte {
	return []byte{'{'}
}

func (p *featureRowParser) Open(_ ast.Node, reader text.Reader, _ parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	d, ok := ParseDirective(line)
	if !ok {
		return nil, parser.NoChildren
	}
	node := &FeatureRow{Directive: d}
	node.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return node, parser.NoChildren
}

func (p *featureRowParser) Continue(ast.Node, text.Reader, parser.Context) parser.State {
	return parser.Close
}

func (p *featureRowParser) Close(ast.Node, text.Reader, parser.Context) {}

func (p *featureRowParser) CanInterruptParagraph() bool {
	return true
}

func (p *featureRowParser) CanAcceptIndentedLine() bool {
	return false
}

type featureRowRenderer struct {
	write func(w io.Writer, row *FeatureRow) error
}

func (r *featureRowRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindFeatureRow, r.render)
}

func (r *featureRowRenderer) render(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	if err := r.write(w, n.(*FeatureRow)); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

// featureRows is the goldmark extension adding insertion directives.
type featureRows struct {
	write func(w io.Writer, row *FeatureRow) error
}

func (e *featureRows) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&featureRowParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&featureRowRenderer{write: e.write}, 150),
	))
}
