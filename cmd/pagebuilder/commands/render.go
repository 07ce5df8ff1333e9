package commands

import (
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	File   string `arg:"" help:"Page source file" type:"path"`
	Output string `short:"o" help:"Write the document to this file instead of stdout" type:"path"`
	Body   bool   `help:"Render only the Markdown body without the layout"`
}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	page, err := readPage(fs, r.File)
	if err != nil {
		return err
	}

	renderer, err := build.NewRenderer(cfg, fs)
	if err != nil {
		return err
	}
	var doc []byte
	if r.Body {
		doc, err = renderer.RenderBody(page)
	} else {
		doc, err = renderer.Render(page)
	}
	if err != nil {
		return err
	}

	if r.Output == "" {
		_, err = g.Out.Write(doc)
		return err
	}
	if err := afero.WriteFile(fs, r.Output, doc, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot write output").WithFile(r.Output).Build()
	}
	g.Logger.Info("Rendered page", "page", page.Source, "permalink", page.Permalink, "path", r.Output)
	return nil
}

func readPage(fs afero.Fs, file string) (*content.Page, error) {
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		if ok, _ := afero.Exists(fs, file); !ok {
			return nil, errors.NotFoundError("page file").WithFile(file).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot read page").WithFile(file).Build()
	}
	return content.LoadPage(data, file)
}
