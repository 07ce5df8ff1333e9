package check

import (
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/render"
)

// Rule checks one rendered page.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string
	// Check inspects a page and its rendered document.
	Check(c *Context, page *content.Page, doc []byte) []Issue
}

// Context carries what rules need besides the page itself.
type Context struct {
	Renderer *render.Renderer
	// Assets is the file system holding the assets directory.
	Assets    afero.Fs
	AssetsDir string
	BaseURL   string
}

// Checker runs the rules over a content directory.
type Checker struct {
	ctx   *Context
	rules []Rule
}

// NewChecker creates a checker with the default rules.
func NewChecker(ctx *Context) *Checker {
	return &Checker{
		ctx: ctx,
		rules: []Rule{
			&UnusedGroupRule{},
			&MissingAssetRule{},
		},
	}
}

// Check loads every page in dir and reports problems.
//
// Files that do not load and pages that do not render are errors. The
// remaining rules only see pages that rendered.
func (c *Checker) Check(fsys afero.Fs, dir string) *Result {
	site, loadErrs := content.LoadSite(fsys, dir)
	result := &Result{PagesTotal: len(site.Pages) + len(loadErrs)}

	for _, err := range loadErrs {
		rule := "load"
		if ce, ok := errors.AsClassified(err); ok {
			if _, dup := ce.Context().Get("first_defined_in"); dup {
				rule = "duplicate-permalink"
			}
		}
		result.Issues = append(result.Issues, issueFromError(rule, "", err))
	}

	for _, page := range site.Pages {
		doc, err := c.ctx.Renderer.Render(page)
		if err != nil {
			result.Issues = append(result.Issues, issueFromError("render", page.Permalink, err))
			continue
		}
		for _, rule := range c.rules {
			result.Issues = append(result.Issues, rule.Check(c.ctx, page, doc)...)
		}
	}

	result.Sort()
	return result
}

func issueFromError(rule, permalink string, err error) Issue {
	issue := Issue{
		Permalink: permalink,
		Severity:  SeverityError,
		Rule:      rule,
		Message:   err.Error(),
	}
	if ce, ok := errors.AsClassified(err); ok {
		issue.Message = ce.Message()
		issue.Detail = ce.Error()
		issue.File, _ = ce.Context().GetString(errors.ContextFile)
		if line, ok := ce.Context().Get(errors.ContextLine); ok {
			issue.Line, _ = line.(int)
		}
		if issue.Permalink == "" {
			issue.Permalink, _ = ce.Context().GetString(errors.ContextPermalink)
		}
	}
	return issue
}
