package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

const teachingPage = `---
permalink: /teaching/
title: Teaching
layout: splash
teaching:
  - title: Linux Workshops
    url: /teaching/linux/
  - title: Math Tutorials
---
{% include feature_row id="teaching" %}
`

func newGlobal() (*Global, *bytes.Buffer) {
	var out bytes.Buffer
	return &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Out: &out}, &out
}

// newProject creates a configured project in a temporary working directory.
func newProject(t *testing.T, pages map[string]string) *CLI {
	t.Helper()
	t.Chdir(t.TempDir())
	g, _ := newGlobal()
	root := &CLI{}
	require.NoError(t, (&InitCmd{}).Run(g, root))
	for name, body := range pages {
		p := filepath.Join("_pages", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func TestParse(t *testing.T) {
	var cli CLI
	g, _ := newGlobal()
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Bind(g))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"-v", "build", "--incremental", "--fail-on-error"})
	require.NoError(t, err)
	require.Equal(t, "build", ctx.Command())
	require.True(t, cli.Verbose)
	require.True(t, cli.Build.Incremental)
	require.True(t, cli.Build.FailOnError)

	_, err = parser.Parse([]string{"groups", "--format", "xml", "page.md"})
	require.Error(t, err)
}

func TestInit(t *testing.T) {
	t.Chdir(t.TempDir())
	g, out := newGlobal()

	require.NoError(t, (&InitCmd{}).Run(g, &CLI{}))
	require.FileExists(t, config.DefaultPath)
	require.Contains(t, out.String(), "Configuration written to pagebuilder.yaml")

	err := (&InitCmd{}).Run(g, &CLI{})
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoError(t, (&InitCmd{Force: true}).Run(g, &CLI{}))
}

func TestBuild(t *testing.T) {
	root := newProject(t, map[string]string{"teaching.md": teachingPage})
	g, out := newGlobal()

	require.NoError(t, (&BuildCmd{MetricsFile: "metrics.prom"}).Run(g, root))
	require.Contains(t, out.String(), ": success")
	require.Contains(t, out.String(), "rendered 1, skipped 0, failed 0")

	html, err := os.ReadFile(filepath.Join("_site", "teaching", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(html), "Linux Workshops")

	prom, err := os.ReadFile("metrics.prom")
	require.NoError(t, err)
	require.Contains(t, string(prom), "pagebuilder_build_outcomes_total")

	out.Reset()
	require.NoError(t, (&BuildCmd{Incremental: true}).Run(g, root))
	require.Contains(t, out.String(), "rendered 0, skipped 1")
}

func TestBuildFailOnError(t *testing.T) {
	root := newProject(t, map[string]string{
		"teaching.md": teachingPage,
		"broken.md":   "---\npermalink: /broken/\ntitle: Broken\n---\n{% include feature_row id=\"missing\" %}\n",
	})
	g, out := newGlobal()

	require.NoError(t, (&BuildCmd{}).Run(g, root))
	require.Contains(t, out.String(), ": warning")

	err := (&BuildCmd{FailOnError: true}).Run(g, root)
	require.Error(t, err)
	require.Equal(t, 3, errors.NewCLIErrorAdapter(false, g.Logger).ExitCodeFor(err))
}

func TestBuildOutputOverride(t *testing.T) {
	root := newProject(t, map[string]string{"teaching.md": teachingPage})
	g, _ := newGlobal()

	require.NoError(t, (&BuildCmd{Output: "public"}).Run(g, root))
	require.FileExists(t, filepath.Join("public", "teaching", "index.html"))

	err := (&BuildCmd{Output: "_pages"}).Run(g, root)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestBuildRefusesOutputHoldingProject(t *testing.T) {
	root := newProject(t, map[string]string{"teaching.md": teachingPage})
	g, _ := newGlobal()
	wd, err := filepath.Abs(".")
	require.NoError(t, err)

	for _, out := range []string{wd, filepath.Dir(wd), "."} {
		err := (&BuildCmd{Output: out}).Run(g, root)
		require.True(t, errors.HasCategory(err, errors.CategoryConfig), "output %s: %v", out, err)
	}
	require.FileExists(t, filepath.Join("_pages", "teaching.md"))
	require.FileExists(t, config.DefaultPath)
}

func TestRender(t *testing.T) {
	root := newProject(t, map[string]string{"teaching.md": teachingPage})
	g, out := newGlobal()

	require.NoError(t, (&RenderCmd{File: filepath.Join("_pages", "teaching.md")}).Run(g, root))
	require.Contains(t, out.String(), "<!doctype html>")
	require.Contains(t, out.String(), "Math Tutorials")

	out.Reset()
	require.NoError(t, (&RenderCmd{File: filepath.Join("_pages", "teaching.md"), Body: true}).Run(g, root))
	require.NotContains(t, out.String(), "<!doctype html>")
	require.Contains(t, out.String(), "feature__wrapper")

	require.NoError(t, (&RenderCmd{File: filepath.Join("_pages", "teaching.md"), Output: "teaching.html"}).Run(g, root))
	require.FileExists(t, "teaching.html")

	err := (&RenderCmd{File: "missing.md"}).Run(g, root)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestGroups(t *testing.T) {
	newProject(t, map[string]string{"teaching.md": teachingPage})
	g, out := newGlobal()
	file := filepath.Join("_pages", "teaching.md")

	require.NoError(t, (&GroupsCmd{File: file, Format: "text"}).Run(g, nil))
	require.Equal(t, "teaching (2)\n  1. Linux Workshops -> /teaching/linux/\n  2. Math Tutorials\n", out.String())

	out.Reset()
	require.NoError(t, (&GroupsCmd{File: file, Format: "json"}).Run(g, nil))
	var groups []struct {
		Name    string           `json:"name"`
		Entries []map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &groups))
	require.Len(t, groups, 1)
	require.Equal(t, "teaching", groups[0].Name)
	require.Equal(t, "Linux Workshops", groups[0].Entries[0]["title"])
}

func TestCheck(t *testing.T) {
	root := newProject(t, map[string]string{"teaching.md": teachingPage})
	g, out := newGlobal()

	require.NoError(t, (&CheckCmd{Format: "text"}).Run(g, root))
	require.Contains(t, out.String(), "Checking pages in: _pages")

	require.NoError(t, os.WriteFile(filepath.Join("_pages", "broken.md"),
		[]byte("---\npermalink: /broken/\ntitle: Broken\n---\n{% include feature_row id=\"missing\" %}\n"), 0o644))
	out.Reset()
	err := (&CheckCmd{Format: "json"}).Run(g, root)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.True(t, json.Valid(out.Bytes()))

	err = (&CheckCmd{Path: "nowhere"}).Run(g, root)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}
