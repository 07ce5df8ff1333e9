package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

const teachingPage = `---
permalink: /teaching/
title: "Teaching"
layout: splash
header:
  overlay_image: /assets/images/header.jpg
  overlay_filter: "0.4"
  caption: "Photo: Zürich"
  actions:
    - label: "CV"
      url: /cv/
teaching:
  - image_path: /assets/images/linux.png
    alt: "Tux"
    title: "Linux Workshops"
    excerpt: "Hands-on \"bash\" sessions for first-year students."
    url: /teaching/linux/
    btn_label: "Read More"
    btn_class: "btn--inverse"
  - image_path: /assets/images/math.png
    alt: "Blackboard"
    title: "Math Tutorials"
    excerpt: "Übungen in Analysis und linearer Algebra."
    url: ""
activities:
  - title: "Reading group"
author_profile: true
---
Some intro text.

{% include feature_row id="teaching" %}
`

func TestLoadPage_ParsesFields(t *testing.T) {
	p, err := LoadPage([]byte(teachingPage), "teaching.md")
	require.NoError(t, err)

	require.Equal(t, "teaching.md", p.Source)
	require.Equal(t, "/teaching/", p.Permalink)
	require.Equal(t, "Teaching", p.Title)
	require.Equal(t, LayoutSplash, p.Layout)
	require.Equal(t, "/assets/images/header.jpg", p.Header.HeroImage())
	require.Equal(t, "Photo: Zürich", p.Header.Caption)
	require.Equal(t, []Action{{Label: "CV", URL: "/cv/"}}, p.Header.Actions)
	require.Equal(t, true, p.Params["author_profile"])
	require.Equal(t, []string{"teaching", "activities"}, p.GroupNames())
	require.Contains(t, string(p.Body()), `{% include feature_row id="teaching" %}`)
	require.Equal(t, 29, p.BodyLine())
	require.NotEmpty(t, p.Fingerprint())
}

func TestLoadPage_DefaultsLayout(t *testing.T) {
	p, err := LoadPage([]byte("---\npermalink: /about/\ntitle: About\n---\nHi\n"), "about.md")
	require.NoError(t, err)
	require.Equal(t, LayoutSingle, p.Layout)
	require.Empty(t, p.GroupNames())
}

func TestFeatureGroup_PreservesOrder(t *testing.T) {
	p, err := LoadPage([]byte(teachingPage), "teaching.md")
	require.NoError(t, err)

	entries, err := p.FeatureGroup("teaching")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Linux Workshops", entries[0].Title)
	require.Equal(t, "Math Tutorials", entries[1].Title)
	require.Equal(t, `Hands-on "bash" sessions for first-year students.`, entries[0].Excerpt)
	require.Equal(t, "btn--inverse", entries[0].ButtonClass)
	require.Empty(t, entries[1].URL)
}

func TestFeatureGroup_ReturnsCopies(t *testing.T) {
	p, err := LoadPage([]byte(teachingPage), "teaching.md")
	require.NoError(t, err)

	entries, err := p.FeatureGroup("teaching")
	require.NoError(t, err)
	entries[0].Title = "changed"

	again, err := p.FeatureGroup("teaching")
	require.NoError(t, err)
	require.Equal(t, "Linux Workshops", again[0].Title)
}

func TestFeatureGroup_UnknownGroup(t *testing.T) {
	p, err := LoadPage([]byte(teachingPage), "teaching.md")
	require.NoError(t, err)

	_, err = p.FeatureGroup("publications")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryUnknownGroup))
	require.False(t, p.HasFeatureGroup("publications"))
	require.True(t, p.HasFeatureGroup("activities"))
}

func TestLoadPage_Errors(t *testing.T) {
	cases := []struct {
		name     string
		source   string
		category errors.ErrorCategory
		field    string
	}{
		{"missing permalink", "---\ntitle: About\n---\nbody\n", errors.CategoryMalformedContent, KeyPermalink},
		{"empty permalink", "---\npermalink:\ntitle: About\n---\n", errors.CategoryMalformedContent, KeyPermalink},
		{"relative permalink", "---\npermalink: about/\ntitle: About\n---\n", errors.CategoryMalformedContent, KeyPermalink},
		{"missing title", "---\npermalink: /about/\n---\n", errors.CategoryMalformedContent, KeyTitle},
		{"no front matter", "# About\n", errors.CategoryParse, ""},
		{"unknown layout", "---\npermalink: /a/\ntitle: A\nlayout: wide\n---\n", errors.CategoryMalformedContent, KeyLayout},
		{"list title", "---\npermalink: /a/\ntitle: [a, b]\n---\n", errors.CategoryMalformedContent, KeyTitle},
		{"header not mapping", "---\npermalink: /a/\ntitle: A\nheader: big\n---\n", errors.CategoryMalformedContent, KeyHeader},
		{"bad button class", "---\npermalink: /a/\ntitle: A\nrow:\n  - title: x\n    btn_class: btn--shiny\n---\n", errors.CategoryMalformedContent, "row[0].btn_class"},
		{"mixed group", "---\npermalink: /a/\ntitle: A\nrow:\n  - title: x\n  - plain\n---\n", errors.CategoryMalformedContent, "row"},
		{"unterminated", "---\npermalink: /a/\ntitle: A\n", errors.CategoryParse, ""},
		{"bad yaml", "---\npermalink: /a/\ntitle: [A\n---\n", errors.CategoryParse, ""},
		{"duplicate group", "---\npermalink: /a/\ntitle: A\nrow:\n  - title: x\nrow:\n  - title: y\n---\n", errors.CategoryParse, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPage([]byte(tc.source), "page.md")
			require.Error(t, err)

			classified, ok := errors.AsClassified(err)
			require.True(t, ok)
			require.Equal(t, tc.category, classified.Category())

			file, _ := classified.Context().GetString(errors.ContextFile)
			require.Equal(t, "page.md", file)
			if tc.field != "" {
				field, _ := classified.Context().GetString(errors.ContextField)
				require.Equal(t, tc.field, field)
			}
		})
	}
}

func TestLoadPage_CombinedButtonClasses(t *testing.T) {
	src := "---\npermalink: /a/\ntitle: A\nrow:\n  - title: x\n    btn_class: \"btn--primary   btn--large\"\n---\n"
	p, err := LoadPage([]byte(src), "a.md")
	require.NoError(t, err)

	entries, err := p.FeatureGroup("row")
	require.NoError(t, err)
	require.Equal(t, "btn--primary btn--large", entries[0].ButtonClass)
}

func TestLoadPage_NormalizesUnicode(t *testing.T) {
	// Decomposed "u" + combining diaeresis must load as the composed form.
	src := "---\npermalink: /a/\ntitle: \"Zu\u0308rich\"\n---\n"
	p, err := LoadPage([]byte(src), "a.md")
	require.NoError(t, err)
	require.Equal(t, "Z\u00fcrich", p.Title)
}

func TestLoadPage_EmptyListIsEmptyGroup(t *testing.T) {
	p, err := LoadPage([]byte("---\npermalink: /a/\ntitle: A\nteaching: []\nrow:\n---\n"), "a.md")
	require.NoError(t, err)
	require.Equal(t, []string{"teaching"}, p.GroupNames())
	require.True(t, p.HasFeatureGroup("teaching"))

	entries, err := p.FeatureGroup("teaching")
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Contains(t, p.Params, "teaching")

	_, err = p.FeatureGroup("row")
	require.True(t, errors.HasCategory(err, errors.CategoryUnknownGroup))
}

func TestLoadPage_FingerprintTracksContent(t *testing.T) {
	a, err := LoadPage([]byte("---\npermalink: /a/\ntitle: A\n---\none\n"), "a.md")
	require.NoError(t, err)
	b, err := LoadPage([]byte("---\npermalink: /a/\ntitle: A\n---\none\n"), "b.md")
	require.NoError(t, err)
	c, err := LoadPage([]byte("---\npermalink: /a/\ntitle: A\n---\ntwo\n"), "a.md")
	require.NoError(t, err)

	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
