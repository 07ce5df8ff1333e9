package content

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// PageExtensions are the file extensions loaded as pages.
var PageExtensions = []string{".md", ".markdown", ".html"}

// Site is the set of pages loaded from one content directory.
type Site struct {
	Pages []*Page

	byPermalink map[string]*Page
}

// IsPageFile reports whether name looks like a page source.
func IsPageFile(name string) bool {
	return slices.Contains(PageExtensions, strings.ToLower(filepath.Ext(name)))
}

// LoadSite loads every page below dir.
//
// Files are visited in lexical order. A page that fails to load is reported
// in the returned errors and left out; the others still load. When two pages
// share a permalink the later file is rejected.
func LoadSite(fsys afero.Fs, dir string) (*Site, []error) {
	site := &Site{byPermalink: make(map[string]*Page)}
	var errs []error

	walkErr := afero.Walk(fsys, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			errs = append(errs, errors.WrapError(err, errors.CategoryFileSystem, "cannot read content").WithFile(p).Build())
			return nil
		}
		if p != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !IsPageFile(p) {
			return nil
		}

		name := relName(dir, p)
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			errs = append(errs, errors.WrapError(err, errors.CategoryFileSystem, "cannot read page").WithFile(name).Build())
			return nil
		}

		page, err := LoadPage(data, name)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if err := site.add(page); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, errors.WrapError(walkErr, errors.CategoryFileSystem, "cannot walk content directory").WithFile(dir).Build())
	}
	return site, errs
}

// NewSite builds a site from already loaded pages.
func NewSite(pages ...*Page) (*Site, error) {
	site := &Site{byPermalink: make(map[string]*Page, len(pages))}
	for _, p := range pages {
		if err := site.add(p); err != nil {
			return nil, err
		}
	}
	return site, nil
}

func (s *Site) add(p *Page) error {
	if other, ok := s.byPermalink[p.Permalink]; ok {
		return errors.MalformedContent("duplicate permalink").
			WithFile(p.Source).
			WithField(KeyPermalink).
			WithContext(errors.ContextPermalink, p.Permalink).
			WithContext("first_defined_in", other.Source).
			Build()
	}
	s.byPermalink[p.Permalink] = p
	s.Pages = append(s.Pages, p)
	return nil
}

// Page looks a page up by permalink.
func (s *Site) Page(permalink string) (*Page, bool) {
	p, ok := s.byPermalink[permalink]
	return p, ok
}

// Permalinks lists the permalinks of all pages in load order.
func (s *Site) Permalinks() []string {
	return lo.Map(s.Pages, func(p *Page, _ int) string { return p.Permalink })
}

func relName(dir, p string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return path.Clean(filepath.ToSlash(rel))
}
