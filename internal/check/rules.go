package check

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/render"
)

// UnusedGroupRule warns about feature groups no directive inserts.
type UnusedGroupRule struct{}

func (r *UnusedGroupRule) Name() string { return "unused-group" }

func (r *UnusedGroupRule) Check(c *Context, page *content.Page, _ []byte) []Issue {
	used := lo.Map(c.Renderer.Directives(page), func(d render.Directive, _ int) string { return d.Group() })

	var issues []Issue
	for _, group := range page.FeatureGroups() {
		name := group.Name
		if len(group.Entries) == 0 || slices.Contains(used, name) {
			continue
		}
		issues = append(issues, Issue{
			File:      page.Source,
			Permalink: page.Permalink,
			Severity:  SeverityWarning,
			Rule:      r.Name(),
			Message:   fmt.Sprintf("feature group %q is never inserted", name),
			Detail:    fmt.Sprintf(`Add {%% include feature_row id=%q %%} to the page body or remove the group.`, name),
		})
	}
	return issues
}

// MissingAssetRule warns about references to /assets/ files that do not
// exist in the assets directory.
type MissingAssetRule struct{}

func (r *MissingAssetRule) Name() string { return "missing-asset" }

func (r *MissingAssetRule) Check(c *Context, page *content.Page, doc []byte) []Issue {
	if c.Assets == nil || c.AssetsDir == "" {
		return nil
	}

	refs, err := assetRefs(doc)
	if err != nil {
		return []Issue{{
			File:      page.Source,
			Permalink: page.Permalink,
			Severity:  SeverityWarning,
			Rule:      r.Name(),
			Message:   "rendered document could not be scanned for assets",
			Detail:    err.Error(),
		}}
	}

	var issues []Issue
	for _, ref := range lo.Uniq(refs) {
		rel, ok := assetPath(ref, c.BaseURL)
		if !ok {
			continue
		}
		if exists, _ := afero.Exists(c.Assets, path.Join(c.AssetsDir, rel)); exists {
			continue
		}
		issues = append(issues, Issue{
			File:      page.Source,
			Permalink: page.Permalink,
			Severity:  SeverityWarning,
			Rule:      r.Name(),
			Message:   fmt.Sprintf("asset %s does not exist", ref),
			Detail:    fmt.Sprintf("Expected %s in the assets directory.", rel),
		})
	}
	return issues
}

// assetPath maps a reference onto a path inside the assets directory.
func assetPath(ref, baseURL string) (string, bool) {
	ref = strings.TrimPrefix(ref, strings.TrimSuffix(baseURL, "/"))
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	rel, ok := strings.CutPrefix(ref, "/assets/")
	if !ok || rel == "" {
		return "", false
	}
	return strings.TrimPrefix(path.Clean("/"+rel), "/"), true
}
