package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// GroupsCmd implements the 'groups' command.
type GroupsCmd struct {
	File   string `arg:"" help:"Page source file" type:"path"`
	Format string `short:"f" enum:"text,json" default:"text" help:"Output format (text or json)"`
}

type groupJSON struct {
	Name    string `json:"name"`
	Entries any    `json:"entries"`
}

func (c *GroupsCmd) Run(g *Global, _ *CLI) error {
	page, err := readPage(afero.NewOsFs(), c.File)
	if err != nil {
		return err
	}
	groups := page.FeatureGroups()

	if c.Format == "json" {
		out := make([]groupJSON, 0, len(groups))
		for _, grp := range groups {
			out = append(out, groupJSON{Name: grp.Name, Entries: grp.Entries})
		}
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(groups) == 0 {
		_, _ = fmt.Fprintf(g.Out, "%s: no feature groups\n", page.Source)
		return nil
	}
	for _, grp := range groups {
		_, _ = fmt.Fprintf(g.Out, "%s (%d)\n", grp.Name, len(grp.Entries))
		for i, e := range grp.Entries {
			title := e.Title
			if title == "" {
				title = "(untitled)"
			}
			_, _ = fmt.Fprintf(g.Out, "  %d. %s", i+1, title)
			if e.URL != "" {
				_, _ = fmt.Fprintf(g.Out, " -> %s", e.URL)
			}
			_, _ = fmt.Fprintln(g.Out)
		}
	}
	return nil
}
