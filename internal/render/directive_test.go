package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDirective(t *testing.T) {
	cases := []struct {
		line    string
		ok      bool
		include string
		group   string
		typ     string
	}{
		{"{% include feature_row %}", true, "feature_row", "feature_row", ""},
		{"  {% include feature_row id=\"teaching\" %}\n", true, "feature_row", "teaching", ""},
		{"{% include feature_row id='intro' type=\"left\" %}", true, "feature_row", "intro", "left"},
		{"{%- include feature_row id=intro type=center -%}", true, "feature_row", "intro", "center"},
		{"{% include gallery caption=\"x\" %}", true, "gallery", "feature_row", ""},
		{"{% raw %}", false, "", "", ""},
		{"text {% include feature_row %}", false, "", "", ""},
		{"{{ site.title }}", false, "", "", ""},
	}

	for _, tc := range cases {
		d, ok := ParseDirective([]byte(tc.line))
		require.Equal(t, tc.ok, ok, tc.line)
		if !ok {
			continue
		}
		require.Equal(t, tc.include, d.Include, tc.line)
		require.Equal(t, tc.group, d.Group(), tc.line)
		require.Equal(t, tc.typ, d.Type(), tc.line)
	}
}
