package manifest

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()

	m, err := Read(fs, "site")
	require.NoError(t, err)
	require.Nil(t, m)

	m = &BuildManifest{
		BuildID:   "b-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:    "success",
		Pages: []Page{
			{Source: "teaching.md", Permalink: "/teaching/", Fingerprint: "abc", Output: "teaching/index.html"},
		},
	}
	require.NoError(t, m.Write(fs, "site"))

	got, err := Read(fs, "site")
	require.NoError(t, err)
	require.Equal(t, m, got)

	p, ok := got.Page("/teaching/")
	require.True(t, ok)
	require.Equal(t, "abc", p.Fingerprint)
	_, ok = got.Page("/nope/")
	require.False(t, ok)
}

func TestReadCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "site/"+FileName, []byte("{"), 0o644))

	_, err := Read(fs, "site")
	require.ErrorContains(t, err, "unmarshal manifest")
}

func TestSettingsHash(t *testing.T) {
	type settings struct{ BaseURL string }

	a, err := SettingsHash(settings{"https://a"})
	require.NoError(t, err)
	b, err := SettingsHash(settings{"https://a"})
	require.NoError(t, err)
	c, err := SettingsHash(settings{"https://b"})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestNilManifestLookup(t *testing.T) {
	var m *BuildManifest
	_, ok := m.Page("/")
	require.False(t, ok)
}
