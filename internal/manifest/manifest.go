// Package manifest records what a build wrote so later builds can skip
// unchanged pages and remove stale output.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"
)

// FileName is the manifest's name inside the output directory.
const FileName = ".pagebuilder-manifest.json"

// BuildManifest is the record of one build.
type BuildManifest struct {
	BuildID      string    `json:"build_id"`
	Generator    string    `json:"generator,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	Duration     int64     `json:"duration_ms"`
	SettingsHash string    `json:"settings_hash"`
	Pages        []Page    `json:"pages"`
	Assets       []string  `json:"assets,omitempty"`
}

// Page is one written page.
type Page struct {
	Source      string `json:"source"`
	Permalink   string `json:"permalink"`
	Fingerprint string `json:"fingerprint"`
	Output      string `json:"output"`
}

// Page returns the entry for permalink.
func (m *BuildManifest) Page(permalink string) (Page, bool) {
	if m == nil {
		return Page{}, false
	}
	for _, p := range m.Pages {
		if p.Permalink == permalink {
			return p, true
		}
	}
	return Page{}, false
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Read loads the manifest from dir. A missing manifest yields nil, nil.
func Read(fsys afero.Fs, dir string) (*BuildManifest, error) {
	data, err := afero.ReadFile(fsys, path.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}

// Write stores the manifest in dir.
func (m *BuildManifest) Write(fsys afero.Fs, dir string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path.Join(dir, FileName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// SettingsHash computes a deterministic hash of the rendering settings.
// Pages rendered under a different hash are never skipped.
func SettingsHash(settings any) (string, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
