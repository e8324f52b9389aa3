package intercept

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// DefaultVersion is the shell version used when none is configured.
const DefaultVersion = 10

// DefaultAssets are the shell assets precached on install.
var DefaultAssets = []string{
	"./",
	"./index.html",
	"./manifest.json",
	"./api-config.js",
	"./api-client.js",
	"./offline-cache.js",
}

// ErrNoOrigin is returned when relative assets cannot be resolved because
// no origin was configured.
var ErrNoOrigin = errors.New("intercept: no origin configured")

// Manifest lists the shell assets of one version.
type Manifest struct {
	Version int      `json:"version"`
	Assets  []string `json:"assets"`
}

// DefaultManifest returns the built-in manifest.
func DefaultManifest() Manifest {
	return Manifest{
		Version: DefaultVersion,
		Assets:  append([]string(nil), DefaultAssets...),
	}
}

// ReadManifest reads a JSON manifest from path. A missing version defaults
// to DefaultVersion and missing assets to DefaultAssets.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version < 0 {
		return nil, fmt.Errorf("parsing manifest: negative version %d", m.Version)
	}
	if m.Version == 0 {
		m.Version = DefaultVersion
	}
	if len(m.Assets) == 0 {
		m.Assets = append([]string(nil), DefaultAssets...)
	}
	return &m, nil
}

// Resolve returns the absolute URL of every asset, resolved against origin.
func (m Manifest) Resolve(origin *url.URL) ([]string, error) {
	urls := make([]string, 0, len(m.Assets))
	for _, asset := range m.Assets {
		ref, err := url.Parse(asset)
		if err != nil {
			return nil, fmt.Errorf("parsing asset %q: %w", asset, err)
		}
		if !ref.IsAbs() {
			if origin == nil {
				return nil, fmt.Errorf("resolving %q: %w", asset, ErrNoOrigin)
			}
			ref = base(origin).ResolveReference(ref)
		}
		urls = append(urls, ref.String())
	}
	return urls, nil
}

// base returns origin with a path ending in "/" so relative references
// resolve inside it.
func base(origin *url.URL) *url.URL {
	b := *origin
	if b.Path == "" {
		b.Path = "/"
	}
	b.RawQuery = ""
	b.Fragment = ""
	return &b
}
