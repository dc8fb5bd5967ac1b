// Package fesomdata packages FESOM ocean model test datasets for the
// esm-tools tutorial. Each dataset is registered under a stable name and
// can be listed with AvailableDatasets and opened with OpenDataset; the
// data itself is either generated as a small stub tree from an embedded
// manifest or fetched as the real archive and cached.
package fesomdata

import (
	"embed"
	"fmt"
	"sort"

	"github.com/esm-tools/fesomdata/fetch"
	"gopkg.in/yaml.v3"
)

//go:embed data
var bundle embed.FS

// registryData is the single source of truth for the dataset records. It
// is part of the embedded bundle, but the fetch layer needs the raw bytes
// as well, so it is embedded separately.
//
//go:embed data/registry.yaml
var registryData []byte

// Record describes one packaged dataset as declared in data/registry.yaml.
type Record struct {
	// Title is a human readable description of the model run.
	Title string `yaml:"title"`

	// Archive is the filename of the remote tarball holding the real data.
	Archive string `yaml:"archive"`

	// URL is the archive source. Supported schemes: http, https, s3, gs
	// and file.
	URL string `yaml:"url"`

	// SHA256 is the checksum of the archive, verified on fetch.
	SHA256 string `yaml:"sha256"`

	// InnerDir, when set, names a directory inside the extracted tree
	// that is the actual data directory.
	InnerDir string `yaml:"inner_dir"`

	// OutputGlob selects the model output files within the data
	// directory.
	OutputGlob string `yaml:"output_glob"`

	// Manifest is the bundle path of the stub manifest for this dataset.
	Manifest string `yaml:"manifest"`

	// Mesh describes where the mesh files come from.
	Mesh MeshSource `yaml:"mesh"`

	// Configs maps a CMIP version ("cmip6", "cmip7") to the bundle path
	// of the matching cmorization config fixture.
	Configs map[string]string `yaml:"configs"`
}

// MeshSource describes where a dataset's FESOM mesh lives. Dir is a path
// relative to the data directory ("." meaning the data directory itself).
// Git, when set, names a git-lfs repository the real mesh is cloned from.
type MeshSource struct {
	Dir string `yaml:"dir"`
	Git string `yaml:"git"`
}

var registry map[string]Record

func init() {
	if err := yaml.Unmarshal(registryData, &registry); err != nil {
		panic(fmt.Sprintf("malformed data/registry.yaml: %s", err))
	}

	if len(registry) == 0 {
		panic("data/registry.yaml registers no datasets")
	}
}

// AvailableDatasets returns the names of all packaged datasets, sorted.
func AvailableDatasets() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// OpenDataset returns the dataset registered under the given name. The
// lookup has no side effects; no data is materialized until one of the
// Dataset methods asks for it. Unknown names fail with ErrDatasetNotFound.
func OpenDataset(name string) (*Dataset, error) {
	record, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, name)
	}

	return &Dataset{name: name, record: record}, nil
}

// NewFetcher returns a fetcher for the packaged archive registry.
func NewFetcher(opts ...fetch.Option) (*fetch.Fetcher, error) {
	return fetch.New(registryData, opts...)
}
