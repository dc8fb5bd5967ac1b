package fesomdata

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/esm-tools/fesomdata/fetch"
	"github.com/esm-tools/fesomdata/mesh"
	"github.com/esm-tools/fesomdata/stub"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
)

// Dataset is a handle on one packaged dataset. It is cheap to create and
// carries no open resources; the data directory is materialized lazily by
// DataDir, MeshDir and Open.
type Dataset struct {
	name   string
	record Record
}

// memoized data directories, one per dataset and data flavor. Stub trees
// land in per-process temporary directories and are reused for the
// lifetime of the process.
var (
	datadirsMutex sync.Mutex
	datadirs      = map[string]string{}
)

// Name returns the registered dataset name.
func (dataset *Dataset) Name() string {
	return dataset.name
}

// Record returns the registry record the dataset was opened from.
func (dataset *Dataset) Record() Record {
	return dataset.record
}

// Bundle returns the embedded support files packaged with the dataset
// (the stub manifest and anything next to it).
func (dataset *Dataset) Bundle() fs.FS {
	sub, err := fs.Sub(bundle, path.Join("data", dataset.name))
	if err != nil {
		panic(fmt.Sprintf("no embedded bundle for dataset %q: %s", dataset.name, err))
	}

	return sub
}

// Configs returns the available cmorization configs as a map of CMIP
// version to embedded fixture path.
func (dataset *Dataset) Configs() map[string]string {
	configs := make(map[string]string, len(dataset.record.Configs))
	for version, fixture := range dataset.record.Configs {
		configs[version] = fixture
	}

	return configs
}

// ReadConfig returns the cmorization config fixture for the given CMIP
// version. Unknown versions fail with ErrConfigNotFound.
func (dataset *Dataset) ReadConfig(version string) ([]byte, error) {
	fixture, ok := dataset.record.Configs[version]
	if !ok {
		return nil, fmt.Errorf(
			"%w: no %q config for dataset %q",
			ErrConfigNotFound, version, dataset.name,
		)
	}

	return bundle.ReadFile(path.Join("data", fixture))
}

// DataDir materializes the dataset's data directory and returns its path.
//
// By default a stub tree is generated from the embedded manifest; the
// result is memoized per process unless WithDir is given. With real data
// requested (WithRealData or the FESOMDATA_USE_REAL_DATA environment
// variable) the archive is fetched into the cache, verified and
// extracted instead.
func (dataset *Dataset) DataDir(
	ctx context.Context,
	opts ...Option,
) (string, error) {
	cfg := newConfig(opts)

	if cfg.useReal() {
		return dataset.realDataDir(ctx, cfg)
	}

	return dataset.stubDataDir(cfg)
}

func (dataset *Dataset) stubDataDir(cfg *config) (string, error) {
	if cfg.dir != "" {
		if err := dataset.generateStub(cfg.dir); err != nil {
			return "", err
		}

		return cfg.dir, nil
	}

	datadirsMutex.Lock()
	defer datadirsMutex.Unlock()

	key := dataset.name + "/stub"
	if dir, ok := datadirs[key]; ok {
		return dir, nil
	}

	dir, err := os.MkdirTemp("", "fesomdata-"+dataset.name+"-")
	if err != nil {
		return "", karma.Format(
			err,
			"unable to create stub directory for dataset %q",
			dataset.name,
		)
	}

	if err := dataset.generateStub(dir); err != nil {
		return "", err
	}

	datadirs[key] = dir

	return dir, nil
}

func (dataset *Dataset) generateStub(dir string) error {
	manifest, err := bundle.ReadFile(path.Join("data", dataset.record.Manifest))
	if err != nil {
		return karma.Format(
			err,
			"unable to read embedded manifest for dataset %q",
			dataset.name,
		)
	}

	log.Debugf(
		nil,
		"generating stub data for dataset %q in %s",
		dataset.name, dir,
	)

	if err := stub.Generate(manifest, dir); err != nil {
		return karma.Format(
			err,
			"unable to generate stub data for dataset %q",
			dataset.name,
		)
	}

	if meshdir := dataset.record.Mesh.Dir; meshdir != "" {
		err := mesh.WriteMinimal(filepath.Join(dir, meshdir))
		if err != nil {
			return karma.Format(
				err,
				"unable to generate stub mesh for dataset %q",
				dataset.name,
			)
		}
	}

	return nil
}

func (dataset *Dataset) realDataDir(
	ctx context.Context,
	cfg *config,
) (string, error) {
	cacheDir, err := cfg.fetchCacheDir()
	if err != nil {
		return "", err
	}

	dest := cfg.dir
	memoize := dest == ""
	if memoize {
		datadirsMutex.Lock()
		defer datadirsMutex.Unlock()

		key := dataset.name + "/real"
		if dir, ok := datadirs[key]; ok {
			return dir, nil
		}

		stem := strings.TrimSuffix(
			dataset.record.Archive,
			filepath.Ext(dataset.record.Archive),
		)
		dest = filepath.Join(cacheDir, "extracted", stem)
	}

	datadir := dest
	if inner := dataset.record.InnerDir; inner != "" {
		datadir = filepath.Join(dest, inner)
	}

	// An already extracted tree is reused without touching the network.
	if _, err := os.Stat(datadir); err == nil {
		if memoize {
			datadirs[dataset.name+"/real"] = datadir
		}

		return datadir, nil
	}

	fetcher, err := NewFetcher(fetch.WithCacheDir(cacheDir))
	if err != nil {
		return "", err
	}

	_, err = fetcher.FetchAndExtract(ctx, dataset.record.Archive, dest)
	if err != nil {
		return "", karma.Format(
			err,
			"unable to fetch real data for dataset %q",
			dataset.name,
		)
	}

	if _, err := os.Stat(datadir); err != nil {
		// The declared inner directory is missing from the archive; the
		// extraction root is the best we have.
		log.Debugf(
			nil,
			"archive %q has no inner directory %q, using extraction root",
			dataset.record.Archive, dataset.record.InnerDir,
		)

		datadir = dest
	}

	if memoize {
		datadirs[dataset.name+"/real"] = datadir
	}

	return datadir, nil
}

func (cfg *config) fetchCacheDir() (string, error) {
	if cfg.cacheDir != "" {
		return cfg.cacheDir, nil
	}

	return fetch.DefaultCacheDir()
}

// MeshDir materializes the dataset's mesh directory and returns its path.
//
// For stub data the minimal generated mesh inside the data directory is
// returned. For real data the mesh either lives inside the extracted
// archive or, when the registry names a git repository, is cloned from
// there with git-lfs into the cache.
func (dataset *Dataset) MeshDir(
	ctx context.Context,
	opts ...Option,
) (string, error) {
	cfg := newConfig(opts)

	if cfg.useReal() && dataset.record.Mesh.Git != "" {
		cacheDir, err := cfg.fetchCacheDir()
		if err != nil {
			return "", err
		}

		return cloneMesh(ctx, dataset.record.Mesh.Git, cacheDir)
	}

	datadir, err := dataset.DataDir(ctx, opts...)
	if err != nil {
		return "", err
	}

	return filepath.Join(datadir, dataset.record.Mesh.Dir), nil
}

// Open materializes the data directory, selects the model output files
// with the dataset's glob and opens them as NetCDF. The caller owns the
// returned Output and must Close it.
func (dataset *Dataset) Open(
	ctx context.Context,
	opts ...Option,
) (*Output, error) {
	datadir, err := dataset.DataDir(ctx, opts...)
	if err != nil {
		return nil, err
	}

	pattern := filepath.Join(datadir, dataset.record.OutputGlob)

	files, err := doublestarGlob(pattern)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to glob output files for dataset %q",
			dataset.name,
		)
	}

	if len(files) == 0 {
		return nil, karma.
			Describe("glob", dataset.record.OutputGlob).
			Describe("datadir", datadir).
			Format(
				nil,
				"no output files found for dataset %q",
				dataset.name,
			)
	}

	return openOutput(files)
}
