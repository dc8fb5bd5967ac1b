package fesomdata

import "os"

// EnvUseRealData switches every dataset from stub to real data when set
// to a non-empty value, without touching the calling code.
const EnvUseRealData = "FESOMDATA_USE_REAL_DATA"

// Option configures how a dataset materializes its data and mesh
// directories.
type Option func(*config)

type config struct {
	// dir is an explicit target directory. When set, memoization is
	// skipped and the caller owns the directory.
	dir string

	// real selects real (fetched) or stub (generated) data. nil means
	// the EnvUseRealData environment variable decides.
	real *bool

	// cacheDir overrides the archive cache location.
	cacheDir string
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

func (cfg *config) useReal() bool {
	if cfg.real != nil {
		return *cfg.real
	}

	return os.Getenv(EnvUseRealData) != ""
}

// WithDir materializes the data into the given directory instead of a
// memoized per-process location.
func WithDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = dir
	}
}

// WithRealData fetches the real archive regardless of the environment.
func WithRealData() Option {
	return func(cfg *config) {
		real := true
		cfg.real = &real
	}
}

// WithStubData generates stub data regardless of the environment.
func WithStubData() Option {
	return func(cfg *config) {
		real := false
		cfg.real = &real
	}
}

// WithCacheDir overrides the directory real archives are cached in.
func WithCacheDir(dir string) Option {
	return func(cfg *config) {
		cfg.cacheDir = dir
	}
}
