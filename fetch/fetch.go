// Package fetch downloads the packaged dataset archives, verifies their
// checksums and keeps them in a local cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"gopkg.in/yaml.v3"
)

// EnvCacheDir overrides the default archive cache location.
const EnvCacheDir = "FESOMDATA_CACHE_DIR"

// Sentinel errors returned by the fetcher. Use errors.Is to check for
// them; they may arrive wrapped with additional context.
var (
	// ErrUnknownArchive indicates the archive is not in the registry.
	ErrUnknownArchive = errors.New("fetch: unknown archive")

	// ErrChecksumMismatch indicates downloaded or cached data failed
	// sha256 verification.
	ErrChecksumMismatch = errors.New("fetch: checksum mismatch")
)

// Archive is one downloadable archive from the registry.
type Archive struct {
	// Name is the archive filename, unique within the registry.
	Name string

	// URL is the archive source. Supported schemes: http, https, s3, gs
	// and file.
	URL string

	// SHA256 is the expected checksum of the archive contents.
	SHA256 string
}

// HTTPClient is the interface the fetcher uses for http(s) downloads.
// *http.Client satisfies it; tests substitute their own.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Fetcher downloads registry archives into a cache directory.
type Fetcher struct {
	archives map[string]Archive
	cacheDir string
	client   HTTPClient
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCacheDir overrides the cache directory.
func WithCacheDir(dir string) Option {
	return func(fetcher *Fetcher) {
		fetcher.cacheDir = dir
	}
}

// WithHTTPClient substitutes the client used for http(s) downloads.
func WithHTTPClient(client HTTPClient) Option {
	return func(fetcher *Fetcher) {
		fetcher.client = client
	}
}

// DefaultCacheDir returns the archive cache location: the
// FESOMDATA_CACHE_DIR environment variable when set, otherwise
// "fesomdata" under the user cache directory.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", karma.Format(err, "unable to determine user cache directory")
	}

	return filepath.Join(dir, "fesomdata"), nil
}

// New parses the registry and returns a fetcher for its archives. The
// registry follows data/registry.yaml: a map of dataset records, each
// naming an archive with its url and sha256.
func New(registryYAML []byte, opts ...Option) (*Fetcher, error) {
	var records map[string]struct {
		Archive string `yaml:"archive"`
		URL     string `yaml:"url"`
		SHA256  string `yaml:"sha256"`
	}

	if err := yaml.Unmarshal(registryYAML, &records); err != nil {
		return nil, karma.Format(err, "unable to parse archive registry")
	}

	archives := map[string]Archive{}
	for name, record := range records {
		if record.Archive == "" {
			return nil, fmt.Errorf(
				"registry record %q declares no archive",
				name,
			)
		}

		archives[record.Archive] = Archive{
			Name:   record.Archive,
			URL:    record.URL,
			SHA256: record.SHA256,
		}
	}

	fetcher := &Fetcher{
		archives: archives,
		client:   http.DefaultClient,
	}

	for _, opt := range opts {
		opt(fetcher)
	}

	if fetcher.cacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}

		fetcher.cacheDir = dir
	}

	return fetcher, nil
}

// Archives returns the registered archive names, unordered.
func (fetcher *Fetcher) Archives() []string {
	names := make([]string, 0, len(fetcher.archives))
	for name := range fetcher.archives {
		names = append(names, name)
	}

	return names
}

// Path returns the cache path the given archive lands in after a
// successful fetch, and whether it is currently present.
func (fetcher *Fetcher) Path(name string) (string, bool, error) {
	archive, ok := fetcher.archives[name]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownArchive, name)
	}

	path := filepath.Join(fetcher.cacheDir, archive.Name)

	_, err := os.Stat(path)

	return path, err == nil, nil
}

// Fetch ensures the archive is present and verified in the cache and
// returns its path. A cached copy is re-verified; on a stale checksum
// the archive is downloaded again before failing.
func (fetcher *Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	archive, ok := fetcher.archives[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownArchive, name)
	}

	path := filepath.Join(fetcher.cacheDir, archive.Name)

	if _, err := os.Stat(path); err == nil {
		err := verifyChecksum(path, archive.SHA256)
		if err == nil {
			log.Debugf(nil, "using cached archive: %s", path)

			return path, nil
		}

		if !errors.Is(err, ErrChecksumMismatch) {
			return "", err
		}

		log.Infof(
			nil,
			"cached archive %s is stale, downloading again",
			path,
		)
	}

	if err := fetcher.download(ctx, archive, path); err != nil {
		return "", err
	}

	if err := verifyChecksum(path, archive.SHA256); err != nil {
		return "", err
	}

	return path, nil
}

// FetchAndExtract fetches the archive and unpacks it into destDir,
// returning destDir.
func (fetcher *Fetcher) FetchAndExtract(
	ctx context.Context,
	name string,
	destDir string,
) (string, error) {
	path, err := fetcher.Fetch(ctx, name)
	if err != nil {
		return "", err
	}

	if err := Untar(path, destDir); err != nil {
		return "", karma.Format(
			err,
			"unable to extract archive %q into %q",
			path, destDir,
		)
	}

	return destDir, nil
}

// download retrieves the archive into the cache using write-then-rename,
// so a failed download never leaves a partial archive behind.
func (fetcher *Fetcher) download(
	ctx context.Context,
	archive Archive,
	path string,
) error {
	if err := os.MkdirAll(fetcher.cacheDir, 0o755); err != nil {
		return karma.Format(
			err,
			"unable to create cache directory %q",
			fetcher.cacheDir,
		)
	}

	log.Infof(nil, "downloading %s from %s", archive.Name, archive.URL)

	reader, err := fetcher.open(ctx, archive.URL)
	if err != nil {
		return karma.Format(
			err,
			"unable to download archive %q",
			archive.Name,
		)
	}

	defer reader.Close()

	temp, err := os.CreateTemp(fetcher.cacheDir, archive.Name+".download-*")
	if err != nil {
		return karma.Format(err, "unable to create download file")
	}

	defer os.Remove(temp.Name())

	if _, err := io.Copy(temp, reader); err != nil {
		temp.Close()

		return karma.Format(
			err,
			"unable to download archive %q",
			archive.Name,
		)
	}

	if err := temp.Close(); err != nil {
		return karma.Format(err, "unable to finish download file")
	}

	if err := os.Rename(temp.Name(), path); err != nil {
		return karma.Format(
			err,
			"unable to move downloaded archive into the cache",
		)
	}

	return nil
}

func (fetcher *Fetcher) open(
	ctx context.Context,
	url string,
) (io.ReadCloser, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		response, err := fetcher.client.Do(request)
		if err != nil {
			return nil, err
		}

		if response.StatusCode != http.StatusOK {
			response.Body.Close()

			return nil, fmt.Errorf(
				"unexpected status %q from %s",
				response.Status, url,
			)
		}

		return response.Body, nil
	}

	return openBlob(ctx, url)
}

// GetChecksum returns the hex encoded sha256 checksum of the reader
// contents.
func GetChecksum(reader io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, reader); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func verifyChecksum(path string, expected string) error {
	file, err := os.Open(path)
	if err != nil {
		return karma.Format(err, "unable to open archive %q", path)
	}

	defer file.Close()

	actual, err := GetChecksum(file)
	if err != nil {
		return karma.Format(err, "unable to checksum archive %q", path)
	}

	if actual != expected {
		return fmt.Errorf(
			"%w: archive %q has checksum %s, expected %s",
			ErrChecksumMismatch, path, actual, expected,
		)
	}

	return nil
}
