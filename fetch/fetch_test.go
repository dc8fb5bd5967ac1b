package fetch

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTar(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buffer bytes.Buffer

	writer := tar.NewWriter(&buffer)
	for name, contents := range files {
		require.NoError(t, writer.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(contents)),
		}))

		_, err := writer.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buffer.Bytes()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

func registryYAML(archive string, url string, sha256 string) []byte {
	return []byte(fmt.Sprintf(
		"test_dataset:\n  archive: %s\n  url: %s\n  sha256: %s\n",
		archive, url, sha256,
	))
}

func TestFetcher_Fetch(t *testing.T) {
	archive := makeTar(t, map[string]string{
		"outdata/temp.fesom.1948.nc": "not actually netcdf",
	})

	var requests int

	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			requests++
			writer.Write(archive)
		},
	))
	defer server.Close()

	fetcher, err := New(
		registryYAML("data.tar", server.URL+"/data.tar", checksum(archive)),
		WithCacheDir(t.TempDir()),
	)
	require.NoError(t, err)

	path, err := fetcher.Fetch(context.Background(), "data.tar")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, archive, contents)

	// A second fetch is served from the cache.
	again, err := fetcher.Fetch(context.Background(), "data.tar")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, requests)

	cached, ok, err := fetcher.Path("data.tar")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, path, cached)
}

func TestFetcher_Fetch_StaleCache(t *testing.T) {
	archive := makeTar(t, map[string]string{"file.txt": "payload"})

	var requests int

	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			requests++
			writer.Write(archive)
		},
	))
	defer server.Close()

	cacheDir := t.TempDir()

	fetcher, err := New(
		registryYAML("data.tar", server.URL+"/data.tar", checksum(archive)),
		WithCacheDir(cacheDir),
	)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(cacheDir, "data.tar"),
		[]byte("corrupted"),
		0o644,
	))

	path, err := fetcher.Fetch(context.Background(), "data.tar")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, archive, contents)
}

func TestFetcher_Fetch_ChecksumMismatch(t *testing.T) {
	archive := makeTar(t, map[string]string{"file.txt": "payload"})

	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			writer.Write(archive)
		},
	))
	defer server.Close()

	fetcher, err := New(
		registryYAML(
			"data.tar",
			server.URL+"/data.tar",
			checksum([]byte("something else")),
		),
		WithCacheDir(t.TempDir()),
	)
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "data.tar")
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestFetcher_Fetch_UnknownArchive(t *testing.T) {
	fetcher, err := New(
		registryYAML("data.tar", "https://example.invalid/data.tar", "00"),
		WithCacheDir(t.TempDir()),
	)
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "other.tar")
	assert.ErrorIs(t, err, ErrUnknownArchive)

	_, _, err = fetcher.Path("other.tar")
	assert.ErrorIs(t, err, ErrUnknownArchive)
}

func TestFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher, err := New(
		registryYAML("data.tar", server.URL+"/data.tar", "00"),
		WithCacheDir(t.TempDir()),
	)
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "data.tar")
	assert.Error(t, err)
}

func TestFetcher_Fetch_FileScheme(t *testing.T) {
	archive := makeTar(t, map[string]string{"file.txt": "payload"})

	sourceDir := t.TempDir()
	source := filepath.Join(sourceDir, "data.tar")
	require.NoError(t, os.WriteFile(source, archive, 0o644))

	fetcher, err := New(
		registryYAML("data.tar", "file://"+source, checksum(archive)),
		WithCacheDir(t.TempDir()),
	)
	require.NoError(t, err)

	path, err := fetcher.Fetch(context.Background(), "data.tar")
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, archive, contents)
}

func TestFetcher_FetchAndExtract(t *testing.T) {
	archive := makeTar(t, map[string]string{
		"outdata/temp.fesom.1948.nc": "not actually netcdf",
		"fesom.clock":                "0.0 1 1948\n",
	})

	server := httptest.NewServer(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			writer.Write(archive)
		},
	))
	defer server.Close()

	fetcher, err := New(
		registryYAML("data.tar", server.URL+"/data.tar", checksum(archive)),
		WithCacheDir(t.TempDir()),
	)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "extracted")

	dir, err := fetcher.FetchAndExtract(context.Background(), "data.tar", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, dir)

	contents, err := os.ReadFile(filepath.Join(dir, "fesom.clock"))
	require.NoError(t, err)
	assert.Equal(t, "0.0 1 1948\n", string(contents))

	_, err = os.Stat(filepath.Join(dir, "outdata", "temp.fesom.1948.nc"))
	assert.NoError(t, err)
}

func TestUntar_RejectsTraversal(t *testing.T) {
	tests := map[string]string{
		"dotdot":   "../evil.txt",
		"absolute": "/evil.txt",
	}

	for name, entry := range tests {
		t.Run(name, func(t *testing.T) {
			archive := makeTar(t, map[string]string{entry: "evil"})

			path := filepath.Join(t.TempDir(), "evil.tar")
			require.NoError(t, os.WriteFile(path, archive, 0o644))

			err := Untar(path, t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestUntar_DotSlashEntries(t *testing.T) {
	// The shape `tar -cf out.tar .` produces: a "./" directory entry
	// followed by "./"-prefixed files.
	var buffer bytes.Buffer

	writer := tar.NewWriter(&buffer)
	require.NoError(t, writer.WriteHeader(&tar.Header{
		Name:     "./",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
	}))
	require.NoError(t, writer.WriteHeader(&tar.Header{
		Name:     "./fesom.clock",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len("0.0 1 1948\n")),
	}))
	_, err := writer.Write([]byte("0.0 1 1948\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	path := filepath.Join(t.TempDir(), "data.tar")
	require.NoError(t, os.WriteFile(path, buffer.Bytes(), 0o644))

	dest := t.TempDir()
	require.NoError(t, Untar(path, dest))

	contents, err := os.ReadFile(filepath.Join(dest, "fesom.clock"))
	require.NoError(t, err)
	assert.Equal(t, "0.0 1 1948\n", string(contents))
}

func TestGetChecksum(t *testing.T) {
	sum, err := GetChecksum(bytes.NewBufferString("hello"))
	require.NoError(t, err)
	assert.Equal(
		t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		sum,
	)
}

func TestNew_InvalidRegistry(t *testing.T) {
	_, err := New([]byte("not: [valid"), WithCacheDir(t.TempDir()))
	assert.Error(t, err)

	_, err = New([]byte("broken:\n  url: http://x\n"), WithCacheDir(t.TempDir()))
	assert.Error(t, err)
}
