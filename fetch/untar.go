package fetch

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/reconquest/karma-go"
)

// Untar unpacks a tar archive (gzip compressed or plain) into destDir.
// Entries escaping destDir through absolute paths or ".." are rejected;
// entry types other than directories and regular files are skipped.
func Untar(path string, destDir string) error {
	file, err := os.Open(path)
	if err != nil {
		return karma.Format(err, "unable to open archive %q", path)
	}

	defer file.Close()

	var reader io.Reader = file

	gz, err := gzip.NewReader(file)
	switch {
	case err == nil:
		defer gz.Close()

		reader = gz
	case errors.Is(err, gzip.ErrHeader):
		// Plain tar. Rewind past the magic sniff.
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return karma.Format(err, "unable to rewind archive %q", path)
		}
	default:
		return karma.Format(err, "unable to read archive %q", path)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return karma.Format(err, "unable to create directory %q", destDir)
	}

	archive := tar.NewReader(reader)
	for {
		header, err := archive.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return karma.Format(err, "unable to read archive %q", path)
		}

		target, err := sanitizePath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return karma.Format(
					err,
					"unable to create directory %q",
					target,
				)
			}
		case tar.TypeReg:
			if err := extractFile(archive, header, target); err != nil {
				return err
			}
		}
	}
}

// sanitizePath resolves an archive entry name within destDir, refusing
// names that would land outside of it.
func sanitizePath(destDir string, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q has an absolute path", name)
	}

	// "./" entries resolve to destDir itself; that is the root of the
	// archive, not an escape.
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if target != filepath.Clean(destDir) &&
		!strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes %q", name, destDir)
	}

	return target, nil
}

func extractFile(reader io.Reader, header *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return karma.Format(
			err,
			"unable to create directory %q",
			filepath.Dir(target),
		)
	}

	mode := os.FileMode(header.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return karma.Format(err, "unable to create file %q", target)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()

		return karma.Format(err, "unable to extract file %q", target)
	}

	return file.Close()
}
