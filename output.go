package fesomdata

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ctessum/cdf"
	"github.com/reconquest/karma-go"
)

// Output is a set of opened NetCDF model output files. Close releases
// the underlying file handles.
type Output struct {
	names   []string
	files   []*cdf.File
	handles []*os.File
}

func openOutput(paths []string) (*Output, error) {
	output := &Output{}

	for _, path := range paths {
		handle, err := os.Open(path)
		if err != nil {
			output.Close()

			return nil, karma.Format(
				err,
				"unable to open output file %q",
				path,
			)
		}

		file, err := cdf.Open(handle)
		if err != nil {
			handle.Close()
			output.Close()

			return nil, karma.Format(
				err,
				"unable to read output file %q as NetCDF",
				path,
			)
		}

		output.names = append(output.names, filepath.Base(path))
		output.files = append(output.files, file)
		output.handles = append(output.handles, handle)
	}

	return output, nil
}

// Names returns the base names of the opened files, in glob order.
func (output *Output) Names() []string {
	return output.names
}

// Files returns the opened NetCDF files, in the same order as Names.
func (output *Output) Files() []*cdf.File {
	return output.files
}

// Variables returns the sorted union of variable names across all opened
// files.
func (output *Output) Variables() []string {
	seen := map[string]struct{}{}
	for _, file := range output.files {
		for _, name := range file.Header.Variables() {
			seen[name] = struct{}{}
		}
	}

	variables := make([]string, 0, len(seen))
	for name := range seen {
		variables = append(variables, name)
	}

	sort.Strings(variables)

	return variables
}

// Close closes every underlying file handle, returning the first error.
func (output *Output) Close() error {
	var first error
	for _, handle := range output.handles {
		if err := handle.Close(); err != nil && first == nil {
			first = err
		}
	}

	output.names = nil
	output.files = nil
	output.handles = nil

	return first
}

func doublestarGlob(pattern string) ([]string, error) {
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	return files, nil
}
