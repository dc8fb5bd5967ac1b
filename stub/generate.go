package stub

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/reconquest/karma-go"
	"gonum.org/v1/gonum/floats"
)

// Generate creates the stub tree declared by the manifest under dir,
// creating directories as needed. The same manifest always produces the
// same files.
func Generate(manifestYAML []byte, dir string) error {
	manifest, err := Parse(manifestYAML)
	if err != nil {
		return err
	}

	for _, file := range manifest.Files {
		path := filepath.Join(dir, filepath.FromSlash(file.Path))

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return karma.Format(
				err,
				"unable to create directory for %q",
				path,
			)
		}

		switch file.Kind {
		case KindText:
			err = os.WriteFile(path, []byte(file.Contents), 0o644)
		case KindNetCDF:
			err = writeNetCDF(file, path)
		}

		if err != nil {
			return karma.Format(err, "unable to generate %q", path)
		}
	}

	return nil
}

func writeNetCDF(file File, path string) error {
	names := make([]string, len(file.Dims))
	lengths := make([]int, len(file.Dims))
	byName := map[string]int{}

	for i, dim := range file.Dims {
		names[i] = dim.Name
		lengths[i] = dim.Len
		byName[dim.Name] = dim.Len
	}

	header := cdf.NewHeader(names, lengths)

	for _, variable := range file.Variables {
		header.AddVariable(variable.Name, variable.Dims, prototype(variable.Type))

		// Sorted so the attributes serialize in the same order every run.
		attrs := make([]string, 0, len(variable.Attrs))
		for name := range variable.Attrs {
			attrs = append(attrs, name)
		}

		sort.Strings(attrs)

		for _, name := range attrs {
			header.AddAttribute(variable.Name, name, variable.Attrs[name])
		}
	}

	header.Define()

	for _, err := range header.Check() {
		return karma.Format(err, "invalid NetCDF header")
	}

	handle, err := os.Create(path)
	if err != nil {
		return err
	}

	writer, err := cdf.Create(handle, header)
	if err != nil {
		handle.Close()

		return karma.Format(err, "unable to create NetCDF file")
	}

	for _, variable := range file.Variables {
		begin := make([]int, len(variable.Dims))
		end := make([]int, len(variable.Dims))

		total := 1
		for i, dim := range variable.Dims {
			end[i] = byName[dim]
			total *= byName[dim]
		}

		w := writer.Writer(variable.Name, begin, end)
		if _, err := w.Write(values(variable, total)); err != nil {
			handle.Close()

			return karma.Format(
				err,
				"unable to write variable %q",
				variable.Name,
			)
		}
	}

	return handle.Close()
}

func prototype(kind string) interface{} {
	switch kind {
	case TypeFloat:
		return []float32{0}
	case TypeInt:
		return []int32{0}
	default:
		return []float64{0}
	}
}

// values builds the synthetic data for one variable: a linspace over the
// declared span, the constant fill value, or zeros.
func values(variable Variable, total int) interface{} {
	data := make([]float64, total)

	switch {
	case len(variable.Span) == 2:
		floats.Span(data, variable.Span[0], variable.Span[1])
	case variable.Fill != nil:
		for i := range data {
			data[i] = *variable.Fill
		}
	}

	switch variable.Type {
	case TypeFloat:
		converted := make([]float32, total)
		for i, value := range data {
			converted[i] = float32(value)
		}

		return converted
	case TypeInt:
		converted := make([]int32, total)
		for i, value := range data {
			converted[i] = int32(value)
		}

		return converted
	default:
		return data
	}
}
