// Package stub generates placeholder data trees from YAML manifests.
//
// A manifest declares the files of a dataset: small NetCDF files with
// their dimensions, variables and synthetic values, plus plain text
// files with literal contents. The generated tree has the same layout
// and metadata as the real archive, shrunk to the minimal mesh.
package stub

import (
	"fmt"

	"github.com/reconquest/karma-go"
	"gopkg.in/yaml.v3"
)

// File kinds a manifest can declare.
const (
	KindNetCDF = "netcdf"
	KindText   = "text"
)

// Variable value types for netcdf files.
const (
	TypeDouble = "double"
	TypeFloat  = "float"
	TypeInt    = "int"
)

// Manifest is the parsed stub manifest.
type Manifest struct {
	Files []File `yaml:"files"`
}

// File is one file of the stub tree.
type File struct {
	// Path of the file relative to the data directory.
	Path string `yaml:"path"`

	// Kind is either "netcdf" or "text".
	Kind string `yaml:"kind"`

	// Contents holds the literal contents of a text file.
	Contents string `yaml:"contents"`

	// Dims declares the dimensions of a netcdf file, in order.
	Dims []Dim `yaml:"dims"`

	// Variables declares the variables of a netcdf file.
	Variables []Variable `yaml:"variables"`
}

// Dim is a named netcdf dimension.
type Dim struct {
	Name string `yaml:"name"`
	Len  int    `yaml:"len"`
}

// Variable is one netcdf variable with its synthetic values: either
// evenly spaced over Span, or the constant Fill. Without both, the
// variable is all zeros.
type Variable struct {
	Name  string            `yaml:"name"`
	Dims  []string          `yaml:"dims"`
	Type  string            `yaml:"type"`
	Span  []float64         `yaml:"span"`
	Fill  *float64          `yaml:"fill"`
	Attrs map[string]string `yaml:"attrs"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, karma.Format(err, "unable to parse stub manifest")
	}

	for _, file := range manifest.Files {
		if file.Path == "" {
			return nil, fmt.Errorf("manifest file entry without a path")
		}

		switch file.Kind {
		case KindText:

		case KindNetCDF:
			if err := validateNetCDF(file); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf(
				"manifest file %q has unknown kind %q",
				file.Path, file.Kind,
			)
		}
	}

	return &manifest, nil
}

func validateNetCDF(file File) error {
	lengths := map[string]int{}
	for _, dim := range file.Dims {
		if dim.Len <= 0 {
			return fmt.Errorf(
				"manifest file %q: dimension %q has length %d",
				file.Path, dim.Name, dim.Len,
			)
		}

		lengths[dim.Name] = dim.Len
	}

	for _, variable := range file.Variables {
		switch variable.Type {
		case TypeDouble, TypeFloat, TypeInt:
		default:
			return fmt.Errorf(
				"manifest file %q: variable %q has unknown type %q",
				file.Path, variable.Name, variable.Type,
			)
		}

		for _, dim := range variable.Dims {
			if _, ok := lengths[dim]; !ok {
				return fmt.Errorf(
					"manifest file %q: variable %q uses undeclared dimension %q",
					file.Path, variable.Name, dim,
				)
			}
		}

		if len(variable.Span) != 0 && len(variable.Span) != 2 {
			return fmt.Errorf(
				"manifest file %q: variable %q span must be [lo, hi]",
				file.Path, variable.Name,
			)
		}

		if len(variable.Span) == 2 {
			total := 1
			for _, dim := range variable.Dims {
				total *= lengths[dim]
			}

			// A span needs at least both endpoints.
			if total < 2 {
				return fmt.Errorf(
					"manifest file %q: variable %q spans %d value(s), need at least 2",
					file.Path, variable.Name, total,
				)
			}
		}
	}

	return nil
}
