// Package mesh generates a minimal FESOM mesh in the classic ASCII format.
//
// The mesh is a ten node strip in the Fram Strait with three vertical
// layers. It is far too small to run a model on, but every file a mesh
// reader expects is present and well formed, which is all the stub data
// trees need.
package mesh

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reconquest/karma-go"
)

// Sizes of the minimal mesh.
const (
	Nodes2D    = 10
	Elements2D = 5
	Nodes3D    = 30
	Elements3D = 10
	Layers     = 3
)

// Files lists the mesh files WriteMinimal produces, in the order they are
// written.
var Files = []string{
	"nod2d.out",
	"elem2d.out",
	"nod3d.out",
	"elem3d.out",
	"aux3d.out",
	"depth.out",
}

var builders = map[string]func(*bytes.Buffer){
	"nod2d.out":  buildNodes2D,
	"elem2d.out": buildElements2D,
	"nod3d.out":  buildNodes3D,
	"elem3d.out": buildElements3D,
	"aux3d.out":  buildAux3D,
	"depth.out":  buildDepths,
}

// WriteMinimal writes the minimal mesh into dir, creating the directory if
// needed. Existing mesh files are overwritten.
func WriteMinimal(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return karma.Format(err, "unable to create mesh directory %q", dir)
	}

	for _, name := range Files {
		var buffer bytes.Buffer
		builders[name](&buffer)

		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
			return karma.Format(err, "unable to write mesh file %q", path)
		}
	}

	return nil
}

// Exists reports whether dir holds every file of the minimal mesh.
func Exists(dir string) bool {
	for _, name := range Files {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}

	return true
}

// buildNodes2D writes the 2D node table: node index, longitude, latitude
// and a boundary flag, preceded by the node count.
func buildNodes2D(buffer *bytes.Buffer) {
	fmt.Fprintf(buffer, "%d\n", Nodes2D)
	for i := 1; i <= Nodes2D; i++ {
		lon := 300.0 + float64(i)*0.1
		lat := 74.0 + float64(i)*0.05
		fmt.Fprintf(buffer, "%8d %14.7f  %14.7f        0\n", i, lon, lat)
	}
}

// buildElements2D writes the 2D element connectivity, two triangles per
// row of the node strip.
func buildElements2D(buffer *bytes.Buffer) {
	fmt.Fprintf(buffer, "%d\n", Elements2D)
	for i := 1; i <= Elements2D; i++ {
		fmt.Fprintf(buffer, "%8d %8d %8d\n", i, i, i+1)
		fmt.Fprintf(buffer, "%8d %8d %8d\n", i+1, i+2, (i%8)+1)
	}
}

// buildNodes3D writes the 3D node table: the 2D strip repeated at each
// of the three layer depths.
func buildNodes3D(buffer *bytes.Buffer) {
	fmt.Fprintf(buffer, "%d\n", Nodes3D)
	for i := 1; i <= Nodes3D; i++ {
		lon := 300.0 + float64(i%10)*0.1
		lat := 74.0 + float64(i%10)*0.05
		depth := -100.0 * float64(i/10)
		fmt.Fprintf(buffer, "%8d %14.7f  %14.7f %14.7f        0\n", i, lon, lat, depth)
	}
}

// buildElements3D writes the 3D element connectivity (tetrahedra).
func buildElements3D(buffer *bytes.Buffer) {
	fmt.Fprintf(buffer, "%d\n", Elements3D)
	for i := 1; i <= Elements3D; i++ {
		fmt.Fprintf(buffer, "%8d %8d %8d %8d\n", i, i+1, i+2, i+10)
	}
}

// buildAux3D writes the layer count followed by the first 3D node index
// of each layer.
func buildAux3D(buffer *bytes.Buffer) {
	fmt.Fprintf(buffer, "%d\n", Layers)
	for layer := 0; layer < Layers; layer++ {
		fmt.Fprintf(buffer, "%8d\n", layer*Nodes2D+1)
	}
}

// buildDepths writes one depth level per 2D node.
func buildDepths(buffer *bytes.Buffer) {
	for i := 0; i < Nodes2D; i++ {
		fmt.Fprintf(buffer, "   %.1f\n", -100.0-float64(i)*50)
	}
}
