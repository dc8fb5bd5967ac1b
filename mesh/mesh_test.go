package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMinimal_ProducesEveryFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteMinimal(dir))
	assert.True(t, Exists(dir))

	lineCounts := map[string]int{
		"nod2d.out":  Nodes2D + 1,
		"elem2d.out": Elements2D*2 + 1,
		"nod3d.out":  Nodes3D + 1,
		"elem3d.out": Elements3D + 1,
		"aux3d.out":  Layers + 1,
		"depth.out":  Nodes2D,
	}

	for _, name := range Files {
		contents, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)

		lines := strings.Split(string(contents), "\n")
		assert.Equal(t, lineCounts[name]+1, len(lines), name)
		assert.Equal(t, "", lines[len(lines)-1], name)
	}
}

func TestWriteMinimal_Format(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteMinimal(dir))

	tests := []struct {
		file  string
		line  int
		value string
	}{
		{"nod2d.out", 0, "10"},
		{"nod2d.out", 1, "       1    300.1000000      74.0500000        0"},
		{"elem2d.out", 0, "5"},
		{"elem2d.out", 1, "       1        1        2"},
		{"elem2d.out", 2, "       2        3        2"},
		{"nod3d.out", 0, "30"},
		{"nod3d.out", 1, "       1    300.1000000      74.0500000     -0.0000000        0"},
		{"nod3d.out", 11, "      11    300.1000000      74.0500000   -100.0000000        0"},
		{"elem3d.out", 0, "10"},
		{"elem3d.out", 1, "       1        2        3       11"},
		{"aux3d.out", 0, "3"},
		{"aux3d.out", 1, "       1"},
		{"aux3d.out", 2, "      11"},
		{"aux3d.out", 3, "      21"},
		{"depth.out", 0, "   -100.0"},
		{"depth.out", 9, "   -550.0"},
	}

	for _, test := range tests {
		contents, err := os.ReadFile(filepath.Join(dir, test.file))
		require.NoError(t, err, test.file)

		lines := strings.Split(string(contents), "\n")
		require.Greater(t, len(lines), test.line, test.file)
		assert.Equal(t, test.value, lines[test.line], "%s:%d", test.file, test.line+1)
	}
}

func TestExists_EmptyDir(t *testing.T) {
	assert.False(t, Exists(t.TempDir()))
}
