package fesomdata

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDataset_Bundle(t *testing.T) {
	for _, name := range AvailableDatasets() {
		dataset, err := OpenDataset(name)
		require.NoError(t, err, name)

		manifest, err := fs.ReadFile(dataset.Bundle(), "manifest.yaml")
		require.NoError(t, err, name)
		assert.NotEmpty(t, manifest, name)
	}
}

func TestDataset_Configs(t *testing.T) {
	for _, name := range AvailableDatasets() {
		dataset, err := OpenDataset(name)
		require.NoError(t, err, name)

		configs := dataset.Configs()
		assert.Contains(t, configs, "cmip6", name)
		assert.Contains(t, configs, "cmip7", name)

		for version := range configs {
			contents, err := dataset.ReadConfig(version)
			require.NoError(t, err, name)

			var parsed map[string]interface{}
			require.NoError(t, yaml.Unmarshal(contents, &parsed), name)
			assert.Contains(t, parsed, "general", name)
		}
	}
}

func TestDataset_ReadConfig_Unknown(t *testing.T) {
	dataset, err := OpenDataset("fesom_2p6")
	require.NoError(t, err)

	_, err = dataset.ReadConfig("cmip5")
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestDataset_DataDir_Stub(t *testing.T) {
	tests := map[string]struct {
		files []string
	}{
		"fesom_2p6": {
			files: []string{
				"outdata/fesom/temp.fesom.1948.nc",
				"outdata/fesom/temp.fesom.1949.nc",
				"outdata/fesom/fesom.clock",
				"input/fesom/mesh/pi/nod2d.out",
				"input/fesom/mesh/pi/depth.out",
			},
		},
		"fesom_dev": {
			files: []string{
				"temp.fesom.1948.nc",
				"salt.fesom.1948.nc",
				"nod2d.out",
				"depth.out",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dataset, err := OpenDataset(name)
			require.NoError(t, err)

			dir := t.TempDir()

			datadir, err := dataset.DataDir(
				context.Background(),
				WithDir(dir),
				WithStubData(),
			)
			require.NoError(t, err)
			assert.Equal(t, dir, datadir)

			for _, file := range test.files {
				info, err := os.Stat(filepath.Join(datadir, file))
				require.NoError(t, err, file)
				assert.Greater(t, info.Size(), int64(0), file)
			}
		})
	}
}

func TestDataset_DataDir_Memoized(t *testing.T) {
	dataset, err := OpenDataset("fesom_dev")
	require.NoError(t, err)

	first, err := dataset.DataDir(context.Background(), WithStubData())
	require.NoError(t, err)

	second, err := dataset.DataDir(context.Background(), WithStubData())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDataset_MeshDir_Stub(t *testing.T) {
	tests := map[string]string{
		"fesom_2p6": "input/fesom/mesh/pi",
		"fesom_dev": ".",
	}

	for name, subdir := range tests {
		t.Run(name, func(t *testing.T) {
			dataset, err := OpenDataset(name)
			require.NoError(t, err)

			dir := t.TempDir()

			meshdir, err := dataset.MeshDir(
				context.Background(),
				WithDir(dir),
				WithStubData(),
			)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, subdir), meshdir)

			_, err = os.Stat(filepath.Join(meshdir, "nod2d.out"))
			assert.NoError(t, err)
		})
	}
}

func TestDataset_Open_Stub(t *testing.T) {
	tests := map[string]struct {
		names     []string
		variables []string
	}{
		"fesom_2p6": {
			names:     []string{"temp.fesom.1948.nc", "temp.fesom.1949.nc"},
			variables: []string{"temp", "time"},
		},
		"fesom_dev": {
			names:     []string{"salt.fesom.1948.nc", "temp.fesom.1948.nc"},
			variables: []string{"salt", "temp", "time"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dataset, err := OpenDataset(name)
			require.NoError(t, err)

			output, err := dataset.Open(
				context.Background(),
				WithDir(t.TempDir()),
				WithStubData(),
			)
			require.NoError(t, err)

			defer output.Close()

			assert.Equal(t, test.names, output.Names())
			assert.Equal(t, test.variables, output.Variables())
			assert.Len(t, output.Files(), len(test.names))

			for _, file := range output.Files() {
				assert.Equal(t, 12, file.Header.Lengths("time")[0])
			}

			assert.NoError(t, output.Close())
		})
	}
}
