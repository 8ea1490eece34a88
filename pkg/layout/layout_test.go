package layout

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompose(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "src")

	tests := []struct {
		name string
		path string
		want Location
	}{
		{
			name: "two segments",
			path: filepath.Join(root, "Proj", "a.txt"),
			want: Location{TopFolder: "Proj", Filename: "a.txt"},
		},
		{
			name: "nested",
			path: filepath.Join(root, "Proj", "docs", "v2", "a.txt"),
			want: Location{TopFolder: "Proj", MiddlePath: filepath.Join("docs", "v2"), Filename: "a.txt"},
		},
		{
			name: "file directly under root",
			path: filepath.Join(root, "root.txt"),
			want: Location{TopFolder: RootFolder, Filename: "root.txt"},
		},
		{
			name: "unclean input",
			path: root + string(filepath.Separator) + "Proj" + string(filepath.Separator) + "." + string(filepath.Separator) + "a.txt",
			want: Location{TopFolder: "Proj", Filename: "a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decompose(root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecomposeRejoins(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "data", "src")
	rels := []string{
		filepath.Join("a", "b"),
		filepath.Join("a", "b", "c"),
		filepath.Join("Proj", "x", "y", "z", "file.bin"),
	}

	for _, rel := range rels {
		loc, err := Decompose(root, filepath.Join(root, rel))
		require.NoError(t, err)
		assert.Equal(t, rel, filepath.Join(loc.TopFolder, loc.MiddlePath, loc.Filename))
	}
}

func TestDecomposeOutsideRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "src")

	paths := []string{
		filepath.Join(string(filepath.Separator), "other", "a.txt"),
		filepath.Join(string(filepath.Separator), "srcfoo", "a.txt"),
		root,
		filepath.Join(root, ".."),
	}
	if runtime.GOOS != "windows" {
		paths = append(paths, "relative/a.txt")
	}

	for _, p := range paths {
		_, err := Decompose(root, p)
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, ErrOutsideRoot), p)

		var pathErr *PathError
		require.True(t, errors.As(err, &pathErr))
		assert.Equal(t, p, pathErr.Path)
	}
}

func TestCountVersions(t *testing.T) {
	backupDir := t.TempDir()

	count, err := CountVersions(backupDir, "Proj")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "missing top folder")

	top := filepath.Join(backupDir, "Proj")
	require.NoError(t, os.MkdirAll(filepath.Join(top, "Proj-1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(top, "Proj-2", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(top, "stray.txt"), []byte("x"), 0o600))

	count, err = CountVersions(backupDir, "Proj")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "only direct subdirectories count")

	again, err := CountVersions(backupDir, "Proj")
	require.NoError(t, err)
	assert.Equal(t, count, again, "idempotent without intervening mkdir")

	other, err := CountVersions(backupDir, "Other")
	require.NoError(t, err)
	assert.Equal(t, 0, other, "counters are per top folder")
}

func TestCountVersionsListingError(t *testing.T) {
	backupDir := t.TempDir()

	// A regular file where the top folder should be cannot be listed.
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "Proj"), []byte("x"), 0o600))

	count, err := CountVersions(backupDir, "Proj")
	assert.Error(t, err)
	assert.Equal(t, 0, count)
}
