package convert

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMeshName(t *testing.T) {
	tests := []struct {
		mesh string
		dir  string
		name string
	}{
		{"FEMMesh", ".", "FEMMesh"},
		{"FEMMesh.unv", ".", "FEMMesh"},
		{"/data/plate/FEMMesh.unv", "/data/plate", "FEMMesh"},
		{"plate/mesh", "plate", "mesh"},
	}
	for _, tt := range tests {
		t.Run(tt.mesh, func(t *testing.T) {
			dir, name := MeshName(tt.mesh)
			assert.Equal(t, tt.dir, dir)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable name differs on windows")
	}

	c := New(Config{Logger: quietLogger()})
	assert.Equal(t, "ElmerGrid 8 2 FEMMesh -autoclean", c.Command(formatElmer, "FEMMesh"))
	assert.Equal(t, "ElmerGrid 8 5 FEMMesh -autoclean", c.Command(formatVTU, "FEMMesh"))
	assert.Equal(t, "ElmerGrid 8 2 'my mesh' -autoclean", c.Command(formatElmer, "my mesh"))

	c = New(Config{ElmerDir: "/opt/elmer/bin", Logger: quietLogger()})
	assert.Equal(t, "/opt/elmer/bin/ElmerGrid 8 2 FEMMesh -autoclean", c.Command(formatElmer, "FEMMesh"))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain", shellQuote("plain"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestConvert_MeshNotFound(t *testing.T) {
	c := New(Config{Logger: quietLogger()})
	_, err := c.Convert(context.Background(), filepath.Join(t.TempDir(), "FEMMesh"), false)
	require.ErrorIs(t, err, ErrMeshNotFound)
}
