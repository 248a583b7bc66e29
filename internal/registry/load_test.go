package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshweave/internal/value"
)

// writeManifests creates the given files under a fresh temporary directory
// and returns its path.
func writeManifests(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestLoadManifests_Success(t *testing.T) {
	dir := writeManifests(t, map[string]string{
		"deform/twist.hcl": `
operation "twist" {
  description = "Twists the mesh around an axis."

  input "in_mesh" {
    type = mesh
  }
  input "angle" {
    type    = scalar
    default = 2
  }
  input "axis" {
    type    = enum
    options = ["x", "y", "z"]
    default = "y"
  }
  input "pivot" {
    type     = vector
    optional = true
  }

  output "out_mesh" {
    type = mesh
  }
  output "max_offset" {
    type        = scalar
    description = "Largest vertex displacement."
  }
}
`,
		"README.md": "ignored",
	})

	r := NewWithBuiltins()
	require.NoError(t, r.LoadManifests(context.Background(), dir))

	sig, ok := r.Lookup("twist")
	require.True(t, ok)
	assert.Equal(t, Host, sig.Kind)
	assert.Equal(t, "Twists the mesh around an axis.", sig.Description)
	assert.Equal(t, []string{"in_mesh", "angle", "axis", "pivot"}, sig.InputNames())
	assert.Equal(t, filepath.Join(dir, "deform", "twist.hcl"), sig.Source)

	angle, _, _ := sig.Input("angle")
	require.NotNil(t, angle.Default)
	assert.True(t, value.NewScalar(2).Equal(*angle.Default))

	axis, _, _ := sig.Input("axis")
	assert.Equal(t, value.Enum, axis.Type)
	assert.Equal(t, []string{"x", "y", "z"}, axis.Options)

	pivot, _, _ := sig.Input("pivot")
	assert.True(t, pivot.Optional)
	assert.False(t, pivot.Required())

	require.Len(t, sig.Outputs, 2)
	assert.Equal(t, "max_offset", sig.Outputs[1].Name)
	assert.Equal(t, "Largest vertex displacement.", sig.Outputs[1].Description)
}

func TestLoadManifests_EmptyDirectory(t *testing.T) {
	r := New()
	require.NoError(t, r.LoadManifests(context.Background(), t.TempDir()))
	assert.Equal(t, 0, r.Len())
}

func TestLoadManifests_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name:     "syntax error",
			manifest: `operation "broken" {`,
			wantErr:  "failed to parse HCL file",
		},
		{
			name: "missing type",
			manifest: `
operation "twist" {
  input "angle" {}
  output "out_mesh" { type = mesh }
}`,
			wantErr: "Missing 'type' attribute",
		},
		{
			name: "unknown type keyword",
			manifest: `
operation "twist" {
  output "out_mesh" { type = polygon }
}`,
			wantErr: "unknown type \"polygon\"",
		},
		{
			name: "complex type expression",
			manifest: `
operation "twist" {
  output "out_mesh" { type = list(mesh) }
}`,
			wantErr: "Invalid type expression",
		},
		{
			name: "duplicate input",
			manifest: `
operation "twist" {
  input "a" { type = scalar }
  input "a" { type = scalar }
  output "out_mesh" { type = mesh }
}`,
			wantErr: "Duplicate input definition",
		},
		{
			name: "default of wrong type",
			manifest: `
operation "twist" {
  input "angle" {
    type    = scalar
    default = "wide"
  }
  output "out_mesh" { type = mesh }
}`,
			wantErr: "Invalid default value",
		},
		{
			name: "no outputs",
			manifest: `
operation "twist" {
  input "angle" { type = scalar }
}`,
			wantErr: "declares no outputs",
		},
		{
			name: "clashes with builtin",
			manifest: `
operation "extrude" {
  output "out_mesh" { type = mesh }
}`,
			wantErr: "already registered",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeManifests(t, map[string]string{"ops.hcl": tc.manifest})
			r := NewWithBuiltins()
			err := r.LoadManifests(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseManifest_NilFile(t *testing.T) {
	sigs, diags := ParseManifest(nil, "x.hcl")
	assert.Nil(t, sigs)
	assert.True(t, diags.HasErrors())
}
