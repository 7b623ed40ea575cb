package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "", expected: ""},
		{in: "/", expected: ""},
		{in: "A", expected: "A"},
		{in: "/A//B/", expected: "A/B"},
		{in: `A\B\C`, expected: "A/B/C"},
		{in: "./A/./B", expected: "A/B"},
		{in: "a/../b/c", expected: "b/c"},
		{in: "A/B/..", expected: "A"},
		{in: "../../A", expected: "A"},
		{in: "..", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.in))
		})
	}
}

func TestParentAndBase(t *testing.T) {
	assert.Equal(t, "", Parent(""))
	assert.Equal(t, "", Parent("A"))
	assert.Equal(t, "A", Parent("A/B"))
	assert.Equal(t, "A/B", Parent("A/B/C"))
	assert.Equal(t, "C", Base("A/B/C"))
	assert.Equal(t, "", Base(""))
}

func TestIterateDirectories(t *testing.T) {
	assert.Equal(t, []string{"A/B/C", "A/B", "A"}, IterateDirectories("A/B/C/D", false))
	assert.Equal(t, []string{"A", "A/B", "A/B/C"}, IterateDirectories("A/B/C/D", true))
	assert.Empty(t, IterateDirectories("A", false))
	assert.Empty(t, IterateDirectories("", true))
}

func TestIsChild(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		parent   string
		child    string
		expected bool
	}{
		{name: "same path", parent: root, child: root, expected: false},
		{name: "both empty", parent: "", child: "", expected: false},
		{name: "empty parent is root", parent: "", child: root, expected: true},
		{name: "empty child", parent: root, child: "", expected: false},
		{name: "direct child", parent: root, child: filepath.Join(root, "a.go"), expected: true},
		{name: "nested child", parent: root, child: filepath.Join(root, "x", "y", "a.go"), expected: true},
		{name: "sibling", parent: filepath.Join(root, "x"), child: filepath.Join(root, "xy", "a.go"), expected: false},
		{name: "parent of parent", parent: filepath.Join(root, "x"), child: root, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsChild(tt.parent, tt.child))
		})
	}
}

func TestResolver_Relative(t *testing.T) {
	root := t.TempDir()
	assets := filepath.Join(root, "Assets")
	packages := filepath.Join(root, "Packages")
	r := NewResolver(Root{Name: "Assets", Dir: assets}, Root{Name: "Packages", Dir: packages})

	got, err := r.Relative(filepath.Join(assets, "Tests", "physics_test.go"))
	require.NoError(t, err)
	assert.Equal(t, "Assets/Tests/physics_test.go", got)

	got, err = r.Relative(filepath.Join(packages, "core", "run.go"))
	require.NoError(t, err)
	assert.Equal(t, "Packages/core/run.go", got)

	_, err = r.Relative(filepath.Join(root, "elsewhere", "x.go"))
	var invalid *InvalidPathError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Error(), "elsewhere")
}
