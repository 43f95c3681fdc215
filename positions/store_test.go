package positions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")

	s := NewStore(path)
	s.Set(Metallic, Point{X: 50.5, Y: 30.0})
	s.Set(Semiconducting, Point{X: 80.0, Y: 30.0})
	s.Set(Waste, Point{X: 0, Y: 0})

	require.NoError(t, s.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Len())

	p, ok := loaded.Get(Metallic)
	require.True(t, ok)
	assert.InDelta(t, 50.5, p.X, 0.001)
	assert.InDelta(t, 30.0, p.Y, 0.001)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "positions.json")

	s := NewStore(path)
	s.Set(Waste, Point{})
	require.NoError(t, s.Save())

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestLabelsSorted(t *testing.T) {
	s := NewStore("")
	s.Set("zeta", Point{})
	s.Set("alpha", Point{})
	s.Set("mid", Point{})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Labels())
}

func TestDelete(t *testing.T) {
	s := NewStore("")
	s.Set(Metallic, Point{X: 1})
	s.Delete(Metallic)

	_, ok := s.Get(Metallic)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestGetMissing(t *testing.T) {
	s := NewStore("")

	_, ok := s.Get("unknown")
	assert.False(t, ok)
}
