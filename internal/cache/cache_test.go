package cache

import (
	"path/filepath"
	"testing"

	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobSetRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.cache")
	h1 := hashid.MustParse("00000000000000000000000000000000000001aa")
	h2 := hashid.MustParse("00000000000000000000000000000000000002bb")

	require.NoError(t, SaveBlobSet(path, hashid.NewSet(h1, h2)))

	got, err := LoadBlobSet(path)
	require.NoError(t, err)
	assert.True(t, got.Contains(h1))
	assert.True(t, got.Contains(h2))
}

func TestLoadBlobSetMissingFileIsEmpty(t *testing.T) {
	got, err := LoadBlobSet(filepath.Join(t.TempDir(), "nope.cache"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMapRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")
	m := mapping.New()
	from := hashid.MustParse("00000000000000000000000000000000000001aa")
	to := hashid.MustParse("00000000000000000000000000000000000002bb")
	require.NoError(t, m.SetOrAgree("tree_map", from, to))

	require.NoError(t, SaveMap(path, m))

	loaded := mapping.New()
	require.NoError(t, LoadMap(path, loaded))
	got, ok := loaded.Get(from)
	require.True(t, ok)
	assert.Equal(t, to, got)
}
