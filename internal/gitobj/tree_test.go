package gitobj

import (
	"testing"

	"github.com/objrw/historewrite/internal/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func h(suffix byte) hashid.Hash {
	var raw [hashid.Size]byte
	raw[hashid.Size-1] = suffix
	return hashid.Hash(raw)
}

func TestSerializeTreeEmpty(t *testing.T) {
	assert.Equal(t, []byte{}, SerializeTree(nil))
}

func TestSerializeParseRoundtrip(t *testing.T) {
	entries := []TreeEntry{
		{Mode: ModeFile, Name: "README", Hash: h(1)},
		{Mode: ModeDir, Name: "third_party", Hash: h(2)},
	}
	payload := SerializeTree(entries)
	got, err := ParseTree(payload)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// README sorts before "third_party/" lexically regardless of dir rule here,
	// since their first letters already differ.
	assert.Equal(t, "README", got[0].Name)
	assert.Equal(t, "third_party", got[1].Name)
}

// A file and a directory whose names share a prefix must sort with the
// directory last, because git compares directory names as if suffixed
// with "/".
func TestDirSortsAfterSamePrefixFile(t *testing.T) {
	entries := []TreeEntry{
		{Mode: ModeDir, Name: "foo", Hash: h(1)},
		{Mode: ModeFile, Name: "foo.txt", Hash: h(2)},
	}
	payload := SerializeTree(entries)
	got, err := ParseTree(payload)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "foo.txt", got[0].Name)
	assert.Equal(t, "foo", got[1].Name)
}

func TestTreeEntryExt(t *testing.T) {
	e := TreeEntry{Mode: ModeFile, Name: "a.CPP"}
	assert.Equal(t, ".cpp", e.Ext())

	e = TreeEntry{Mode: ModeFile, Name: "Makefile"}
	assert.Equal(t, "", e.Ext())
}

func TestParseTreeTruncated(t *testing.T) {
	_, err := ParseTree([]byte("100644 a.txt\x00"))
	assert.Error(t, err)
}
