package store

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/objrw/historewrite/internal/gitobj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gitRepoWithBlob creates a bare-ish repository at t.TempDir() containing a
// single blob, and returns its directory and hash.
func gitRepoWithBlob(t *testing.T, content string) (dir string, hash string) {
	t.Helper()
	dir = t.TempDir()
	run := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
		return string(out)
	}
	run("init", "-q")
	hashOut := exec.Command("git", "hash-object", "-w", "--stdin")
	hashOut.Dir = dir
	hashOut.Stdin = strings.NewReader(content)
	out, err := hashOut.Output()
	require.NoError(t, err)
	hash = strings.TrimSpace(string(out))
	return dir, hash
}

func TestCatFileBatchStoreReadsBlob(t *testing.T) {
	dir, hash := gitRepoWithBlob(t, "int x;")

	s, err := NewCatFileBatchStore(dir)
	require.NoError(t, err)
	defer s.Close()

	kind, payload, err := s.Read(mustHash(hash))
	require.NoError(t, err)
	assert.Equal(t, gitobj.KindBlob, kind)
	assert.Equal(t, []byte("int x;"), payload)
}

func TestCatFileBatchStoreMissingObjectIsError(t *testing.T) {
	dir, _ := gitRepoWithBlob(t, "int x;")

	s, err := NewCatFileBatchStore(dir)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Read(mustHash("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"))
	assert.Error(t, err)
}
