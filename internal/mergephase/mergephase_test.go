package mergephase

import (
	"testing"

	"github.com/objrw/historewrite/internal/gitobj"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.LooseObjectStore {
	t.Helper()
	s, err := store.NewLooseObjectStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCleanupGitignoreRemovesExactLine(t *testing.T) {
	out, err := CleanupGitignore([]byte("build/\n/third_party/WebKit\nout/\n"))
	require.NoError(t, err)
	assert.Equal(t, "build/\nout/\n", string(out))
}

func TestCleanupGitignoreMissingLineErrors(t *testing.T) {
	_, err := CleanupGitignore([]byte("build/\nout/\n"))
	assert.Error(t, err)
}

func TestCleanupDEPSRemovesWebkitVarAndEntry(t *testing.T) {
	deps := "vars = {\n" +
		"  'webkit_rev': 'deadbeef',\n" +
		"  'other_rev': 'cafef00d',\n" +
		"}\n" +
		"deps = {\n" +
		"  'src/third_party/WebKit': 'https://example.invalid/blink.git@deadbeef',\n" +
		"  'src/other': 'https://example.invalid/other.git@cafef00d',\n" +
		"}\n"
	out, err := CleanupDEPS([]byte(deps))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "webkit_rev")
	assert.NotContains(t, string(out), "src/third_party/WebKit")
	assert.Contains(t, string(out), "other_rev")
	assert.Contains(t, string(out), "src/other")
}

func TestCleanupDEPSUnbalancedInputErrors(t *testing.T) {
	_, err := CleanupDEPS([]byte("vars = {\n  'webkit_rev': 'x',\n"))
	assert.Error(t, err)
}

func TestTreeLookupAndReplaceInTree(t *testing.T) {
	var h1, h2 hashid.Hash
	h1[0] = 1
	h2[0] = 2
	entries := []gitobj.TreeEntry{{Mode: gitobj.ModeFile, Name: "DEPS", Hash: h1}}

	got, ok := TreeLookup(entries, "DEPS")
	require.True(t, ok)
	assert.Equal(t, h1, got)

	replaced := ReplaceInTree(entries, "DEPS", h2)
	assert.Equal(t, h2, replaced[0].Hash)
	assert.Equal(t, gitobj.ModeFile, replaced[0].Mode, "mode is preserved across replacement")
}

// End-to-end: graft a rewritten, wrapped Blink history into a receiving
// repository's third_party/, patching .gitignore and DEPS along the way.
func TestMergeGraftsWebKitAndPatchesFiles(t *testing.T) {
	s := newStore(t)

	// receiving ("chromium") side
	cldHash, err := store.WriteBlob(s, []byte("cld contents"))
	require.NoError(t, err)
	cldTree, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeFile, Name: "cld.cc", Hash: cldHash}})
	require.NoError(t, err)
	thirdPartyTree, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeDir, Name: "cld", Hash: cldTree}})
	require.NoError(t, err)

	gitignoreHash, err := store.WriteBlob(s, []byte("build/\n/third_party/WebKit\nout/\n"))
	require.NoError(t, err)
	depsHash, err := store.WriteBlob(s, []byte(
		"vars = {\n  'webkit_rev': 'deadbeef',\n}\n"+
			"deps = {\n  'src/third_party/WebKit': 'https://example.invalid/blink.git@deadbeef',\n  'src/other': 'x',\n}\n"))
	require.NoError(t, err)

	crRoot, err := store.WriteTree(s, []gitobj.TreeEntry{
		{Mode: gitobj.ModeDir, Name: "third_party", Hash: thirdPartyTree},
		{Mode: gitobj.ModeFile, Name: ".gitignore", Hash: gitignoreHash},
		{Mode: gitobj.ModeFile, Name: "DEPS", Hash: depsHash},
	})
	require.NoError(t, err)

	crCommit := &gitobj.Commit{
		Tree:      crRoot,
		Author:    "A <a@example.com> 1000 +0000",
		Committer: "A <a@example.com> 1000 +0000",
		Message:   "a chromium commit\n\nCr-Commit-Position: refs/heads/master@{#42}\n",
	}
	crHash, err := store.WriteCommit(s, crCommit)
	require.NoError(t, err)

	// rewritten ("blink") side, already ancestor-wrapped under third_party/WebKit
	blinkFileHash, err := store.WriteBlob(s, []byte("int x;"))
	require.NoError(t, err)
	blinkDirTree, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeFile, Name: "a.cpp", Hash: blinkFileHash}})
	require.NoError(t, err)
	webkitWrap, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeDir, Name: "WebKit", Hash: blinkDirTree}})
	require.NoError(t, err)
	thirdPartyWrap, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeDir, Name: "third_party", Hash: webkitWrap}})
	require.NoError(t, err)

	blCommit := &gitobj.Commit{
		Tree:      thirdPartyWrap,
		Author:    "B <b@example.com> 900 +0000",
		Committer: "B <b@example.com> 900 +0000",
		Message:   "blink rewritten head\n",
	}
	blHash, err := store.WriteCommit(s, blCommit)
	require.NoError(t, err)

	m := NewMerger(s, s, s, Identity{})
	mergeHash, err := m.Merge(crHash, blHash)
	require.NoError(t, err)

	merged, err := store.ReadCommit(s, mergeHash)
	require.NoError(t, err)

	require.Len(t, merged.Parents, 2, "merge commit carries both the receiving tip and the rewritten head as parents")
	assert.Equal(t, crHash, merged.Parents[0])
	assert.Equal(t, blHash, merged.Parents[1])
	assert.Contains(t, merged.Message, crHash.String())
	assert.Contains(t, merged.Message, blHash.String())
	assert.Contains(t, merged.Message, "Cr-Commit-Position: refs/heads/master@{#43}")

	mergedRoot, err := store.ReadTree(s, merged.Tree)
	require.NoError(t, err)

	newGitignoreHash, ok := TreeLookup(mergedRoot, ".gitignore")
	require.True(t, ok)
	newGitignore, err := store.ReadBlob(s, newGitignoreHash)
	require.NoError(t, err)
	assert.NotContains(t, string(newGitignore), GitignoreLine)

	newDepsHash, ok := TreeLookup(mergedRoot, "DEPS")
	require.True(t, ok)
	newDeps, err := store.ReadBlob(s, newDepsHash)
	require.NoError(t, err)
	assert.NotContains(t, string(newDeps), "webkit_rev")
	assert.NotContains(t, string(newDeps), "src/third_party/WebKit")

	newThirdPartyHash, ok := TreeLookup(mergedRoot, "third_party")
	require.True(t, ok)
	newThirdParty, err := store.ReadTree(s, newThirdPartyHash)
	require.NoError(t, err)

	_, hasCld := TreeLookup(newThirdParty, "cld")
	assert.True(t, hasCld, "pre-existing third_party entries survive the graft")
	grafted, hasWebKit := TreeLookup(newThirdParty, "WebKit")
	require.True(t, hasWebKit)
	assert.Equal(t, blinkDirTree, grafted, "grafted WebKit entry is exactly the rewritten history's inner tree")
}

func TestMergeRejectsAlreadyMergedWebKit(t *testing.T) {
	s := newStore(t)

	webkitHash, err := store.WriteTree(s, nil)
	require.NoError(t, err)
	thirdPartyTree, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeDir, Name: "WebKit", Hash: webkitHash}})
	require.NoError(t, err)
	gitignoreHash, err := store.WriteBlob(s, []byte("/third_party/WebKit\n"))
	require.NoError(t, err)
	depsHash, err := store.WriteBlob(s, []byte("deps = {}\n"))
	require.NoError(t, err)
	crRoot, err := store.WriteTree(s, []gitobj.TreeEntry{
		{Mode: gitobj.ModeDir, Name: "third_party", Hash: thirdPartyTree},
		{Mode: gitobj.ModeFile, Name: ".gitignore", Hash: gitignoreHash},
		{Mode: gitobj.ModeFile, Name: "DEPS", Hash: depsHash},
	})
	require.NoError(t, err)
	crCommit := &gitobj.Commit{Tree: crRoot, Author: "a", Committer: "A <a@example.com> 1000 +0000", Message: "m\n"}
	crHash, err := store.WriteCommit(s, crCommit)
	require.NoError(t, err)

	blRoot, err := store.WriteTree(s, []gitobj.TreeEntry{{Mode: gitobj.ModeDir, Name: "third_party", Hash: webkitHash}})
	require.NoError(t, err)
	blCommit := &gitobj.Commit{Tree: blRoot, Author: "b", Committer: "b", Message: "m\n"}
	blHash, err := store.WriteCommit(s, blCommit)
	require.NoError(t, err)

	m := NewMerger(s, s, s, Identity{})
	_, err = m.Merge(crHash, blHash)
	assert.Error(t, err)
}
