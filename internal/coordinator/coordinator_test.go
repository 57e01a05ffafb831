package coordinator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/logctx"
	"github.com/objrw/historewrite/internal/store"
)

// initSourceRepo builds a one-commit bare-ish repository containing
// third_party/WebKit/a.cpp and README, matching end-to-end scenario 1/2.
func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t")
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-q")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "third_party", "WebKit"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "third_party", "WebKit", "a.cpp"), []byte("int x;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestRunUppercasesScopedBlobsEndToEnd(t *testing.T) {
	srcDir := initSourceRepo(t)
	src, err := store.NewCatFileBatchStore(srcDir)
	require.NoError(t, err)
	defer src.Close()

	dst, err := store.NewLooseObjectStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		SourceDir:         srcDir,
		TargetDir:         t.TempDir(),
		Branch:            "HEAD",
		ScopedPrefixRaw:   "third_party/WebKit",
		RewriteExtensions: []string{".cpp"},
		FormatterPath:     "tr",
		FormatterArgs:     []string{"a-z", "A-Z"},
	}
	require.NoError(t, cfg.Finish())

	log := logctx.New(0)
	res, err := Run(context.Background(), log, cfg, src, dst, Options{})
	require.NoError(t, err)
	assert.False(t, res.Head.IsZero())

	newCommit, err := store.ReadCommit(dst, res.Head)
	require.NoError(t, err)
	entries, err := store.ReadTree(dst, newCommit.Tree)
	require.NoError(t, err)

	var sawThirdParty bool
	for _, e := range entries {
		if e.Name == "third_party" {
			sawThirdParty = true
		}
	}
	assert.True(t, sawThirdParty)
}
