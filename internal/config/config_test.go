package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDerivesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rewrite.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
source_dir = "/src"
target_dir = "/dst"
scoped_prefix = "third_party/WebKit"
rewrite_extensions = [".CPP", ".H"]
filter_dir = "LayoutTests"
filter_extensions = [".PNG"]
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/master", cfg.Branch)
	assert.Equal(t, []string{"third_party", "WebKit"}, cfg.ScopedPrefix)
	assert.Equal(t, []string{".cpp", ".h"}, cfg.RewriteExtensions)
	assert.Equal(t, []string{".png"}, cfg.FilterExtensions)
	assert.Equal(t, PolicyRetain, cfg.ParentPolicy)
	assert.Greater(t, cfg.BlobWorkers, 0)
	assert.Greater(t, cfg.TreeWorkers, 0)
}

func TestLoadMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rewrite.toml")
	require.NoError(t, os.WriteFile(p, []byte(`target_dir = "/dst"`), 0o644))

	_, err := Load(p)
	assert.Error(t, err)
}

func TestFormatterArgLineParsing(t *testing.T) {
	cfg := &Config{
		SourceDir:        "/src",
		TargetDir:        "/dst",
		FormatterArgLine: `-style=Google --quiet`,
	}
	require.NoError(t, cfg.Finish())
	assert.Equal(t, []string{"-style=Google", "--quiet"}, cfg.FormatterArgs)
}

func TestRewritableAndFilteredExt(t *testing.T) {
	cfg := &Config{
		SourceDir:         "/src",
		TargetDir:         "/dst",
		RewriteExtensions: []string{".cpp"},
		FilterExtensions:  []string{".png"},
	}
	require.NoError(t, cfg.Finish())
	assert.True(t, cfg.RewritableExt(".cpp"))
	assert.False(t, cfg.RewritableExt(".png"))
	assert.True(t, cfg.FilteredExt(".png"))
}
