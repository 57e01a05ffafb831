// Package config loads the run configuration for a rewrite: source/target
// locations, the scoped prefix and extension set transform-1 operates on,
// the external formatter invocation, the filter rule transform-2 applies,
// and the worker budgets of §5. It follows the TOML-based configuration
// style used by dolthub-dolt and antgroup-hugescm in this corpus
// (github.com/BurntSushi/toml's toml.DecodeFile), in place of the
// teacher's flag-only configuration (git-backup.go's flag.FlagSet).
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"
)

// ParentPolicy controls what the commit rewriter (component G, step 3) does
// when a commit's first parent was not reached by the reversed walk -- the
// spec.md §9 / §4.G open question. The reference Python implementation
// retains the original hash and logs a warning; that is PolicyRetain, and
// is the default here.
type ParentPolicy string

const (
	// PolicyRetain keeps the original (unrewritten) parent hash and records
	// a warning. This matches the reference implementation's documented
	// behaviour (spec.md §4.G step 3, §9).
	PolicyRetain ParentPolicy = "retain"
	// PolicyFail aborts the rewrite with a MissingMappingError.
	PolicyFail ParentPolicy = "fail"
	// PolicyNull drops the parent entirely, producing a root commit.
	PolicyNull ParentPolicy = "null"
)

// Config is the fully-resolved, validated run configuration.
type Config struct {
	SourceDir string `toml:"source_dir"`
	TargetDir string `toml:"target_dir"`
	Branch    string `toml:"branch"`

	ScopedPrefix      []string `toml:"-"` // derived from ScopedPrefixRaw
	ScopedPrefixRaw   string   `toml:"scoped_prefix"`
	RewriteExtensions []string `toml:"rewrite_extensions"`

	FormatterPath    string   `toml:"formatter_path"`
	FormatterArgs    []string `toml:"formatter_args"`
	FormatterArgLine string   `toml:"formatter_args_line"`

	FilterDir        string   `toml:"filter_dir"`
	FilterExtensions []string `toml:"filter_extensions"`

	WrapAncestors []string `toml:"wrap_ancestors"`

	BlobWorkers int `toml:"blob_workers"`
	TreeWorkers int `toml:"tree_workers"`

	ParentPolicy ParentPolicy `toml:"parent_policy"`
}

// Load decodes and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finish normalises and validates fields after decode, deriving worker
// counts and the parsed prefix path. Exported for tests that build a
// Config literal directly instead of through Load.
func (c *Config) finish() error {
	if c.SourceDir == "" {
		return fmt.Errorf("config: source_dir is required")
	}
	if c.TargetDir == "" {
		return fmt.Errorf("config: target_dir is required")
	}
	if c.Branch == "" {
		c.Branch = "refs/heads/master"
	}
	if c.ParentPolicy == "" {
		c.ParentPolicy = PolicyRetain
	}

	c.ScopedPrefix = nil
	if c.ScopedPrefixRaw != "" {
		c.ScopedPrefix = strings.Split(strings.Trim(c.ScopedPrefixRaw, "/"), "/")
	}

	for i, ext := range c.RewriteExtensions {
		c.RewriteExtensions[i] = strings.ToLower(ext)
	}
	for i, ext := range c.FilterExtensions {
		c.FilterExtensions[i] = strings.ToLower(ext)
	}

	if len(c.FormatterArgs) == 0 && c.FormatterArgLine != "" {
		args, err := shellquote.Split(c.FormatterArgLine)
		if err != nil {
			return fmt.Errorf("config: formatter_args_line: %w", err)
		}
		c.FormatterArgs = args
	}

	if c.BlobWorkers <= 0 {
		c.BlobWorkers = 3 * runtime.NumCPU()
	}
	if c.TreeWorkers <= 0 {
		c.TreeWorkers = runtime.NumCPU()
	}

	return nil
}

// Finish is the exported form of finish, for constructing a Config by hand
// (e.g. in tests) without going through a TOML file.
func (c *Config) Finish() error { return c.finish() }

// RewritableExt reports whether ext (already lowercased, with leading dot)
// is in the rewrite set.
func (c *Config) RewritableExt(ext string) bool {
	for _, e := range c.RewriteExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// FilteredExt reports whether ext is in the filter-drop set.
func (c *Config) FilteredExt(ext string) bool {
	for _, e := range c.FilterExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
