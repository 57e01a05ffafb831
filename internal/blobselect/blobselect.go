// Package blobselect implements component D: a single walk of the tip
// revision's root tree that gathers the set of blob hashes the formatter
// will be applied to (transform-1), and a parallel walk that builds the
// whitelist of binary blobs transform-2's filter must retain.
//
// Both walks are grounded in blink_rewriter.py's _BuildPngWhitelist: a
// depth-first recursion carrying along whether the current subtree is
// "in scope" (there, in_layouttests_dir; here, generalised to any
// configured scoped prefix or filter directory), memoising visited tree
// hashes so a subtree shared by multiple paths is only read once.
package blobselect

import (
	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/store"
)

// Blobs walks tipTree (the root tree of the newest revision) and returns
// the deduplicated set of blob hashes under cfg.ScopedPrefix whose
// lowercased extension is in cfg.RewriteExtensions.
func Blobs(r store.Reader, cfg *config.Config, tipTree hashid.Hash) (hashid.Set, error) {
	w := &blobWalker{r: r, cfg: cfg, out: hashid.NewSet(), seen: make(map[hashid.Hash]bool)}
	if err := w.walk(tipTree, 0, false); err != nil {
		return nil, err
	}
	return w.out, nil
}

type blobWalker struct {
	r    store.Reader
	cfg  *config.Config
	out  hashid.Set
	seen map[hashid.Hash]bool
}

func (w *blobWalker) walk(tree hashid.Hash, depth int, inScope bool) error {
	if w.seen[tree] {
		return nil
	}
	w.seen[tree] = true

	entries, err := store.ReadTree(w.r, tree)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsFile() {
			if inScope && w.cfg.RewritableExt(e.Ext()) {
				w.out.Add(e.Hash)
			}
			continue
		}
		matchesNext := !inScope && depth < len(w.cfg.ScopedPrefix) && w.cfg.ScopedPrefix[depth] == e.Name
		if inScope || matchesNext {
			childInScope := inScope || depth+1 == len(w.cfg.ScopedPrefix)
			if err := w.walk(e.Hash, depth+1, childInScope); err != nil {
				return err
			}
		}
	}
	return nil
}

// Whitelist walks tipTree and collects the hashes of files matching
// cfg.FilterExtensions found under cfg.FilterDir, so that transform-2's
// filter can retain only blobs already known at that tip instead of
// dropping every matching file unconditionally.
func Whitelist(r store.Reader, cfg *config.Config, tipTree hashid.Hash) (hashid.Set, error) {
	w := &whitelistWalker{r: r, cfg: cfg, out: hashid.NewSet(), seen: make(map[hashid.Hash]bool)}
	if err := w.walk(tipTree, false); err != nil {
		return nil, err
	}
	return w.out, nil
}

type whitelistWalker struct {
	r    store.Reader
	cfg  *config.Config
	out  hashid.Set
	seen map[hashid.Hash]bool
}

func (w *whitelistWalker) walk(tree hashid.Hash, inFilterDir bool) error {
	if w.seen[tree] {
		return nil
	}
	w.seen[tree] = true

	entries, err := store.ReadTree(w.r, tree)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsFile() {
			if inFilterDir && w.cfg.FilteredExt(e.Ext()) {
				w.out.Add(e.Hash)
			}
			continue
		}
		if inFilterDir || e.Name == w.cfg.FilterDir {
			if err := w.walk(e.Hash, true); err != nil {
				return err
			}
		}
	}
	return nil
}
