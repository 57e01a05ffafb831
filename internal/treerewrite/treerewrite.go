// Package treerewrite implements component F: for every tree reachable
// from the enumerated revisions, a rewritten tree substituting rewritten
// blobs and recursing into gated sub-paths, memoised in a shared tree_map,
// with optional ancestor-wrapping of the result.
//
// The recursion rule -- in-scope once a configured prefix segment has been
// fully matched, filter-scope once the configured filter directory has been
// entered, drop filtered files absent from the whitelist -- is the spec
// generalisation of blink_rewriter.py's _RewriteOneTree, which threads a
// single in_layouttests_dir boolean through the same kind of depth-first
// walk and memoises into the same kind of tree_cache dict (there a plain
// dict behind a multiprocessing manager; here internal/mapping.Map).
package treerewrite

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/gitobj"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/mapping"
	"github.com/objrw/historewrite/internal/store"
)

// Rewriter rewrites trees from src into dst, substituting blobs per
// blobMap and dropping filtered files absent from whitelist.
type Rewriter struct {
	Cfg       *config.Config
	Src       store.Reader
	Dst       store.Writer
	BlobMap   *mapping.Map
	TreeMap   *mapping.Map
	Whitelist hashid.Set
}

// RewriteAll dispatches one worker per root tree, up to cfg.TreeWorkers in
// parallel; workers share TreeMap so a subtree reachable from more than one
// root is rewritten once.
func (rw *Rewriter) RewriteAll(ctx context.Context, roots []hashid.Hash) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(rw.Cfg.TreeWorkers)

	for _, root := range roots {
		root := root
		g.Go(func() error {
			_, err := rw.RewriteRoot(root)
			return err
		})
	}
	return g.Wait()
}

// RewriteRoot rewrites a single root tree and applies ancestor-wrapping, if
// configured, to the result.
func (rw *Rewriter) RewriteRoot(root hashid.Hash) (hashid.Hash, error) {
	rewritten, err := rw.rewriteTree(root, 0, false, false)
	if err != nil {
		return hashid.Hash{}, err
	}
	if len(rw.Cfg.WrapAncestors) == 0 {
		return rewritten, nil
	}
	return rw.wrap(rewritten)
}

// wrap nests inner under N synthetic directories named, innermost first, by
// reversing cfg.WrapAncestors -- e.g. WrapAncestors = ["third_party",
// "WebKit"] produces tree{"WebKit": tree{...}} then tree{"third_party": ...}.
func (rw *Rewriter) wrap(inner hashid.Hash) (hashid.Hash, error) {
	cur := inner
	for i := len(rw.Cfg.WrapAncestors) - 1; i >= 0; i-- {
		h, err := store.WriteTree(rw.Dst, []gitobj.TreeEntry{
			{Mode: gitobj.ModeDir, Name: rw.Cfg.WrapAncestors[i], Hash: cur},
		})
		if err != nil {
			return hashid.Hash{}, err
		}
		cur = h
	}
	return cur, nil
}

// rewriteTree rewrites one tree depth-first. inScope gates blob
// substitution for files and unconditional recursion for directories;
// inFilterDir gates the whitelist-based drop rule.
func (rw *Rewriter) rewriteTree(h hashid.Hash, depth int, inScope, inFilterDir bool) (hashid.Hash, error) {
	if cached, ok := rw.TreeMap.Get(h); ok {
		return cached, nil
	}

	entries, err := store.ReadTree(rw.Src, h)
	if err != nil {
		return hashid.Hash{}, err
	}

	changed := false
	out := make([]gitobj.TreeEntry, 0, len(entries))

	for _, e := range entries {
		if e.IsFile() {
			if inScope && rw.Cfg.RewritableExt(e.Ext()) {
				newHash, err := rw.BlobMap.MustGet("blob_map", e.Hash)
				if err != nil {
					return hashid.Hash{}, err
				}
				if newHash != e.Hash {
					changed = true
				}
				out = append(out, gitobj.TreeEntry{Mode: e.Mode, Name: e.Name, Hash: newHash})
				continue
			}
			if inFilterDir && rw.Cfg.FilteredExt(e.Ext()) && !rw.Whitelist.Contains(e.Hash) {
				changed = true
				continue
			}
			out = append(out, e)
			continue
		}

		matchesNext := !inScope && depth < len(rw.Cfg.ScopedPrefix) && rw.Cfg.ScopedPrefix[depth] == e.Name
		childInFilterDir := inFilterDir || e.Name == rw.Cfg.FilterDir
		if inScope || matchesNext || childInFilterDir {
			childInScope := inScope || depth+1 == len(rw.Cfg.ScopedPrefix)
			newChild, err := rw.rewriteTree(e.Hash, depth+1, childInScope, childInFilterDir)
			if err != nil {
				return hashid.Hash{}, err
			}
			if newChild != e.Hash {
				changed = true
			}
			out = append(out, gitobj.TreeEntry{Mode: e.Mode, Name: e.Name, Hash: newChild})
			continue
		}
		out = append(out, e)
	}

	result := h
	if changed {
		result, err = store.WriteTree(rw.Dst, out)
		if err != nil {
			return hashid.Hash{}, err
		}
	}

	if err := rw.TreeMap.SetOrAgree("tree_map", h, result); err != nil {
		return hashid.Hash{}, err
	}
	return result, nil
}
