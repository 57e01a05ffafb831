// Package coordinator orchestrates the four-phase rewrite: revision
// listing, blob selection, parallel blob transform, parallel tree rewrite,
// and serial commit rewrite, enforcing the ordering barriers of spec §5
// (blobs before trees, trees before commits) and acting as the single
// recover boundary the teacher's errcatch()/raise() pair used to be --
// every phase returns a plain error instead of panicking, and Run is the
// only place that needs to look at all of them together.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/objrw/historewrite/internal/blobselect"
	"github.com/objrw/historewrite/internal/cache"
	"github.com/objrw/historewrite/internal/commitrewrite"
	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/formatter"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/logctx"
	"github.com/objrw/historewrite/internal/mapping"
	"github.com/objrw/historewrite/internal/revlist"
	"github.com/objrw/historewrite/internal/store"
	"github.com/objrw/historewrite/internal/treerewrite"
)

// Options controls cache behaviour, mirroring the external driver's
// --no-clobber / --keep-blob-cache flags (spec §6) without owning them.
type Options struct {
	NoClobber     bool // reuse tree_map / commit_map cache files if present
	KeepBlobCache bool // reuse blobs.cache if present
	CacheDir      string
}

// Result is the outcome of a full rewrite run.
type Result struct {
	Head     hashid.Hash
	Warnings []commitrewrite.Warning
}

// Run executes all four phases against cfg, reading from src and writing
// into dst.
func Run(ctx context.Context, log *logrus.Logger, cfg *config.Config, src store.Reader, dst store.Writer, opts Options) (*Result, error) {
	phaseLog := logctx.Phase(log, "rev-list")
	commits, trees, err := revlist.List(cfg.SourceDir, cfg.Branch)
	if err != nil {
		return nil, err
	}
	phaseLog.WithField("count", len(commits)).Info("enumerated revisions")

	blobSet, err := selectBlobs(log, cfg, src, opts, trees[len(trees)-1])
	if err != nil {
		return nil, err
	}

	whitelist := hashid.NewSet()
	if cfg.FilterDir != "" {
		whitelist, err = blobselect.Whitelist(src, cfg, trees[len(trees)-1])
		if err != nil {
			return nil, err
		}
	}

	blobMap := mapping.New()
	logctx.Phase(log, "transform-blobs").WithField("count", len(blobSet)).Info("rewriting blobs")
	if err := formatter.Run(ctx, cfg, src, dst, blobMap, blobSet); err != nil {
		return nil, fmt.Errorf("phase 2 (blobs): %w", err)
	}

	treeMap := mapping.New()
	if opts.NoClobber && opts.CacheDir != "" {
		if err := cache.LoadMap(cacheFile(opts.CacheDir, "cache"), treeMap); err != nil {
			return nil, err
		}
	}
	rw := &treerewrite.Rewriter{Cfg: cfg, Src: src, Dst: dst, BlobMap: blobMap, TreeMap: treeMap, Whitelist: whitelist}
	logctx.Phase(log, "rewrite-trees").WithField("count", len(trees)).Info("rewriting trees")
	if err := rw.RewriteAll(ctx, trees); err != nil {
		return nil, fmt.Errorf("phase 3 (trees): %w", err)
	}
	if opts.CacheDir != "" {
		if err := cache.SaveMap(cacheFile(opts.CacheDir, "cache"), treeMap); err != nil {
			return nil, err
		}
	}

	commitMap := mapping.New()
	logctx.Phase(log, "rewrite-commits").WithField("count", len(commits)).Info("rewriting commits")
	res, err := commitrewrite.RewriteAll(cfg, src, dst, treeMap, commitMap, commits)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (commits): %w", err)
	}
	for _, w := range res.Warnings {
		logctx.Phase(log, "rewrite-commits").Warn(w.String())
	}

	return &Result{Head: res.Head, Warnings: res.Warnings}, nil
}

func selectBlobs(log *logrus.Logger, cfg *config.Config, src store.Reader, opts Options, tip hashid.Hash) (hashid.Set, error) {
	phaseLog := logctx.Phase(log, "select-blobs")
	if opts.KeepBlobCache && opts.CacheDir != "" {
		set, err := cache.LoadBlobSet(cacheFile(opts.CacheDir, "blobs.cache"))
		if err != nil {
			return nil, err
		}
		if len(set) > 0 {
			phaseLog.WithField("count", len(set)).Info("reused cached blob selection")
			return set, nil
		}
	}

	set, err := blobselect.Blobs(src, cfg, tip)
	if err != nil {
		return nil, err
	}
	phaseLog.WithField("count", len(set)).Info("selected blobs for transform")

	if opts.CacheDir != "" {
		if err := cache.SaveBlobSet(cacheFile(opts.CacheDir, "blobs.cache"), set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func cacheFile(dir, name string) string {
	return filepath.Join(dir, name)
}
