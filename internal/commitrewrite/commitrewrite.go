// Package commitrewrite implements component G: walking revisions in
// ancestor-first order, rebuilding each commit with its rewritten tree and
// rewritten first parent, and writing the result to the target store.
//
// Runs serially, as the teacher's own note on git-backup.go's commit
// handling and blink_rewriter.py's _RewriteCommits both do: commit rewrite
// is cheap next to the tree and blob phases and is far easier to reason
// about linearly than in parallel, since each commit's parent must already
// be in commit_map.
package commitrewrite

import (
	"fmt"

	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/mapping"
	"github.com/objrw/historewrite/internal/store"
)

// Warning records a spec §4.G step 3 / §9 soft failure: a commit's parent
// was not reached by the reversed walk (e.g. the walk started at a non-root
// commit) and the configured ParentPolicy resolved the gap instead of
// failing outright.
type Warning struct {
	Commit hashid.Hash
	Parent hashid.Hash
	Policy config.ParentPolicy
}

func (w Warning) String() string {
	return fmt.Sprintf("commit %s: parent %s not in commit_map, policy=%s", w.Commit, w.Parent, w.Policy)
}

// Result is the outcome of rewriting one branch's revision list.
type Result struct {
	Head     hashid.Hash // rewritten hash of the newest (last) revision
	Warnings []Warning
}

// RewriteAll rewrites commits in ancestor-first order (oldest first, as
// returned by internal/revlist.List), seeding commitMap as it goes.
func RewriteAll(cfg *config.Config, src store.Reader, dst store.Writer, treeMap, commitMap *mapping.Map, commits []hashid.Hash) (*Result, error) {
	if len(commits) == 0 {
		return nil, errs.NewNotFoundError("commits to rewrite")
	}

	var res Result
	for _, h := range commits {
		newHash, warn, err := rewriteOne(cfg, src, dst, treeMap, commitMap, h)
		if err != nil {
			return nil, err
		}
		if warn != nil {
			res.Warnings = append(res.Warnings, *warn)
		}
		if err := commitMap.SetOrAgree("commit_map", h, newHash); err != nil {
			return nil, err
		}
	}

	res.Head, _ = commitMap.Get(commits[len(commits)-1])
	return &res, nil
}

func rewriteOne(cfg *config.Config, src store.Reader, dst store.Writer, treeMap, commitMap *mapping.Map, h hashid.Hash) (hashid.Hash, *Warning, error) {
	c, err := store.ReadCommit(src, h)
	if err != nil {
		return hashid.Hash{}, nil, err
	}

	newTree, err := treeMap.MustGet("tree_map", c.Tree)
	if err != nil {
		return hashid.Hash{}, nil, err
	}
	c.Tree = newTree

	var warn *Warning
	if parent, ok := c.Parent(); ok {
		if newParent, ok := commitMap.Get(parent); ok {
			c.SetParent(newParent)
		} else {
			switch cfg.ParentPolicy {
			case config.PolicyFail:
				return hashid.Hash{}, nil, errs.NewMissingMappingError("commit_map", parent.String())
			case config.PolicyNull:
				c.ClearParent()
				warn = &Warning{Commit: h, Parent: parent, Policy: cfg.ParentPolicy}
			default: // config.PolicyRetain
				warn = &Warning{Commit: h, Parent: parent, Policy: cfg.ParentPolicy}
			}
		}
	}

	newHash, err := store.WriteCommit(dst, c)
	if err != nil {
		return hashid.Hash{}, nil, err
	}
	return newHash, warn, nil
}
