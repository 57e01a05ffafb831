// Command historewrite drives a history rewrite end to end: load
// configuration, open the source and target stores, run the four-phase
// coordinator, and report the rewritten branch head. It is the external
// collaborator named but left out of the core in spec §6 -- the clone
// step, alternates wiring and merge-commit synthesis stay out of this
// binary's job.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/coordinator"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/logctx"
	"github.com/objrw/historewrite/internal/mergephase"
	"github.com/objrw/historewrite/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "historewrite",
		Short:         "rewrite a content-addressed git history under a scoped prefix",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(newRewriteCmd())
	cmd.AddCommand(newMergeCmd())
	return cmd
}

func newRewriteCmd() *cobra.Command {
	var (
		configPath    string
		revList       string
		noClobber     bool
		keepBlobCache bool
		verbosity     logctx.CountFlag
		quiet         bool
		useGit2Go     bool
	)

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "run the four-phase rewrite against a configured source repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if revList != "" {
				cfg.Branch = revList
			}

			verbosityLevel := int(verbosity)
			if quiet {
				verbosityLevel = -1
			}
			log := logctx.New(verbosityLevel)

			var src store.Reader
			if useGit2Go {
				src, err = store.NewGit2GoSourceStore(cfg.SourceDir)
			} else {
				var batch *store.CatFileBatchStore
				batch, err = store.NewCatFileBatchStore(cfg.SourceDir)
				if batch != nil {
					defer batch.Close()
				}
				src = batch
			}
			if err != nil {
				return err
			}

			dst, err := store.NewLooseObjectStore(cfg.TargetDir)
			if err != nil {
				return err
			}

			opts := coordinator.Options{
				NoClobber:     noClobber,
				KeepBlobCache: keepBlobCache,
				CacheDir:      cfg.TargetDir,
			}

			res, err := coordinator.Run(context.Background(), log, cfg, src, dst, opts)
			if err != nil {
				return err
			}

			fmt.Println(res.Head)
			if len(res.Warnings) > 0 {
				fmt.Fprintf(os.Stderr, "%d parent-mapping warning(s); see log\n", len(res.Warnings))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "rewrite.toml", "path to the TOML run configuration")
	cmd.Flags().StringVarP(&revList, "rev-list", "r", "", "branch to rewrite (overrides the config file)")
	cmd.Flags().BoolVarP(&noClobber, "no-clobber", "n", false, "keep existing tree-map cache from a previous run")
	cmd.Flags().BoolVarP(&keepBlobCache, "keep-blob-cache", "k", false, "keep existing blobs.cache from a previous run")
	cmd.Flags().VarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	cmd.Flags().Lookup("verbose").NoOptDefVal = "true"
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	cmd.Flags().BoolVar(&useGit2Go, "git2go", false, "read the source repository in-process via libgit2 instead of `git cat-file --batch`")

	return cmd
}

// newMergeCmd wires internal/mergephase into a standalone subcommand, the
// separate tool spec.md §6 summarises: it never runs as part of `rewrite`
// and takes its own receiving/rewritten object directories rather than
// sharing the rewrite's config file, since it consumes the rewrite's output
// rather than producing it.
func newMergeCmd() *cobra.Command {
	var (
		receivingDir  string
		rewrittenDir  string
		outDir        string
		receivingTip  string
		rewrittenHead string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "graft a rewritten history's wrapped root into a receiving repository's third_party/",
		RunE: func(cmd *cobra.Command, args []string) error {
			tip, err := hashid.Parse(receivingTip)
			if err != nil {
				return fmt.Errorf("--receiving-tip: %w", err)
			}
			head, err := hashid.Parse(rewrittenHead)
			if err != nil {
				return fmt.Errorf("--rewritten-head: %w", err)
			}

			receiving, err := store.NewCatFileBatchStore(receivingDir)
			if err != nil {
				return err
			}
			defer receiving.Close()

			rewritten, err := store.NewLooseObjectStore(rewrittenDir)
			if err != nil {
				return err
			}

			dst, err := store.NewLooseObjectStore(outDir)
			if err != nil {
				return err
			}

			m := mergephase.NewMerger(receiving, rewritten, dst, mergephase.Identity{})
			mergeHash, err := m.Merge(tip, head)
			if err != nil {
				return err
			}

			fmt.Println(mergeHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&receivingDir, "receiving-dir", "", "bare repository receiving the merge (e.g. a chromium.git checkout)")
	cmd.Flags().StringVar(&rewrittenDir, "rewritten-dir", "", "loose-object directory produced by `rewrite`")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "loose-object directory to write the merge commit and its patched blobs/trees into")
	cmd.Flags().StringVar(&receivingTip, "receiving-tip", "", "hash of the receiving repository's current tip commit")
	cmd.Flags().StringVar(&rewrittenHead, "rewritten-head", "", "hash of the rewritten history's head commit, as returned by `rewrite`")
	cmd.MarkFlagRequired("receiving-dir")
	cmd.MarkFlagRequired("rewritten-dir")
	cmd.MarkFlagRequired("out-dir")
	cmd.MarkFlagRequired("receiving-tip")
	cmd.MarkFlagRequired("rewritten-head")

	return cmd
}
