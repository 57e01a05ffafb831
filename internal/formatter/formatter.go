// Package formatter implements component E: applying the configured
// external formatter to every selected blob in parallel, and recording the
// old_blob_hash -> new_blob_hash mapping.
//
// Subprocess plumbing follows the teacher's _git() (git.go): stdin is the
// blob payload, stdout is collected whole, stderr is captured and any
// non-empty stderr or non-zero exit is a hard FormatterError -- the rewrite
// must never silently carry on with a misbehaving formatter. Fan-out uses
// golang.org/x/sync/errgroup's SetLimit the way the distributed transform
// pools in the rest of this corpus cap worker concurrency, rather than a
// hand-rolled semaphore+WaitGroup.
package formatter

import (
	"bytes"
	"context"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/objrw/historewrite/internal/config"
	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/mapping"
	"github.com/objrw/historewrite/internal/store"
)

// Run applies cfg's formatter to every blob in selected, writes each result
// into target, and records old->new into blobMap. It aborts on the first
// FormatterError or store-write IOError, per §4.E.
func Run(ctx context.Context, cfg *config.Config, src store.Reader, target store.Writer, blobMap *mapping.Map, selected hashid.Set) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BlobWorkers)

	for _, h := range selected.Sorted() {
		h := h
		g.Go(func() error {
			return rewriteOne(ctx, cfg, src, target, blobMap, h)
		})
	}
	return g.Wait()
}

func rewriteOne(ctx context.Context, cfg *config.Config, src store.Reader, target store.Writer, blobMap *mapping.Map, h hashid.Hash) error {
	payload, err := store.ReadBlob(src, h)
	if err != nil {
		return err
	}

	out, err := invoke(ctx, cfg, h, payload)
	if err != nil {
		return err
	}

	newHash, err := store.WriteBlob(target, out)
	if err != nil {
		return errs.NewIOError("write formatted blob for "+h.String(), err)
	}

	return blobMap.SetOrAgree("blob_map", h, newHash)
}

func invoke(ctx context.Context, cfg *config.Config, h hashid.Hash, payload []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, cfg.FormatterPath, cfg.FormatterArgs...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return nil, errs.NewFormatterError(h.String(), stderr.String(), err)
	}
	if stderr.Len() != 0 {
		return nil, errs.NewFormatterError(h.String(), stderr.String(), nil)
	}
	return stdout.Bytes(), nil
}
