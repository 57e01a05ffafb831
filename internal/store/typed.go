package store

import (
	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/gitobj"
	"github.com/objrw/historewrite/internal/hashid"
)

// ReadBlob reads h and asserts it is a blob.
func ReadBlob(r Reader, h hashid.Hash) ([]byte, error) {
	kind, payload, err := r.Read(h)
	if err != nil {
		return nil, err
	}
	if kind != gitobj.KindBlob {
		return nil, errs.NewTypeMismatch(h.String(), string(gitobj.KindBlob), string(kind))
	}
	return payload, nil
}

// ReadTree reads h and asserts it is a tree, returning its parsed entries.
func ReadTree(r Reader, h hashid.Hash) ([]gitobj.TreeEntry, error) {
	kind, payload, err := r.Read(h)
	if err != nil {
		return nil, err
	}
	if kind != gitobj.KindTree {
		return nil, errs.NewTypeMismatch(h.String(), string(gitobj.KindTree), string(kind))
	}
	return gitobj.ParseTree(payload)
}

// ReadCommit reads h and asserts it is a commit, returning its parsed form.
func ReadCommit(r Reader, h hashid.Hash) (*gitobj.Commit, error) {
	kind, payload, err := r.Read(h)
	if err != nil {
		return nil, err
	}
	if kind != gitobj.KindCommit {
		return nil, errs.NewTypeMismatch(h.String(), string(gitobj.KindCommit), string(kind))
	}
	return gitobj.ParseCommit(payload)
}

// WriteBlob writes payload as a new blob object.
func WriteBlob(w Writer, payload []byte) (hashid.Hash, error) {
	return w.Write(gitobj.KindBlob, payload)
}

// WriteTree serialises entries canonically and writes the result as a new
// tree object.
func WriteTree(w Writer, entries []gitobj.TreeEntry) (hashid.Hash, error) {
	return w.Write(gitobj.KindTree, gitobj.SerializeTree(entries))
}

// WriteCommit serialises c and writes the result as a new commit object.
func WriteCommit(w Writer, c *gitobj.Commit) (hashid.Hash, error) {
	return w.Write(gitobj.KindCommit, c.Serialize())
}
