// Package gitobj parses and serialises the three object kinds the rewriter
// deals with: blob, tree and commit. It mirrors git's own on-disk encoding
// (see gitobjects.go / sha1.go in the teacher repo for the shelled-out
// equivalent) so that objects built here hash identically to objects git
// itself would produce for the same logical content.
package gitobj

import "fmt"

// Kind identifies the type of a stored object.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

// Header returns the "<type> <len>\x00" prefix that, concatenated with the
// payload, is what gets SHA-1 hashed and zlib-compressed to disk.
func Header(kind Kind, payloadLen int) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", kind, payloadLen))
}
