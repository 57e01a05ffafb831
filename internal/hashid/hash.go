// Package hashid provides the Hash type identifying any rewritten object by
// the SHA-1 of its header-prefixed payload, plus a handful of collection
// helpers used across the rewrite pipeline.
package hashid

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
)

// Size is the length in bytes of a raw SHA-1 digest.
const Size = 20

// Hash is a 20-byte SHA-1 digest identifying a blob, tree or commit object.
// The zero value represents "no hash" (e.g. a commit with no parent).
type Hash [Size]byte

var _ fmt.Stringer = Hash{}

// String renders the hash as 40 lowercase hex characters.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the null hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Parse decodes a 40 hex character string into a Hash.
func Parse(s string) (Hash, error) {
	var h Hash
	if hex.DecodedLen(len(s)) != Size {
		return Hash{}, fmt.Errorf("hashid: %q is not a valid 40-char hex hash", s)
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("hashid: %q is not a valid hex hash: %w", s, err)
	}
	return h, nil
}

// MustParse is like Parse but panics on error; useful in tests and
// for hardcoded well-known hashes (e.g. the canonical empty tree).
func MustParse(s string) Hash {
	h, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return h
}

// ByHash sorts a slice of Hash in their natural byte order, which is the
// order `git for-each-ref`-style tools and the reference implementation
// rely on for deterministic output.
type ByHash []Hash

func (p ByHash) Len() int           { return len(p) }
func (p ByHash) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p ByHash) Less(i, j int) bool { return bytes.Compare(p[i][:], p[j][:]) < 0 }

// Set is a set of Hash values.
type Set map[Hash]struct{}

// NewSet returns a Set containing the given hashes.
func NewSet(hv ...Hash) Set {
	s := make(Set, len(hv))
	for _, h := range hv {
		s.Add(h)
	}
	return s
}

func (s Set) Add(h Hash) {
	s[h] = struct{}{}
}

func (s Set) Contains(h Hash) bool {
	_, ok := s[h]
	return ok
}

// Sorted returns the set's elements sorted by ByHash, for deterministic
// iteration (e.g. when persisting a cache file or logging a summary).
func (s Set) Sorted() []Hash {
	hv := make([]Hash, 0, len(s))
	for h := range s {
		hv = append(hv, h)
	}
	sort.Sort(ByHash(hv))
	return hv
}
