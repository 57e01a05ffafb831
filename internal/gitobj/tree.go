package gitobj

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/objrw/historewrite/internal/hashid"
	"lab.nexedi.com/kirr/go123/mem"
)

// File mode strings as they appear in a tree entry. Only the first byte
// matters to the rewriter ('1' = file family, "40000" = sub-tree).
const (
	ModeDir        = "40000"
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
)

// TreeEntry is one (mode, name, hash) record of a tree object.
type TreeEntry struct {
	Mode string
	Name string
	Hash hashid.Hash
}

// IsDir reports whether the entry references a sub-tree.
func (e TreeEntry) IsDir() bool {
	return e.Mode == ModeDir
}

// IsFile reports whether the entry references a blob (regular file,
// executable or symlink) -- i.e. anything whose mode starts with '1'.
func (e TreeEntry) IsFile() bool {
	return len(e.Mode) > 0 && e.Mode[0] == '1'
}

// Ext returns the lowercased extension of the entry's name, including the
// leading dot (e.g. ".cpp"), or "" if there is none.
func (e TreeEntry) Ext() string {
	i := strings.LastIndexByte(e.Name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(e.Name[i:])
}

// ParseTree scans a tree object's payload into its ordered entries.
// Entries are not re-sorted: a tree read from the store is assumed already
// canonical (it was either written by this package or by git itself).
func ParseTree(payload []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	cursor := 0
	for cursor < len(payload) {
		sp := bytes.IndexByte(payload[cursor:], ' ')
		if sp < 0 {
			return nil, fmt.Errorf("gitobj: truncated tree entry at offset %d (missing mode separator)", cursor)
		}
		mode := mem.String(payload[cursor : cursor+sp])
		cursor += sp + 1

		nul := bytes.IndexByte(payload[cursor:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("gitobj: truncated tree entry at offset %d (missing name terminator)", cursor)
		}
		name := mem.String(payload[cursor : cursor+nul])
		cursor += nul + 1

		if cursor+hashid.Size > len(payload) {
			return nil, fmt.Errorf("gitobj: truncated tree entry at offset %d (short hash)", cursor)
		}
		var h hashid.Hash
		copy(h[:], payload[cursor:cursor+hashid.Size])
		cursor += hashid.Size

		entries = append(entries, TreeEntry{Mode: mode, Name: name, Hash: h})
	}
	return entries, nil
}

// treeEntrySortKey implements git's tree sort order: sub-tree names compare
// as if suffixed with "/", so that a directory always sorts after a file or
// another entry with the same name prefix. This is essential for producing
// byte-identical trees to git's own `write-tree`.
func treeEntrySortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// SerializeTree sorts entries with the directory-slash rule and concatenates
// them into a canonical tree payload. Entries are not mutated; a copy is
// sorted so callers may keep using their original slice order.
func SerializeTree(entries []TreeEntry) []byte {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return treeEntrySortKey(sorted[i]) < treeEntrySortKey(sorted[j])
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}
