package gitobj

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/textutil"
)

// HeaderField is a commit header line outside of tree/parent/author/committer
// (e.g. "gpgsig", "mergetag"), kept in encounter order for round-tripping.
type HeaderField struct {
	Key   string
	Value string
}

// Commit is a mutable structured view of a commit object. parent handling
// follows spec: zero, one or many "parent" lines may appear on input; only
// the first is treated as the linear ancestor. MergedParent is populated
// only by the separate merge phase (internal/mergephase), never by the
// core rewrite.
type Commit struct {
	Tree         hashid.Hash
	Parents      []hashid.Hash // as read; Parents[0] is the linear ancestor
	MergedParent *hashid.Hash
	Author       string
	Committer    string
	Extra        []HeaderField
	Message      string
}

// Parent returns the primary (first) parent, if any.
func (c *Commit) Parent() (hashid.Hash, bool) {
	if len(c.Parents) == 0 {
		return hashid.Hash{}, false
	}
	return c.Parents[0], true
}

// SetParent replaces the primary parent. Any additional parents recorded
// from the source commit are dropped -- the rewrite collapses history to
// linear first-parent chains (spec.md §1 Non-goals).
func (c *Commit) SetParent(h hashid.Hash) {
	c.Parents = []hashid.Hash{h}
}

// ClearParent removes the primary parent, producing a root commit.
func (c *Commit) ClearParent() {
	c.Parents = nil
}

// ParseCommit parses a commit object's payload into a structured Commit.
func ParseCommit(payload []byte) (*Commit, error) {
	headerBlock, message, ok := cutHeaders(payload)
	if !ok {
		return nil, fmt.Errorf("gitobj: commit payload has no header/message separator")
	}

	lines := splitHeaderLines(headerBlock)

	c := &Commit{Message: message}
	haveTree := false
	for _, line := range lines {
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("gitobj: malformed commit header line %q", line)
		}
		switch key {
		case "tree":
			h, err := hashid.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("gitobj: commit tree header: %w", err)
			}
			c.Tree = h
			haveTree = true
		case "parent":
			h, err := hashid.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("gitobj: commit parent header: %w", err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			c.Author = value
		case "committer":
			c.Committer = value
		default:
			c.Extra = append(c.Extra, HeaderField{Key: key, Value: value})
		}
	}
	if !haveTree {
		return nil, fmt.Errorf("gitobj: commit payload is missing the tree header")
	}
	return c, nil
}

// Serialize writes the canonical payload: tree, parent (primary), parent
// (merged) if any, author, committer, then other headers in encounter
// order, then "\n\n" + message.
func (c *Commit) Serialize() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	if p, ok := c.Parent(); ok {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	if c.MergedParent != nil {
		fmt.Fprintf(&buf, "parent %s\n", *c.MergedParent)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	for _, f := range c.Extra {
		fmt.Fprintf(&buf, "%s %s\n", f.Key, f.Value)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// cutHeaders splits a commit payload at the blank line separating the
// header block from the message.
func cutHeaders(payload []byte) (headers, message string, ok bool) {
	return textutil.HeadTail(string(payload), "\n\n")
}

// splitHeaderLines joins header continuation lines (those starting with a
// single space, as git emits for multi-line "gpgsig" values) back onto the
// previous logical header line.
func splitHeaderLines(block string) []string {
	if block == "" {
		return nil
	}
	raw := strings.Split(block, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.HasPrefix(l, " ") && len(lines) > 0 {
			lines[len(lines)-1] += "\n" + l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
