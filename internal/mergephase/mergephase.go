// Package mergephase implements the summarised merge step of spec.md §6:
// grafting a rewritten history's wrapped root (§4.F's ancestor-wrapping
// already places it at third_party/WebKit) into a receiving repository's
// third_party/ tree, patching .gitignore and DEPS, and synthesising the
// two-parent merge commit that ties the two histories together.
//
// This is explicitly named an external collaborator in spec.md §1/§6 and
// is kept out of the ~1,800-line core budget; it is grounded directly on
// original_source/history_rewrite_scripts/chromium_blink_merge.py's
// _MergeBlinkIntoChrome and gitutils.py's TreeLookup/ReplaceInTree, which
// the distilled spec.md summarises in one paragraph without naming.
package mergephase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/gitobj"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/store"
)

// GitignoreLine is the exact line chromium_blink_merge.py removes from the
// receiving repository's .gitignore.
const GitignoreLine = "/third_party/WebKit"

// webkitVarRE matches a gclient DEPS var entry naming a webkit_* variable,
// mirroring deps_cleanup.py's CleanupDeps regex.
var webkitVarRE = regexp.MustCompile(`(?m)['"]webkit_\w+['"]:[^,]+,(?:\s*#.*)?\s*`)

// webkitDepRE matches the src/third_party/WebKit DEPS entry.
var webkitDepRE = regexp.MustCompile(`(?m)['"]src/third_party/WebKit['"]:[^,]+,\s*`)

// CleanupGitignore removes GitignoreLine from payload, returning
// errs.NotFoundError if the line is absent -- chromium_blink_merge.py
// asserts the same precondition before editing.
func CleanupGitignore(payload []byte) ([]byte, error) {
	lines := strings.Split(string(payload), "\n")
	found := false
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == GitignoreLine {
			found = true
			continue
		}
		out = append(out, l)
	}
	if !found {
		return nil, errs.NewNotFoundError(GitignoreLine + " in .gitignore")
	}
	return []byte(strings.Join(out, "\n")), nil
}

// CleanupDEPS removes webkit_* gclient vars and the src/third_party/WebKit
// dependency entry from a DEPS file's contents. Python's original validates
// the result by re-parsing it as a Python AST; a Go module has no
// equivalent to lean on, so instead this checks the result's bracket/brace/
// paren nesting is still balanced -- cheap insurance that the two regexes
// did not leave a dangling, unparseable fragment behind.
func CleanupDEPS(payload []byte) ([]byte, error) {
	if !balanced(payload) {
		return nil, errs.NewProtocolError("DEPS: input is not balanced before cleanup")
	}

	out := webkitVarRE.ReplaceAll(payload, nil)
	out = webkitDepRE.ReplaceAll(out, nil)

	if !balanced(out) {
		return nil, errs.NewProtocolError("DEPS: cleanup left unbalanced brackets")
	}
	return out, nil
}

func balanced(b []byte) bool {
	var stack []byte
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for _, c := range b {
		switch c {
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// TreeLookup returns the hash of the entry named name, if present.
func TreeLookup(entries []gitobj.TreeEntry, name string) (hashid.Hash, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e.Hash, true
		}
	}
	return hashid.Hash{}, false
}

// ReplaceInTree returns a copy of entries with the entry named name
// substituted to point at newHash, preserving mode and position.
func ReplaceInTree(entries []gitobj.TreeEntry, name string, newHash hashid.Hash) []gitobj.TreeEntry {
	out := make([]gitobj.TreeEntry, len(entries))
	copy(out, entries)
	for i, e := range out {
		if e.Name == name {
			out[i] = gitobj.TreeEntry{Mode: e.Mode, Name: name, Hash: newHash}
			break
		}
	}
	return out
}

// Identity names the author/committer the merge phase writes commits as.
type Identity struct {
	Name  string
	Email string
}

// cfg bundles the merge's fixed knobs; NewMerger wires the defaults the
// original script hard-codes in config.py (AUTOMERGER_NAME/EMAIL, the +300s
// idempotence offset).
type cfg struct {
	identity Identity
	offset   int64
}

// Merger grafts a rewritten, ancestor-wrapped Blink history into a
// receiving (chromium-shaped) repository.
type Merger struct {
	Src store.Reader // receiving repository's object store (read-only)
	New store.Reader // the rewritten-history store (also read-only here)
	Dst store.Writer // where new blobs/trees/commits are written

	cfg cfg
}

// NewMerger returns a Merger that writes merge commits authored as
// identity, defaulting to "chromium-blink-automerger <noreply@chromium.org>"
// the way config.py's AUTOMERGER_NAME/AUTOMERGER_EMAIL do.
func NewMerger(src, rewritten store.Reader, dst store.Writer, identity Identity) *Merger {
	if identity.Name == "" {
		identity.Name = "chromium-blink-automerger"
	}
	if identity.Email == "" {
		identity.Email = "noreply@chromium.org"
	}
	return &Merger{Src: src, New: rewritten, Dst: dst, cfg: cfg{identity: identity, offset: 300}}
}

// Merge grafts third_party/WebKit from rewrittenHead (a commit produced by
// the core rewrite with ancestor-wrapping configured as
// ["third_party", "WebKit"]) into receivingTip's third_party/ directory,
// patches .gitignore and DEPS, and writes the resulting merge commit: first
// parent receivingTip, second (merged) parent rewrittenHead.
func (m *Merger) Merge(receivingTip, rewrittenHead hashid.Hash) (hashid.Hash, error) {
	crCommit, err := store.ReadCommit(m.Src, receivingTip)
	if err != nil {
		return hashid.Hash{}, err
	}
	crRoot, err := store.ReadTree(m.Src, crCommit.Tree)
	if err != nil {
		return hashid.Hash{}, err
	}

	thirdPartyHash, ok := TreeLookup(crRoot, "third_party")
	if !ok {
		return hashid.Hash{}, errs.NewNotFoundError("third_party in " + receivingTip.String())
	}
	thirdParty, err := store.ReadTree(m.Src, thirdPartyHash)
	if err != nil {
		return hashid.Hash{}, err
	}
	if _, already := TreeLookup(thirdParty, "WebKit"); already {
		return hashid.Hash{}, fmt.Errorf("mergephase: WebKit already merged in %s", receivingTip)
	}

	gitignoreHash, ok := TreeLookup(crRoot, ".gitignore")
	if !ok {
		return hashid.Hash{}, errs.NewNotFoundError(".gitignore in " + receivingTip.String())
	}
	gitignore, err := store.ReadBlob(m.Src, gitignoreHash)
	if err != nil {
		return hashid.Hash{}, err
	}
	newGitignore, err := CleanupGitignore(gitignore)
	if err != nil {
		return hashid.Hash{}, err
	}
	newGitignoreHash, err := store.WriteBlob(m.Dst, newGitignore)
	if err != nil {
		return hashid.Hash{}, err
	}

	depsHash, ok := TreeLookup(crRoot, "DEPS")
	if !ok {
		return hashid.Hash{}, errs.NewNotFoundError("DEPS in " + receivingTip.String())
	}
	deps, err := store.ReadBlob(m.Src, depsHash)
	if err != nil {
		return hashid.Hash{}, err
	}
	newDeps, err := CleanupDEPS(deps)
	if err != nil {
		return hashid.Hash{}, err
	}
	newDepsHash, err := store.WriteBlob(m.Dst, newDeps)
	if err != nil {
		return hashid.Hash{}, err
	}

	blCommit, err := store.ReadCommit(m.New, rewrittenHead)
	if err != nil {
		return hashid.Hash{}, err
	}
	blRoot, err := store.ReadTree(m.New, blCommit.Tree)
	if err != nil {
		return hashid.Hash{}, err
	}
	if len(blRoot) != 1 || blRoot[0].Name != "third_party" {
		return hashid.Hash{}, fmt.Errorf("mergephase: rewritten root is not wrapped under third_party (got %d entries)", len(blRoot))
	}
	blThirdParty, err := store.ReadTree(m.New, blRoot[0].Hash)
	if err != nil {
		return hashid.Hash{}, err
	}
	if len(blThirdParty) != 1 || blThirdParty[0].Name != "WebKit" {
		return hashid.Hash{}, fmt.Errorf("mergephase: rewritten third_party/ is not wrapped under WebKit (got %d entries)", len(blThirdParty))
	}
	webkitHash := blThirdParty[0].Hash

	mergedThirdParty := append(append([]gitobj.TreeEntry{}, thirdParty...),
		gitobj.TreeEntry{Mode: gitobj.ModeDir, Name: "WebKit", Hash: webkitHash})
	mergedThirdPartyHash, err := store.WriteTree(m.Dst, mergedThirdParty)
	if err != nil {
		return hashid.Hash{}, err
	}

	mergedRoot := ReplaceInTree(crRoot, "third_party", mergedThirdPartyHash)
	mergedRoot = ReplaceInTree(mergedRoot, ".gitignore", newGitignoreHash)
	mergedRoot = ReplaceInTree(mergedRoot, "DEPS", newDepsHash)
	mergedRootHash, err := store.WriteTree(m.Dst, mergedRoot)
	if err != nil {
		return hashid.Hash{}, err
	}

	crTime, err := committerEpoch(crCommit.Committer)
	if err != nil {
		return hashid.Hash{}, err
	}
	mergeTime := crTime + m.cfg.offset
	who := fmt.Sprintf("%s <%s> %d +0000", m.cfg.identity.Name, m.cfg.identity.Email, mergeTime)

	merged := &gitobj.Commit{
		Tree:      mergedRootHash,
		Parents:   []hashid.Hash{receivingTip},
		Author:    who,
		Committer: who,
		Message:   mergeMessage(receivingTip, rewrittenHead, crCommit.Message),
	}
	merged.MergedParent = &rewrittenHead

	return store.WriteCommit(m.Dst, merged)
}

// crCommitPositionRE extracts "Cr-Commit-Position: refs/heads/master@{#N}"
// from a receiving commit's message, the chromium convention
// chromium_blink_merge.py parses to compute the merge commit's position.
var crCommitPositionRE = regexp.MustCompile(`(?m)^Cr-Commit-Position: (\S+)@\{#(\d+)\}$`)

// mergeMessage embeds both source hashes and (if found) the receiving
// commit's next position token, matching config.py's MERGE_MSG template.
func mergeMessage(receivingTip, rewrittenHead hashid.Hash, receivingMessage string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Merge Blink rewritten history into third_party/WebKit\n\n")
	fmt.Fprintf(&sb, "Chromium-Sha: %s\n", receivingTip)
	fmt.Fprintf(&sb, "Blink-Sha: %s\n", rewrittenHead)
	if m := crCommitPositionRE.FindStringSubmatch(receivingMessage); m != nil {
		pos, err := strconv.Atoi(m[2])
		if err == nil {
			fmt.Fprintf(&sb, "Cr-Commit-Position: %s@{#%d}\n", m[1], pos+1)
		}
	}
	return sb.String()
}

// committerEpoch parses the unix-seconds field out of a git "committer"
// header value ("Name <email> epoch tz").
func committerEpoch(committer string) (int64, error) {
	fields := strings.Fields(committer)
	if len(fields) < 2 {
		return 0, fmt.Errorf("mergephase: malformed committer header %q", committer)
	}
	epochStr := fields[len(fields)-2]
	epoch, err := strconv.ParseInt(epochStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("mergephase: malformed committer timestamp in %q: %w", committer, err)
	}
	return epoch, nil
}
