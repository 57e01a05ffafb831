// Package revlist implements component C: enumerating the (commit,
// root-tree) pairs of a branch in ancestor-first order, by shelling out to
// `git rev-list --format=%T --reverse`, in the same spawn-and-scrape style
// as the teacher's ggit()/xgit() helpers (git.go).
package revlist

import (
	"bufio"
	"bytes"
	"os/exec"
	"strings"

	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/hashid"
)

// List runs `git rev-list --format=%T --reverse <branch>` in dir and
// returns the commits and their root trees, both oldest first.
//
// rev-list's --format output interleaves a "commit <hash>" line with the
// formatted line (here, the tree hash) for each revision; a NotFoundError
// is returned if the branch has no commits.
func List(dir, branch string) (commits, trees []hashid.Hash, err error) {
	cmd := exec.Command("git", "rev-list", "--format=%T", "--reverse", branch)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, nil, errs.NewIOError("rev-list "+branch, err)
	}

	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pendingCommit *hashid.Hash
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "commit "):
			h, perr := hashid.Parse(strings.TrimPrefix(line, "commit "))
			if perr != nil {
				return nil, nil, errs.NewProtocolError("rev-list: malformed commit line %q", line)
			}
			pendingCommit = &h
		case line == "":
			// rev-list separates entries with a blank line; ignore.
		default:
			if pendingCommit == nil {
				return nil, nil, errs.NewProtocolError("rev-list: tree line %q with no pending commit", line)
			}
			tree, perr := hashid.Parse(line)
			if perr != nil {
				return nil, nil, errs.NewProtocolError("rev-list: malformed tree line %q", line)
			}
			commits = append(commits, *pendingCommit)
			trees = append(trees, tree)
			pendingCommit = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errs.NewIOError("rev-list: scan output", err)
	}

	if len(commits) == 0 {
		return nil, nil, errs.NewNotFoundError("revisions on " + branch)
	}
	return commits, trees, nil
}
