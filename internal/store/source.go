// Package store implements component A: reading objects out of a source
// repository and writing rewritten objects into a target loose-object
// directory.
//
// Two source-store variants share the same Reader interface, both grounded
// in the teacher repo: CatFileBatchStore shells out to a long-running
// `git cat-file --batch` helper the way git-backup.go's ggit()/xgit() family
// spawns and frames subprocess I/O (git.go), while Git2GoSourceStore reads
// the same objects in-process through the trimmed internal/git wrapper
// (itself adapted from internal/git/git.go) when the source repository is
// reachable as a local path and libgit2 is available. Neither is
// thread-safe; a caller wanting concurrent readers opens one helper each,
// per spec §4.A / §5.
package store

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/objrw/historewrite/internal/errs"
	igit "github.com/objrw/historewrite/internal/git"
	"github.com/objrw/historewrite/internal/gitobj"
	"github.com/objrw/historewrite/internal/hashid"
)

// Reader reads an object by hash, returning its kind and payload.
type Reader interface {
	Read(h hashid.Hash) (gitobj.Kind, []byte, error)
}

// CatFileBatchStore reads objects from a source repository via a
// long-running `git cat-file --batch` child process, one hash request per
// line, framed as "<hash> <type> <size>\n<size bytes>\n" on reply.
type CatFileBatchStore struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewCatFileBatchStore spawns `git cat-file --batch` with its working
// directory set to dir (a bare or working-tree git repository).
func NewCatFileBatchStore(dir string) (*CatFileBatchStore, error) {
	cmd := exec.Command("git", "cat-file", "--batch")
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.NewIOError("cat-file --batch: stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.NewIOError("cat-file --batch: stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errs.NewIOError("cat-file --batch: start", err)
	}

	return &CatFileBatchStore{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReaderSize(stdout, 64*1024),
	}, nil
}

// Read looks up h in the source repository's object database.
func (s *CatFileBatchStore) Read(h hashid.Hash) (gitobj.Kind, []byte, error) {
	if _, err := fmt.Fprintf(s.stdin, "%s\n", h.String()); err != nil {
		return "", nil, errs.NewIOError("cat-file --batch: write request", err)
	}

	header, err := s.stdout.ReadString('\n')
	if err != nil {
		return "", nil, errs.NewIOError("cat-file --batch: read header", err)
	}
	header = strings.TrimSuffix(header, "\n")

	fields := strings.Fields(header)
	if len(fields) == 2 && fields[1] == "missing" {
		return "", nil, errs.NewIOError("cat-file --batch", fmt.Errorf("object %s missing from source", h))
	}
	if len(fields) != 3 {
		return "", nil, errs.NewProtocolError("malformed cat-file --batch header %q", header)
	}
	size, err := strconv.Atoi(fields[2])
	if err != nil {
		return "", nil, errs.NewProtocolError("malformed cat-file --batch size in %q", header)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(s.stdout, payload); err != nil {
		return "", nil, errs.NewProtocolError("cat-file --batch: short read for %s: %v", h, err)
	}
	if trailer, err := s.stdout.ReadByte(); err != nil || trailer != '\n' {
		return "", nil, errs.NewProtocolError("cat-file --batch: missing trailing newline for %s", h)
	}

	return gitobj.Kind(fields[1]), payload, nil
}

// Close terminates the helper process.
func (s *CatFileBatchStore) Close() error {
	s.stdin.Close()
	return s.cmd.Wait()
}

// Git2GoSourceStore reads objects in-process via libgit2's object database,
// avoiding a subprocess round-trip per object when the source repository is
// reachable as a local path.
type Git2GoSourceStore struct {
	repo *igit.Repository
	odb  *igit.Odb
}

// NewGit2GoSourceStore opens path (a bare or working-tree repository) and
// its object database.
func NewGit2GoSourceStore(path string) (*Git2GoSourceStore, error) {
	repo, err := igit.OpenRepository(path)
	if err != nil {
		return nil, errs.NewIOError("git2go: open "+path, err)
	}
	odb, err := repo.Odb()
	if err != nil {
		return nil, errs.NewIOError("git2go: odb of "+repo.Path(), err)
	}
	return &Git2GoSourceStore{repo: repo, odb: odb}, nil
}

// Read looks up h in the repository's object database.
func (s *Git2GoSourceStore) Read(h hashid.Hash) (gitobj.Kind, []byte, error) {
	var oid igit.Oid
	copy(oid[:], h[:])

	obj, err := s.odb.Read(&oid)
	if err != nil {
		return "", nil, errs.NewIOError("git2go: read "+h.String(), err)
	}

	kind, err := kindOf(obj.Type())
	if err != nil {
		return "", nil, err
	}
	return kind, obj.Data(), nil
}

func kindOf(t igit.ObjectType) (gitobj.Kind, error) {
	switch t {
	case igit.ObjectBlob:
		return gitobj.KindBlob, nil
	case igit.ObjectTree:
		return gitobj.KindTree, nil
	case igit.ObjectCommit:
		return gitobj.KindCommit, nil
	default:
		return "", errs.NewProtocolError("git2go: unsupported object type %d", t)
	}
}
