// Copyright (C) 2025  Nexedi SA and Contributors.
//                     Kirill Smelkov <kirr@nexedi.com>
//
// This program is free software: you can Use, Study, Modify and Redistribute
// it under the terms of the GNU General Public License version 3, or (at your
// option) any later version, as published by the Free Software Foundation.
//
// You can also Link and Combine this program with other software covered by
// the terms of any of the Free Software licenses or any of the Open Source
// Initiative approved licenses and Convey the resulting work. Corresponding
// source of such a combination shall include the source code for all other
// software used.
//
// This program is distributed WITHOUT ANY WARRANTY; without even the implied
// warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//
// See COPYING file for full licensing terms.
// See https://www.nexedi.com/licensing for rationale and options.

// Package git wraps the pieces of package git2go that internal/store needs
// to read objects out of a local repository's object database, with
// unconditional safety.
//
// For example git2go.OdbObject.Data() returns []byte that aliases unsafe
// memory that can go away from under []byte if the original OdbObject is
// garbage collected. The following code snippet is thus _not_ correct:
//
//	obj, _ = odb.Read(oid)
//	data := obj.Data()
//	... use data
//
// because obj can be garbage-collected right after `data := obj.Data()` but
// before `use data`, leading to either crashes or memory corruption. A
// runtime.KeepAlive(obj) needs to be added after `use data` to make that
// code correct.
//
// Given that obj.Data() does not "speak" by itself as unsafe, and there are
// several similar methods, it is hard to see which places in the code need
// special attention. For this reason the git2go-related code is localized in
// this one small package, which exposes only safe things to its caller: data
// is copied out whenever it is read from git2go, trading a copy for
// unconditional safety.
//
// This is the same trade internal/store's CatFileBatchStore already makes by
// shelling out to `git cat-file --batch` and copying bytes off a pipe; an
// Odb opened in-process is cheaper when the source repository is reachable
// as a local path, without changing that safety contract.
package git

import (
	"bytes"
	"runtime"
	"strings"

	git2go "github.com/libgit2/git2go/v31"
)

// constants are safe to propagate as is.
const (
	ObjectAny     = git2go.ObjectAny
	ObjectInvalid = git2go.ObjectInvalid
	ObjectCommit  = git2go.ObjectCommit
	ObjectTree    = git2go.ObjectTree
	ObjectBlob    = git2go.ObjectBlob
	ObjectTag     = git2go.ObjectTag
)

// types that are safe to propagate as is.
type (
	ObjectType = git2go.ObjectType // int
	Oid        = git2go.Oid        // [20]byte ; cloned when retrieved
)

// types that we wrap to provide safety.

// Repository provides a safe wrapper over git2go.Repository, restricted to
// the object-database reads internal/store needs.
type Repository struct {
	repo *git2go.Repository
}

// Odb provides a safe wrapper over git2go.Odb.
type Odb struct {
	odb *git2go.Odb
}

// OdbObject provides a safe wrapper over git2go.OdbObject.
type OdbObject struct {
	obj *git2go.OdbObject
}

// OpenRepository opens the repository at path, following git2go's own
// discovery rules (path may be a working tree or a bare repository).
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, err
	}
	return &Repository{repo: repo}, nil
}

// Odb returns the repository's object database.
func (r *Repository) Odb() (*Odb, error) {
	odb, err := r.repo.Odb()
	if err != nil {
		return nil, err
	}
	return &Odb{odb}, nil
}

// Path returns the repository's on-disk path, used only for diagnostics.
func (r *Repository) Path() string {
	path := strings.Clone(r.repo.Path())
	runtime.KeepAlive(r)
	return path
}

// Read looks up oid in the object database.
func (o *Odb) Read(oid *Oid) (*OdbObject, error) {
	obj, err := o.odb.Read(oid)
	if err != nil {
		return nil, err
	}
	return &OdbObject{obj}, nil
}

// wrapper over a safe method.
func (o *OdbObject) Type() ObjectType { return o.obj.Type() }

// wrappers over unsafe, or potentially unsafe, methods.

func (o *OdbObject) Id() *Oid {
	id := oidClone(o.obj.Id())
	runtime.KeepAlive(o)
	return id
}

func (o *OdbObject) Data() []byte {
	data := bytes.Clone(o.obj.Data())
	runtime.KeepAlive(o)
	return data
}

// misc

func oidClone(oid *Oid) *Oid {
	var oid2 Oid
	if oid == nil {
		return nil
	}
	copy(oid2[:], oid[:])
	return &oid2
}
