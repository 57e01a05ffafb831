// Package cache persists the two optional resume/testing artefacts named
// in spec §6: blobs.cache (the flattened blob-selection set from Phase 1)
// and a source-hash -> target-hash mapping cache (used for both tree_map
// and commit_map). The spec leaves the on-disk format unspecified beyond
// "an ASCII JSON-like textual form is sufficient" -- encoding/json is used
// directly rather than reaching for a third-party serialiser, since the
// spec itself says the format has no further requirement to satisfy.
package cache

import (
	"encoding/json"
	"os"

	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/hashid"
	"github.com/objrw/historewrite/internal/mapping"
)

// LoadBlobSet reads a blobs.cache file written by SaveBlobSet. A missing
// file is not an error; it returns an empty set.
func LoadBlobSet(path string) (hashid.Set, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return hashid.NewSet(), nil
	}
	if err != nil {
		return nil, errs.NewIOError("read "+path, err)
	}

	var hexes []string
	if err := json.Unmarshal(raw, &hexes); err != nil {
		return nil, errs.NewProtocolError("blobs.cache: %v", err)
	}

	set := hashid.NewSet()
	for _, hex := range hexes {
		h, err := hashid.Parse(hex)
		if err != nil {
			return nil, errs.NewProtocolError("blobs.cache: %v", err)
		}
		set.Add(h)
	}
	return set, nil
}

// SaveBlobSet writes set to path as a sorted JSON array of hex hashes.
func SaveBlobSet(path string, set hashid.Set) error {
	hexes := make([]string, 0, len(set))
	for _, h := range set.Sorted() {
		hexes = append(hexes, h.String())
	}
	return writeJSON(path, hexes)
}

// mapEntry is the on-disk shape of one mapping.Map row.
type mapEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LoadMap reads a mapping cache file written by SaveMap into m. A missing
// file is not an error.
func LoadMap(path string, m *mapping.Map) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.NewIOError("read "+path, err)
	}

	var entries []mapEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return errs.NewProtocolError("cache: %v", err)
	}

	for _, e := range entries {
		from, err := hashid.Parse(e.From)
		if err != nil {
			return errs.NewProtocolError("cache: %v", err)
		}
		to, err := hashid.Parse(e.To)
		if err != nil {
			return errs.NewProtocolError("cache: %v", err)
		}
		if err := m.SetOrAgree("cache", from, to); err != nil {
			return err
		}
	}
	return nil
}

// SaveMap writes m to path as a JSON array of {from,to} objects.
func SaveMap(path string, m *mapping.Map) error {
	entries := make([]mapEntry, 0, m.Len())
	m.Range(func(from, to hashid.Hash) {
		entries = append(entries, mapEntry{From: from.String(), To: to.String()})
	})
	return writeJSON(path, entries)
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.NewIOError("marshal "+path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errs.NewIOError("write "+path, err)
	}
	return nil
}
