// Package textutil holds the small text-splitting helpers shared by the
// object-model parser and the revision lister, adapted from the teacher's
// util.go (splitlines, headtail): the ref-escaping and raw-file-descriptor
// helpers that used to live alongside them were specific to encoding
// arbitrary paths as git ref names for backup storage and have no
// equivalent need here.
package textutil

import "strings"

// Lines splits s on sep, dropping one trailing empty element -- so
// Lines("a\nb\n", "\n") is ["a", "b"], not ["a", "b", ""].
func Lines(s, sep string) []string {
	parts := strings.Split(s, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// HeadTail splits s at the first occurrence of sep into (head, tail). ok is
// false if sep does not occur in s.
func HeadTail(s, sep string) (head, tail string, ok bool) {
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
