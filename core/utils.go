package core

import (
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FileExt returns the lower-cased extension of `name`, without the leading dot.
func FileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// HasExt checks that `name` carries one of `exts`.
func HasExt(name string, exts []string) bool {
	ext := FileExt(name)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ContainsInt reports whether `v` is in `s`.
func ContainsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// UniqueInts returns `s` without duplicates, keeping first occurrences.
func UniqueInts(s []int) []int {
	seen := make(map[int]struct{}, len(s))
	out := make([]int, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
