// Package slug derives canonical note identifiers from free-form note names.
//
// The canonical id is the node key of the workspace link graph: any two names
// that normalize to the same slug address the same note, which is how
// [[My Note]], my-note.md and my_note.md all resolve to one graph node. The
// algorithm is the interoperability contract for persisted link graphs, so it
// must not change between releases.
package slug

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// separator joins the surviving character runs of a canonical id.
const separator = '-'

// asciiSeparators lists the ASCII punctuation and symbol characters that,
// together with Unicode whitespace and the zero-width variants below, form
// the separator class.
const asciiSeparators = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// trailingCutset lists the separator-class characters stripped from the end
// of an id: the separator itself, underscore, and the zero-width variants.
const trailingCutset = "-_​⁠﻿"

// isSeparator reports whether r belongs to the separator class.
func isSeparator(r rune) bool {
	switch r {
	case '​', '⁠', '﻿': // zero width space, word joiner, ZWNBSP
		return true
	}
	if r < utf8.RuneSelf {
		return strings.ContainsRune(asciiSeparators, r) || unicode.IsSpace(r)
	}
	return unicode.IsSpace(r)
}

// Canonicalize maps an arbitrary note name to its canonical id.
//
// Every maximal run of separator-class characters collapses to a single
// hyphen, the result is lower-cased with simple locale-independent folding,
// and a trailing run of separator-class characters is stripped. The function
// is pure, total and idempotent: the empty name yields the empty id, and a
// canonical id passes through unchanged.
func Canonicalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pending := false
	for _, r := range name {
		if isSeparator(r) {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(separator)
			pending = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	if pending {
		b.WriteByte(separator)
	}
	return strings.TrimRight(b.String(), trailingCutset)
}
