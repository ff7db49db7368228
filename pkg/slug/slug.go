// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug derives lowercase, hyphen-separated URL segments from comic and
// chapter titles (e.g. "Solo Leveling" becomes "solo-leveling").
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented letters and drops the combining marks.
var stripMarks = transform.Chain(norm.NFD, transform.RemoveFunc(isMark), norm.NFC)

// From converts a title into a slug.
//
// Accents are removed, letters lowercased, and every run of characters that is
// not a letter or digit collapses into a single hyphen. Leading and trailing
// hyphens are trimmed. Non-Latin letters are kept as-is.
func From(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}

	var builder strings.Builder
	builder.Grow(len(folded))

	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			pendingHyphen = false
			builder.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return builder.String()
}

func isMark(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
