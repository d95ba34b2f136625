// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package heading decides whether a text block is a Markdown heading from
// its font size and the shape of its leading token.
//
// Font sizes are in points and are doubled before comparison so the
// thresholds read like the half-point sizes used by word processors
// (h1 = 48 half-points = 24pt). A length cap keeps long paragraphs set in a
// large face from being promoted; a leading ordinal such as "第一章" or
// "3." lowers the bar by one level.
package heading

import (
	"strings"
	"unicode/utf8"
)

// Thresholds on the doubled font size.
const (
	H1 = 48
	H2 = 36
	H3 = 28
	H4 = 24

	// MaxLength is the exclusive rune-count limit for length-capped levels.
	MaxLength = 15
)

// ordinalMarker introduces a counted ordinal ("第三", "第2").
const ordinalMarker = '第'

const cjkNumerals = "一二三四五六七八九十百千万亿"

func isCJKNumeral(r rune) bool {
	return strings.ContainsRune(cjkNumerals, r)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// HasOrdinalPrefix reports whether text starts with a CJK numeral, an ASCII
// digit, or the ordinal marker followed by either.
func HasOrdinalPrefix(text string) bool {
	first, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return false
	}
	if isCJKNumeral(first) || isASCIIDigit(first) {
		return true
	}
	if first != ordinalMarker {
		return false
	}
	second, n := utf8.DecodeRuneInString(text[size:])
	return n > 0 && (isCJKNumeral(second) || isASCIIDigit(second))
}

// Level returns the heading level 1-4 for text at fontSize points, or 0 for
// plain text. text is expected to be trimmed.
func Level(text string, fontSize float64) int {
	size := fontSize * 2
	short := utf8.RuneCountInString(text) < MaxLength

	switch {
	case size >= H1:
		return 1
	case size >= H2:
		return 2
	}

	if HasOrdinalPrefix(text) {
		switch {
		case size >= H3:
			return 3
		case size >= H4 && short:
			return 4
		}
		return 0
	}

	if size >= H3 && short {
		return 3
	}
	return 0
}

// Format returns text unchanged when it is not a heading, or wrapped as
// "\n\n" + level hashes + " " + text + "\n\n".
func Format(text string, fontSize float64) string {
	level := Level(text, fontSize)
	if level == 0 {
		return text
	}
	return "\n\n" + strings.Repeat("#", level) + " " + text + "\n\n"
}
