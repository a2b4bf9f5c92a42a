// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"regexp"
	"strings"
)

// =============================================================================
// Rules
// =============================================================================

// Rule is one named text rewrite applied to completion text before parsing.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Rule names, also used as metric labels.
const (
	RuleStripCodeFences     = "strip_code_fences"
	RuleQuoteBareKeys       = "quote_bare_keys"
	RuleNormalizeQuotes     = "normalize_quotes"
	RuleNormalizeRanges     = "normalize_ranges"
	RuleStripTrailingCommas = "strip_trailing_commas"
)

// DefaultRules run in this order. Each rule is idempotent and so is the
// sequence as a whole.
var DefaultRules = []Rule{
	{Name: RuleStripCodeFences, Apply: stripCodeFences},
	{Name: RuleQuoteBareKeys, Apply: quoteBareKeys},
	{Name: RuleNormalizeQuotes, Apply: normalizeQuotes},
	{Name: RuleNormalizeRanges, Apply: normalizeRanges},
	{Name: RuleStripTrailingCommas, Apply: stripTrailingCommas},
}

var (
	codeFencePattern     = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	bareKeyPattern       = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)(\s*:)`)
	rangePattern         = regexp.MustCompile(`(\d+)\s*[-–—]\s*(\d+)`)
	trailingCommaPattern = regexp.MustCompile(`,(?:\s*,)*(\s*[}\]])`)
)

func stripCodeFences(s string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(s, ""))
}

func quoteBareKeys(s string) string {
	return mapOutsideLiterals(s, func(run string) string {
		return bareKeyPattern.ReplaceAllString(run, `$1"$2"$3`)
	})
}

// normalizeQuotes rewrites single-quoted literals as double-quoted ones.
func normalizeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range splitLiterals(s) {
		if seg.quote == '\'' && seg.closed {
			b.WriteString(requote(seg.text))
			continue
		}
		b.WriteString(seg.text)
	}
	return b.String()
}

// normalizeRanges collapses "3 - 4" and "3–4" to "3-4" everywhere,
// including inside strings. Matches cannot overlap, so chains like
// "1 - 2 - 3" need more than one pass.
func normalizeRanges(s string) string {
	for {
		out := rangePattern.ReplaceAllString(s, "$1-$2")
		if out == s {
			return out
		}
		s = out
	}
}

func stripTrailingCommas(s string) string {
	return mapOutsideLiterals(s, func(run string) string {
		return trailingCommaPattern.ReplaceAllString(run, "$1")
	})
}

// =============================================================================
// Sanitizer
// =============================================================================

// Sanitizer applies an ordered rule list to completion text.
//
// # Description
//
// Rules are syntactic and best-effort: they fix the common ways a model
// drifts from strict JSON. Sanitizing already valid JSON leaves it
// unchanged apart from surrounding whitespace.
//
// # Thread Safety
//
// Safe for concurrent use if the observe callback is.
type Sanitizer struct {
	rules   []Rule
	observe func(rule string)
}

// NewSanitizer builds a Sanitizer. A nil rules slice means DefaultRules.
// observe, if not nil, is called with the name of every rule that changed
// the text.
func NewSanitizer(rules []Rule, observe func(rule string)) *Sanitizer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Sanitizer{rules: rules, observe: observe}
}

// Sanitize runs every rule in order.
func (s *Sanitizer) Sanitize(text string) string {
	for _, rule := range s.rules {
		out := rule.Apply(text)
		if out != text && s.observe != nil {
			s.observe(rule.Name)
		}
		text = out
	}
	return text
}

// Sanitize runs DefaultRules over text.
func Sanitize(text string) string {
	return NewSanitizer(nil, nil).Sanitize(text)
}

// =============================================================================
// String Literal Scanning
// =============================================================================

// segment is a run of text that is either entirely outside string
// literals (quote == 0) or one literal including its quotes.
type segment struct {
	text   string
	quote  byte
	closed bool
}

// splitLiterals splits s into literal and non-literal runs. Both ' and "
// open a literal, which ends at the next unescaped matching quote. An
// unterminated literal runs to the end of s.
func splitLiterals(s string) []segment {
	var segs []segment
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '"' && c != '\'' {
			continue
		}
		if i > start {
			segs = append(segs, segment{text: s[start:i]})
		}
		end, closed := scanLiteral(s, i)
		segs = append(segs, segment{text: s[i:end], quote: c, closed: closed})
		start = end
		i = end - 1
	}
	if start < len(s) {
		segs = append(segs, segment{text: s[start:]})
	}
	return segs
}

// scanLiteral returns the index just past the literal opening at s[open].
func scanLiteral(s string, open int) (int, bool) {
	quote := s[open]
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return len(s), false
}

// mapOutsideLiterals applies fn to every run outside string literals.
func mapOutsideLiterals(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range splitLiterals(s) {
		if seg.quote == 0 {
			b.WriteString(fn(seg.text))
			continue
		}
		b.WriteString(seg.text)
	}
	return b.String()
}

// requote turns a closed single-quoted literal into a double-quoted one.
func requote(lit string) string {
	inner := lit[1 : len(lit)-1]
	var b strings.Builder
	b.Grow(len(lit) + 2)
	b.WriteByte('"')
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '\\' && i+1 < len(inner):
			if inner[i+1] == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(inner[i+1])
			}
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
