// Package security provides input screening for text that ends up in
// model prompts.
package security

import (
	"regexp"
	"strings"
	"unicode"
)

// PromptValidator detects common prompt injection attempts in user
// questions before they are interpolated into model prompts.
//
// No filter is perfect; this catches the common patterns and relies on
// system prompt hardening for the rest. Homoglyph substitutions are
// not detected.
type PromptValidator struct {
	patterns []*regexp.Regexp
}

// NewPromptValidator creates a PromptValidator with the default
// pattern set.
func NewPromptValidator() *PromptValidator {
	patterns := []string{
		// System prompt override attempts
		`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?)`,
		`(?i)disregard\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?)`,
		`(?i)forget\s+(all\s+)?(previous|above|prior)\s+(instructions?|context)`,

		// Role reassignment
		`(?i)^you\s+are\s+now\s+a`,
		`(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`,
		`(?i)^(pretend|act|behave)\s+(you\s+are|to\s+be|as\s+if|like)`,

		// Instruction injection
		`(?i)^new\s+(instruction|task|rule)\s*:`,
		`(?i)^system\s*:\s*`,

		// Delimiter manipulation
		`(?i)</?(system|instruction|prompt)>`,
		`(?i)<start_of_document>`,

		// Jailbreaks
		`(?i)do\s+anything\s+now`,
		`(?i)jailbreak`,
		`(?i)bypass\s+(safety|filter|restrictions?)`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}

	return &PromptValidator{patterns: compiled}
}

// IsSafe reports whether input matches none of the injection patterns.
func (v *PromptValidator) IsSafe(input string) bool {
	normalized := normalizeInput(input)
	for _, re := range v.patterns {
		if re.MatchString(normalized) {
			return false
		}
	}
	return true
}

// normalizeInput strips zero-width and combining characters and
// collapses whitespace so patterns cannot be evaded with formatting
// tricks.
func normalizeInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
