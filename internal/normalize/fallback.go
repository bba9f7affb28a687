package normalize

import (
	"strings"

	"github.com/XavierBriggs/Argus/pkg/models"
)

const (
	// fallbackConfidence is reported when the deterministic path produces a
	// name with no alias hit
	fallbackConfidence = 0.6

	// aliasConfidence is reported when the alias table resolved the name
	aliasConfidence = 0.9
)

// fallbackNormalize maps a raw vendor string to a canonical name without the
// remote service. Total: any non-empty input yields a non-empty name.
//
// Steps: lower-case and trim; reduce everything outside [a-z0-9] to single
// spaces; title-case the tokens; then scan the alias table (case-insensitive
// substring, first match wins) and let a hit replace the entire string.
func fallbackNormalize(raw string) models.NormalizationResult {
	cleaned := clean(raw)

	// cleaned is already lower-case, so a plain substring scan against the
	// lower-case table is the case-insensitive match
	for _, alias := range sourceAliases {
		if strings.Contains(cleaned, alias.match) {
			return models.NormalizationResult{
				Name:       alias.canonical,
				Confidence: aliasConfidence,
				Reasoning:  "alias table match",
			}
		}
	}

	name := titleCase(cleaned)
	if name == "" {
		// No alphanumeric content at all; keep the trimmed original, or
		// raw itself when trimming leaves nothing (whitespace-only input)
		name = strings.TrimSpace(raw)
		if name == "" {
			name = raw
		}
	}

	return models.NormalizationResult{
		Name:       name,
		Confidence: fallbackConfidence,
		Reasoning:  "deterministic fallback",
	}
}

// clean lower-cases raw and reduces it to space-separated [a-z0-9] tokens
func clean(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSpace := false
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		} else {
			pendingSpace = true
		}
	}
	return b.String()
}

// titleCase upper-cases the first character of each token. Tokens are pure
// ascii [a-z0-9] after clean, so byte indexing is safe.
func titleCase(cleaned string) string {
	if cleaned == "" {
		return ""
	}
	tokens := strings.Fields(cleaned)
	for i, tok := range tokens {
		tokens[i] = strings.ToUpper(tok[:1]) + tok[1:]
	}
	return strings.Join(tokens, " ")
}
