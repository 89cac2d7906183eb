package task

import (
	"regexp"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/model"
)

const signatureMaxRunes = 220

var (
	sigPunct  = regexp.MustCompile("[`*_~#>\\[\\](){},.;:!?/\\\\|\\-+=\"]")
	sigSpaces = regexp.MustCompile(`\s+`)
)

func normText(s string) string {
	s = strings.ToLower(s)
	s = sigPunct.ReplaceAllString(s, " ")
	return strings.TrimSpace(sigSpaces.ReplaceAllString(s, " "))
}

// Signature fingerprints the content of t for near-duplicate detection.
// Exercise title, exercise instructions and the problem prompt are used
// together; brief and then title only when all of those are empty.
func Signature(t model.Task) string {
	var parts []string
	if t.Exercise != nil {
		if t.Exercise.Title != "" {
			parts = append(parts, t.Exercise.Title)
		}
		if t.Exercise.Instructions != "" {
			parts = append(parts, t.Exercise.Instructions)
		}
	}
	if p, ok := t.Acceptance.Rule.(model.Problem); ok && p.Prompt != "" {
		parts = append(parts, p.Prompt)
	}
	if len(parts) == 0 && t.Brief != "" {
		parts = append(parts, t.Brief)
	}
	if len(parts) == 0 && t.Title != "" {
		parts = append(parts, t.Title)
	}

	sig := []rune(normText(strings.Join(parts, " | ")))
	if len(sig) > signatureMaxRunes {
		sig = sig[:signatureMaxRunes]
	}
	return string(sig)
}
