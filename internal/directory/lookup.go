// Package directory resolves client and project names mentioned in
// free-text prompts against the agency directory sheet.
package directory

import (
	"strings"
)

// Trigger vocabularies for guessing an entity name that is not in the
// directory yet. The token immediately before a trigger word is usually
// the name ("the Acme client", "our rebrand project").
var (
	ClientTriggers  = []string{"client", "company", "business"}
	ProjectTriggers = []string{"project", "campaign", "work"}
)

// Match is the result of an entity lookup. Known is false when the name is
// a best-effort guess from trigger-word adjacency rather than a directory
// entry.
type Match struct {
	Name  string
	Known bool
}

// FindEntity scans the prompt for a known name, then falls back to the
// trigger-word guess. Known-name matching is a case-insensitive substring
// containment test, returning the first match in the order of known, not
// by relevance. The boolean result is false when neither strategy found
// anything.
func FindEntity(prompt string, known []string, triggers []string) (Match, bool) {
	lowered := strings.ToLower(prompt)

	for _, name := range known {
		if name == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(name)) {
			return Match{Name: name, Known: true}, true
		}
	}

	if guess := guessFromTriggers(prompt, triggers); guess != "" {
		return Match{Name: guess, Known: false}, true
	}

	return Match{}, false
}

// guessFromTriggers returns the token immediately preceding the first
// trigger word in the prompt. A trigger word with no preceding token
// yields no guess.
func guessFromTriggers(prompt string, triggers []string) string {
	tokens := tokenize(prompt)

	for i, tok := range tokens {
		if !containsFold(triggers, tok) {
			continue
		}
		if i == 0 {
			return ""
		}
		return tokens[i-1]
	}

	return ""
}

// tokenize splits the prompt into whitespace-separated tokens with
// surrounding punctuation stripped. Case is preserved so a guessed name
// keeps its original spelling.
func tokenize(prompt string) []string {
	fields := strings.Fields(prompt)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, ".,!?;:'\"()")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func containsFold(set []string, tok string) bool {
	for _, s := range set {
		if strings.EqualFold(s, tok) {
			return true
		}
	}
	return false
}
