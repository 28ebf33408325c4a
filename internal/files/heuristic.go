// Package files implements the file-storage search heuristic and the
// storage client it feeds. The heuristic decides whether a prompt is
// about stored files and derives a search query from the words around
// the file-related tokens.
package files

import (
	"fmt"
	"sort"
	"strings"
)

// RecencyQuery is the search query used when the prompt asks about
// recent activity rather than a specific file.
const RecencyQuery = "recent activity"

// storageVocabulary flags a prompt as file-storage related. Broad on
// purpose; BuildQuery narrows to the contents triggers below.
var storageVocabulary = []string{
	"file", "document", "link", "folder", "list", "show", "directory",
	"files", "documents", "contents", "brand", "assets", "logo", "image",
	"material", "activity", "latest",
}

// contentsTriggers are the tokens whose neighbors form the search query.
var contentsTriggers = []string{
	"folder", "file", "document", "brand", "asset", "logo", "image", "material",
}

// recencyTriggers switch the query to RecencyQuery.
var recencyTriggers = []string{"latest", "recent", "activity"}

// stopwords are dropped before adjacency so "the logo files" yields the
// word before "the", not "the" itself.
var stopwords = []string{"the", "a", "an"}

// IsStorageRelated reports whether any prompt token belongs to the
// storage vocabulary.
func IsStorageRelated(prompt string) bool {
	for _, tok := range tokenize(prompt) {
		if containsFold(storageVocabulary, tok) {
			return true
		}
	}
	return false
}

// BuildQuery derives a file-search query from the prompt. Recency
// triggers win and return the fixed RecencyQuery. Otherwise the tokens
// immediately before and after every contents trigger are collected in
// order and space-joined. The boolean result is false when no trigger
// token is present.
func BuildQuery(prompt string) (string, bool) {
	tokens := tokenize(prompt)

	for _, tok := range tokens {
		if containsFold(recencyTriggers, tok) {
			return RecencyQuery, true
		}
	}

	var parts []string
	for i, tok := range tokens {
		if !containsFold(contentsTriggers, tok) {
			continue
		}
		if i > 0 {
			parts = append(parts, tokens[i-1])
		}
		if i+1 < len(tokens) {
			parts = append(parts, tokens[i+1])
		}
	}

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// FormatResults renders entries as a bulleted list, most recently
// modified first. Entries with no timestamp sort last. Shared links
// render as markdown links and folders are marked as such.
func FormatResults(entries []Entry) string {
	if len(entries) == 0 {
		return "No files found."
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Modified, sorted[j].Modified
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.After(b)
	})

	var sb strings.Builder
	for _, e := range sorted {
		sb.WriteString("- ")
		name := e.Name
		if e.SharedLink != "" {
			name = fmt.Sprintf("[%s](%s)", e.Name, e.SharedLink)
		}
		sb.WriteString(name)
		if e.Kind == KindFolder {
			sb.WriteString(" (folder)")
		}
		if !e.Modified.IsZero() {
			fmt.Fprintf(&sb, " (modified: %s)", e.Modified.UTC().Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// tokenize lowercases and splits the prompt, stripping punctuation,
// mention tokens like <@U123>, and stopwords.
func tokenize(prompt string) []string {
	fields := strings.Fields(strings.ToLower(prompt))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "<@") {
			continue
		}
		tok := strings.Trim(f, ".,!?;:'\"()<>")
		if tok == "" || containsFold(stopwords, tok) {
			continue
		}
		tokens = append(tokens, tok)
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
