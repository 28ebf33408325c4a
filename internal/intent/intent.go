// Package intent classifies an inbound prompt into one of the bot's
// handling modes so the dispatcher can switch on a single tagged value
// instead of chained text matching.
package intent

import (
	"strings"

	"github.com/gilbertlabs/gilbert/internal/files"
)

// Kind tags the handling mode for a prompt.
type Kind int

const (
	// PlainChat forwards the prompt to the assembler unchanged.
	PlainChat Kind = iota
	// ProviderTest pings the named completion provider.
	ProviderTest
	// ListFolders lists the root of the file storage.
	ListFolders
	// SearchFiles searches file storage with the derived query.
	SearchFiles
)

func (k Kind) String() string {
	switch k {
	case ProviderTest:
		return "provider_test"
	case ListFolders:
		return "list_folders"
	case SearchFiles:
		return "search_files"
	default:
		return "plain_chat"
	}
}

// Intent is the classification result. Provider is set for ProviderTest,
// Query for SearchFiles.
type Intent struct {
	Kind     Kind
	Provider string
	Query    string
}

// knownProviders are the names accepted after a "test" keyword.
var knownProviders = []string{"openai"}

// Classify maps a prompt to an Intent. Order matters: an explicit
// provider test wins over everything, a folder-listing request wins
// over a generic file search, and anything storage-related with a
// derivable query becomes a search.
func Classify(prompt string) Intent {
	lowered := strings.ToLower(prompt)

	if name, ok := providerTest(lowered); ok {
		return Intent{Kind: ProviderTest, Provider: name}
	}

	if strings.Contains(lowered, "list folders") || strings.Contains(lowered, "show folders") {
		return Intent{Kind: ListFolders}
	}

	if files.IsStorageRelated(prompt) {
		if query, ok := files.BuildQuery(prompt); ok {
			return Intent{Kind: SearchFiles, Query: query}
		}
	}

	return Intent{Kind: PlainChat}
}

// providerTest recognizes "test <provider>" and "<provider> test".
func providerTest(lowered string) (string, bool) {
	if !strings.Contains(lowered, "test") {
		return "", false
	}
	for _, name := range knownProviders {
		if strings.Contains(lowered, name) {
			return name, true
		}
	}
	return "", false
}
