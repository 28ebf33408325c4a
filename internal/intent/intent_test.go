package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		prompt       string
		wantKind     Kind
		wantProvider string
		wantQuery    string
	}{
		{
			name:         "provider test",
			prompt:       "can you test the openai connection?",
			wantKind:     ProviderTest,
			wantProvider: "openai",
		},
		{
			name:         "provider test reversed",
			prompt:       "openai test please",
			wantKind:     ProviderTest,
			wantProvider: "openai",
		},
		{
			name:     "list folders",
			prompt:   "list folders for me",
			wantKind: ListFolders,
		},
		{
			name:     "show folders",
			prompt:   "show folders",
			wantKind: ListFolders,
		},
		{
			name:      "file search",
			prompt:    "show me the logo files",
			wantKind:  SearchFiles,
			wantQuery: "me files",
		},
		{
			name:      "recency search",
			prompt:    "what's the latest file activity",
			wantKind:  SearchFiles,
			wantQuery: "recent activity",
		},
		{
			name:     "plain chat",
			prompt:   "how should I phrase this email?",
			wantKind: PlainChat,
		},
		{
			name:     "storage word without derivable query stays chat",
			prompt:   "can you show me something",
			wantKind: PlainChat,
		},
		{
			name:     "test without known provider stays chat",
			prompt:   "we should test this idea",
			wantKind: PlainChat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prompt)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantProvider, got.Provider)
			assert.Equal(t, tt.wantQuery, got.Query)
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{PlainChat, "plain_chat"},
		{ProviderTest, "provider_test"},
		{ListFolders, "list_folders"},
		{SearchFiles, "search_files"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
