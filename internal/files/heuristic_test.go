package files

import (
	"strings"
	"testing"
	"time"
)

func TestIsStorageRelated(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		{"show me the logo files", true},
		{"where is the brand folder?", true},
		{"what's the latest activity", true},
		{"can you send the contract document", true},
		{"how are you today", false},
		{"what's on the schedule for tomorrow", false},
	}

	for _, tt := range tests {
		if got := IsStorageRelated(tt.prompt); got != tt.want {
			t.Errorf("IsStorageRelated(%q) = %v, want %v", tt.prompt, got, tt.want)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
		wantOK bool
	}{
		{
			name:   "mention scenario",
			prompt: "<@U0BOT> show me the logo files",
			want:   "me files",
			wantOK: true,
		},
		{
			name:   "recency trigger wins",
			prompt: "what's the latest on the brand folder",
			want:   RecencyQuery,
			wantOK: true,
		},
		{
			name:   "recent trigger",
			prompt: "any recent uploads?",
			want:   RecencyQuery,
			wantOK: true,
		},
		{
			name:   "neighbors of a contents trigger",
			prompt: "open the campaign folder please",
			want:   "campaign please",
			wantOK: true,
		},
		{
			name:   "multiple triggers collect in order",
			prompt: "compare the logo image versions",
			want:   "compare image logo versions",
			wantOK: true,
		},
		{
			name:   "no trigger token",
			prompt: "list everything you have",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BuildQuery(tt.prompt)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatResults(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Name: "old.pdf", Kind: KindFile, Modified: now.AddDate(0, -2, 0)},
		{Name: "Brand Assets", Kind: KindFolder, Modified: now},
		{Name: "logo.png", Kind: KindFile, Modified: now.AddDate(0, -1, 0), SharedLink: "https://share.example/logo"},
		{Name: "untracked.txt", Kind: KindFile},
	}

	out := FormatResults(entries)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}

	// Most recent first, zero timestamp last.
	if !strings.Contains(lines[0], "Brand Assets") {
		t.Errorf("line 0 = %q, want most recent entry first", lines[0])
	}
	if !strings.Contains(lines[3], "untracked.txt") {
		t.Errorf("line 3 = %q, want zero-timestamp entry last", lines[3])
	}

	if !strings.Contains(lines[0], "(folder)") {
		t.Errorf("folder not marked: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[logo.png](https://share.example/logo)") {
		t.Errorf("shared link not rendered as markdown: %q", lines[1])
	}
	if !strings.Contains(lines[0], "(modified: 2026-08-20)") {
		t.Errorf("missing ISO date: %q", lines[0])
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "- ") {
			t.Errorf("line %q is not a bullet", line)
		}
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "No files found." {
		t.Errorf("FormatResults(nil) = %q", got)
	}
}
