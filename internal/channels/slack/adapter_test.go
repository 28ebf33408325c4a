package slack

import (
	"testing"

	"github.com/gilbertlabs/gilbert/internal/channels"
	"github.com/gilbertlabs/gilbert/internal/config"
)

func TestFormatContent(t *testing.T) {
	a := New(config.SlackConfig{}, nil)

	tests := []struct {
		name   string
		in     string
		format channels.MessageFormat
		want   string
	}{
		{
			name:   "markdown bold converts to mrkdwn",
			in:     "here is the **logo**",
			format: channels.FormatMarkdown,
			want:   "here is the *logo*",
		},
		{
			name:   "plain passes through",
			in:     "just text **untouched**",
			format: channels.FormatPlain,
			want:   "just text **untouched**",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.formatContent(tt.in, tt.format); got != tt.want {
				t.Errorf("formatContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMentionsBot(t *testing.T) {
	a := New(config.SlackConfig{}, nil)
	a.botUserID = "U0BOT"

	tests := []struct {
		text string
		want bool
	}{
		{"<@U0BOT> hello", true},
		{"hello <@U0BOT>", true},
		{"<@U0OTHER> hello", false},
		{"no mention", false},
	}

	for _, tt := range tests {
		if got := a.mentionsBot(tt.text); got != tt.want {
			t.Errorf("mentionsBot(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestEnqueueAfterStopDoesNotPanic(t *testing.T) {
	a := New(config.SlackConfig{Enabled: true}, nil)
	a.running = true

	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	// An event handler racing shutdown drops the message instead of
	// sending on the closed stream.
	a.enqueue(&channels.InboundMessage{ID: "1000.1", Content: "late"})

	if _, ok := <-a.Incoming(); ok {
		t.Error("stream should be closed with nothing queued")
	}
}

func TestStartRequiresTokens(t *testing.T) {
	a := New(config.SlackConfig{Enabled: true}, nil)
	if err := a.Start(t.Context()); err == nil {
		t.Error("Start() should fail without tokens")
	}
}
