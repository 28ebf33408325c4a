// Package dispatcher routes inbound messages to the right handler: it
// decides whether the bot should answer at all, classifies the prompt,
// and posts the reply back through the originating channel.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/gilbertlabs/gilbert/internal/assembler"
	"github.com/gilbertlabs/gilbert/internal/channels"
	"github.com/gilbertlabs/gilbert/internal/conversation"
	"github.com/gilbertlabs/gilbert/internal/files"
	"github.com/gilbertlabs/gilbert/internal/intent"
	"github.com/gilbertlabs/gilbert/internal/llm"
)

// maxTrackedThreads bounds the tracked-thread set.
const maxTrackedThreads = 256

// sharedLinkLimit caps how many search results get a resolved link.
const sharedLinkLimit = 5

var mentionPattern = regexp.MustCompile(`<@[^>]+>`)

// Generator produces replies and note extractions.
type Generator interface {
	Reply(ctx context.Context, key conversation.Key, prompt string) string
	ExtractNote(ctx context.Context, text string) (string, bool)
}

// Sender posts outbound messages through a named channel.
type Sender interface {
	SendToChannel(channelName, channelID string, msg *channels.OutboundMessage) error
}

// NoteStore persists extracted notes.
type NoteStore interface {
	AppendNote(ctx context.Context, author, note string) error
}

// Deps are the dispatcher's collaborators. Files, Provider and Notes
// are optional.
type Deps struct {
	Generator Generator
	Sender    Sender
	Cache     *conversation.Cache
	Files     files.Client
	Provider  llm.Provider
	Notes     NoteStore
	Logger    *slog.Logger
}

// Dispatcher consumes inbound messages and answers the eligible ones.
// Each dispatch runs to completion; errors degrade to an apology post,
// never a crash, and nothing is retried.
type Dispatcher struct {
	deps Deps

	mu      sync.Mutex
	tracked map[threadKey]struct{}
	order   []threadKey
}

type threadKey struct {
	ChannelID string
	ThreadTS  string
}

// New creates a dispatcher.
func New(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "dispatcher")
	return &Dispatcher{
		deps:    deps,
		tracked: make(map[threadKey]struct{}),
	}
}

// Run consumes messages until the stream closes or ctx is cancelled.
// Dispatches for different conversations may overlap.
func (d *Dispatcher) Run(ctx context.Context, incoming <-chan *channels.InboundMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			if !d.eligible(msg) {
				continue
			}
			go d.Dispatch(ctx, msg)
		}
	}
}

// eligible applies the trigger rules: never answer other bots, answer
// direct mentions, and answer thread replies only in threads the bot is
// already part of.
func (d *Dispatcher) eligible(msg *channels.InboundMessage) bool {
	if msg.BotID != "" {
		return false
	}
	if msg.Mention {
		return true
	}
	if msg.ThreadTS != "" {
		return d.isTracked(msg.ChannelID, msg.ThreadTS)
	}
	return false
}

// Dispatch handles one eligible message end to end.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *channels.InboundMessage) {
	prompt := stripMentions(msg.Content)
	if prompt == "" {
		return
	}

	key := conversation.Key{UserID: msg.UserID, ChannelID: msg.ChannelID}
	classified := intent.Classify(prompt)

	d.deps.Logger.Debug("dispatching",
		"channel", msg.ChannelName,
		"user", msg.UserID,
		"intent", classified.Kind.String(),
	)

	var reply string
	switch classified.Kind {
	case intent.ProviderTest:
		reply = d.testProvider(ctx, classified.Provider)
	case intent.ListFolders:
		reply = d.listFolders(ctx)
	case intent.SearchFiles:
		reply = d.searchFiles(ctx, classified.Query)
	default:
		reply = d.deps.Generator.Reply(ctx, key, prompt)
	}

	d.deps.Cache.Append(key, conversation.RoleUser, prompt)
	d.deps.Cache.Append(key, conversation.RoleAssistant, reply)

	if classified.Kind == intent.PlainChat {
		d.saveNote(ctx, msg.UserID, prompt)
	}

	d.post(msg, reply)
	d.track(msg)
}

// testProvider pings the named completion provider.
func (d *Dispatcher) testProvider(ctx context.Context, name string) string {
	if d.deps.Provider == nil {
		return fmt.Sprintf("I don't have a provider called %q configured.", name)
	}
	if err := d.deps.Provider.Ping(ctx); err != nil {
		d.deps.Logger.Warn("provider test failed", "provider", name, "error", err)
		return fmt.Sprintf("The %s provider is not responding right now.", name)
	}
	return fmt.Sprintf("The %s provider is up and responding.", name)
}

// listFolders lists the storage root.
func (d *Dispatcher) listFolders(ctx context.Context) string {
	if d.deps.Files == nil {
		return "File storage isn't connected."
	}
	entries, err := d.deps.Files.ListFolder(ctx, "")
	if err != nil {
		d.deps.Logger.Warn("folder listing failed", "error", err)
		return assembler.Apology
	}
	return files.FormatResults(entries)
}

// searchFiles runs a storage search and resolves shared links for the
// top results. Link failures leave the entry without a link.
func (d *Dispatcher) searchFiles(ctx context.Context, query string) string {
	if d.deps.Files == nil {
		return "File storage isn't connected."
	}
	entries, err := d.deps.Files.Search(ctx, query)
	if err != nil {
		d.deps.Logger.Warn("file search failed", "query", query, "error", err)
		return assembler.Apology
	}

	for i := range entries {
		if i >= sharedLinkLimit {
			break
		}
		if entries[i].Kind != files.KindFile {
			continue
		}
		link, err := d.deps.Files.SharedLink(ctx, entries[i].Path)
		if err != nil {
			d.deps.Logger.Debug("shared link unavailable", "path", entries[i].Path, "error", err)
			continue
		}
		entries[i].SharedLink = link
	}

	return files.FormatResults(entries)
}

// saveNote extracts and persists anything worth remembering from the
// prompt. Best effort; failures are logged and dropped.
func (d *Dispatcher) saveNote(ctx context.Context, author, prompt string) {
	if d.deps.Notes == nil {
		return
	}
	note, ok := d.deps.Generator.ExtractNote(ctx, prompt)
	if !ok {
		return
	}
	if err := d.deps.Notes.AppendNote(ctx, author, note); err != nil {
		d.deps.Logger.Warn("failed to save note", "error", err)
	}
}

// post sends the reply, in-thread when the triggering message was in a
// thread. A failed post gets one best-effort apology attempt.
func (d *Dispatcher) post(msg *channels.InboundMessage, reply string) {
	out := &channels.OutboundMessage{
		Content:  reply,
		ThreadTS: msg.ThreadTS,
		Format:   channels.FormatMarkdown,
	}

	if err := d.deps.Sender.SendToChannel(msg.ChannelName, msg.ChannelID, out); err != nil {
		d.deps.Logger.Error("failed to post reply", "channel", msg.ChannelName, "error", err)
		fallback := &channels.OutboundMessage{Content: assembler.Apology, ThreadTS: msg.ThreadTS}
		if err := d.deps.Sender.SendToChannel(msg.ChannelName, msg.ChannelID, fallback); err != nil {
			d.deps.Logger.Error("failed to post apology", "channel", msg.ChannelName, "error", err)
		}
	}
}

// track remembers the thread this exchange belongs to so later replies
// in it stay eligible. Messages outside threads root a new thread at
// their own timestamp.
func (d *Dispatcher) track(msg *channels.InboundMessage) {
	ts := msg.ThreadTS
	if ts == "" {
		ts = msg.ID
	}
	if ts == "" {
		return
	}

	key := threadKey{ChannelID: msg.ChannelID, ThreadTS: ts}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tracked[key]; ok {
		return
	}
	d.tracked[key] = struct{}{}
	d.order = append(d.order, key)

	for len(d.order) > maxTrackedThreads {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.tracked, oldest)
	}
}

func (d *Dispatcher) isTracked(channelID, threadTS string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tracked[threadKey{ChannelID: channelID, ThreadTS: threadTS}]
	return ok
}

// TrackedThreads reports how many threads are currently tracked.
func (d *Dispatcher) TrackedThreads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tracked)
}

// stripMentions removes mention tokens so the prompt reads naturally.
func stripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}
