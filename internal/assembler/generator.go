// Package assembler builds the completion request for each prompt: it
// stitches system instructions, conversation history, directory and
// memory context, and a task snapshot into one ordered message list,
// then asks the completion provider for a reply. Storage prompts never
// reach it; the dispatcher answers those with search results directly.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gilbertlabs/gilbert/internal/conversation"
	"github.com/gilbertlabs/gilbert/internal/directory"
	"github.com/gilbertlabs/gilbert/internal/llm"
	"github.com/gilbertlabs/gilbert/internal/memory"
	"github.com/gilbertlabs/gilbert/internal/tasks"
)

// SystemInstructions is the fixed persona for every completion.
const SystemInstructions = "You are Gilbert AI, a helpful and friendly assistant for a creative agency. " +
	"You help with client communication, project management, and creative tasks. " +
	"You have a conversational tone and remember important information from conversations. " +
	"If you don't know something, say so and offer to help find the answer."

// Apology is returned whenever the provider call fails. Callers never
// see the underlying error.
const Apology = "I apologize, but I'm having trouble processing that request right now."

// extractionInstructions drive ExtractNote.
const extractionInstructions = "Extract important information from the text that should be remembered. " +
	"Focus on facts, decisions, deadlines, and key details. " +
	"Return only the important information in a concise format."

const (
	recallLimit      = 5
	extractMaxTokens = 150
)

// recallTriggers flag a prompt as asking for remembered notes.
var recallTriggers = []string{"remember", "recall", "remind", "notes", "noted"}

// Directory answers entity lookups against the agency directory.
type Directory interface {
	MatchClient(prompt string) (directory.Match, bool)
	MatchProject(prompt string) (directory.Match, bool)
	ClientByName(name string) (directory.Client, bool)
	ProjectByName(name string) (directory.Project, bool)
}

// Recaller searches the memory store. Lookup failures degrade to an
// empty result inside the store.
type Recaller interface {
	Recall(ctx context.Context, query string, limit int) []memory.Record
}

// TaskSource lists open tracker tasks.
type TaskSource interface {
	ListOpenTasks(ctx context.Context, project string) ([]tasks.Task, error)
}

// Deps are the generator's collaborators. Provider and Cache are
// required; the rest are optional and skip their section when nil.
type Deps struct {
	Provider  llm.Provider
	Cache     *conversation.Cache
	Directory Directory
	Memory    Recaller
	Tasks     TaskSource
	MaxTokens int
	Logger    *slog.Logger
}

// Generator produces replies and note extractions.
type Generator struct {
	deps Deps
}

// New creates a generator. A nil logger falls back to slog.Default.
func New(deps Deps) *Generator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "assembler")
	return &Generator{deps: deps}
}

// Reply assembles the completion request for prompt and returns the
// provider's text. Assembly order is fixed: system instructions, prior
// turns, directory context, memory recall, task snapshot, then the
// prompt verbatim. Any provider failure degrades to the fixed apology;
// context sections that fail are omitted.
func (g *Generator) Reply(ctx context.Context, key conversation.Key, prompt string) string {
	messages := []llm.Message{llm.SystemMessage(SystemInstructions)}

	for _, turn := range g.deps.Cache.Get(key) {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	if section := g.directoryContext(prompt); section != "" {
		messages = append(messages, llm.SystemMessage(section))
	}
	if section := g.memoryContext(ctx, prompt); section != "" {
		messages = append(messages, llm.SystemMessage(section))
	}
	if section := g.tasksContext(ctx, prompt); section != "" {
		messages = append(messages, llm.SystemMessage(section))
	}

	messages = append(messages, llm.UserMessage(prompt))

	reply, err := g.deps.Provider.Complete(ctx, messages, g.deps.MaxTokens)
	if err != nil {
		g.deps.Logger.Error("completion failed", "error", err)
		return Apology
	}
	return reply
}

// ExtractNote asks the provider to distill text into a memorable note.
// The boolean result is false on failure or an empty extraction.
func (g *Generator) ExtractNote(ctx context.Context, text string) (string, bool) {
	messages := []llm.Message{
		llm.SystemMessage(extractionInstructions),
		llm.UserMessage(text),
	}

	note, err := g.deps.Provider.Complete(ctx, messages, extractMaxTokens)
	if err != nil {
		g.deps.Logger.Warn("note extraction failed", "error", err)
		return "", false
	}

	note = strings.TrimSpace(note)
	if note == "" {
		return "", false
	}
	return note, true
}

// directoryContext renders the client and project lookups, including
// unknown-entity notices for trigger-word guesses.
func (g *Generator) directoryContext(prompt string) string {
	if g.deps.Directory == nil {
		return ""
	}

	var lines []string
	if match, ok := g.deps.Directory.MatchClient(prompt); ok {
		if match.Known {
			if client, found := g.deps.Directory.ClientByName(match.Name); found {
				lines = append(lines, client.Describe())
			}
		} else {
			lines = append(lines, fmt.Sprintf("The prompt mentions a client %q that is not in the directory.", match.Name))
		}
	}
	if match, ok := g.deps.Directory.MatchProject(prompt); ok {
		if match.Known {
			if project, found := g.deps.Directory.ProjectByName(match.Name); found {
				lines = append(lines, project.Describe())
			}
		} else {
			lines = append(lines, fmt.Sprintf("The prompt mentions a project %q that is not in the directory.", match.Name))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return "Directory context:\n" + strings.Join(lines, "\n")
}

// memoryContext recalls stored notes when the prompt asks for them.
func (g *Generator) memoryContext(ctx context.Context, prompt string) string {
	if g.deps.Memory == nil || !asksToRecall(prompt) {
		return ""
	}

	records := g.deps.Memory.Recall(ctx, prompt, recallLimit)
	if len(records) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Remembered notes:\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "- %s\n", rec.Note)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// tasksContext includes the open-task snapshot for task prompts.
func (g *Generator) tasksContext(ctx context.Context, prompt string) string {
	if g.deps.Tasks == nil || !tasks.IsTaskRelated(prompt) {
		return ""
	}

	open, err := g.deps.Tasks.ListOpenTasks(ctx, "")
	if err != nil {
		g.deps.Logger.Warn("task listing failed", "error", err)
		return ""
	}
	if len(open) == 0 {
		return ""
	}
	return "Open tasks:\n" + tasks.FormatTasks(open)
}

func asksToRecall(prompt string) bool {
	lowered := strings.ToLower(prompt)
	for _, w := range recallTriggers {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
