// Package console provides a local terminal channel for credential-free
// chat with Gilbert.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/gilbertlabs/gilbert/internal/channels"
)

// LocalUserID identifies the console user in conversation keys.
const LocalUserID = "local"

// Adapter implements channels.Channel over a bubbletea program.
type Adapter struct {
	logger   *slog.Logger
	incoming chan *channels.InboundMessage
	prompts  chan string

	mu      sync.RWMutex
	program *tea.Program
	running bool
	closed  bool
	cancel  context.CancelFunc
}

// New creates a new console adapter
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		logger:   logger.With("channel", "console"),
		incoming: make(chan *channels.InboundMessage, 100),
		prompts:  make(chan string, 10),
	}
}

// Name returns the channel name
func (a *Adapter) Name() string {
	return "console"
}

// IsEnabled returns true; the console is only constructed when requested
func (a *Adapter) IsEnabled() bool {
	return true
}

// SupportsThreading returns false - the console is a single flat chat
func (a *Adapter) SupportsThreading() bool {
	return false
}

// SupportsMarkdown returns false - replies render as plain text
func (a *Adapter) SupportsMarkdown() bool {
	return false
}

// Start launches the terminal UI and begins forwarding prompts.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true

	a.program = tea.NewProgram(
		NewModel(a.prompts),
		tea.WithAltScreen(),
	)

	go func() {
		<-ctx.Done()
		a.program.Quit()
	}()

	go a.forwardPrompts(ctx)

	// When the UI exits (quit key or error) the adapter's stream ends,
	// which the router surfaces to the dispatcher as shutdown.
	go func() {
		if _, err := a.program.Run(); err != nil {
			a.logger.Error("console UI error", "error", err)
		}
		cancel()
		a.closeIncoming()
	}()

	a.logger.Info("Console adapter started")
	return nil
}

// forwardPrompts turns typed prompts into inbound messages. Console
// prompts always address the bot, so Mention is set.
func (a *Adapter) forwardPrompts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case content := <-a.prompts:
			a.deliver(&channels.InboundMessage{
				ID:          uuid.NewString(),
				UserID:      LocalUserID,
				ChannelName: "console",
				ChannelID:   "console",
				Content:     content,
				Mention:     true,
				ReceivedAt:  time.Now(),
			})
		}
	}
}

// deliver enqueues under the lifecycle lock so it never races the
// stream closing.
func (a *Adapter) deliver(msg *channels.InboundMessage) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}
	select {
	case a.incoming <- msg:
	default:
		a.logger.Warn("Incoming message channel full, dropping prompt")
	}
}

// closeIncoming ends the adapter's stream exactly once.
func (a *Adapter) closeIncoming() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.closed {
		a.closed = true
		a.running = false
		close(a.incoming)
	}
}

// Stop shuts down the terminal UI. Safe to call after the UI has
// already quit on its own.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if !a.running && a.closed {
		a.mu.Unlock()
		return nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.running = false
	a.mu.Unlock()

	a.closeIncoming()
	a.logger.Info("Console adapter stopped")
	return nil
}

// Incoming returns the channel for receiving messages
func (a *Adapter) Incoming() <-chan *channels.InboundMessage {
	return a.incoming
}

// SendMessage displays a reply in the terminal UI
func (a *Adapter) SendMessage(channelID string, msg *channels.OutboundMessage) error {
	a.mu.RLock()
	program := a.program
	a.mu.RUnlock()

	if program == nil {
		return fmt.Errorf("console not started")
	}

	program.Send(ChatResponseMsg{Content: msg.Content})
	return nil
}
