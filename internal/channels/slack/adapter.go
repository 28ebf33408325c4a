// Package slack provides the Slack channel adapter for Gilbert
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gilbertlabs/gilbert/internal/channels"
	"github.com/gilbertlabs/gilbert/internal/config"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Adapter implements the channels.Channel interface for Slack
type Adapter struct {
	config   config.SlackConfig
	client   *slack.Client
	socket   *socketmode.Client
	logger   *slog.Logger
	incoming chan *channels.InboundMessage

	// State
	botUserID string
	running   bool
	closed    bool
	mu        sync.RWMutex
	cancel    context.CancelFunc
}

// New creates a new Slack adapter
func New(cfg config.SlackConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		config:   cfg,
		logger:   logger.With("channel", "slack"),
		incoming: make(chan *channels.InboundMessage, 100),
	}
}

// Name returns the channel name
func (a *Adapter) Name() string {
	return "slack"
}

// IsEnabled returns whether the channel is enabled
func (a *Adapter) IsEnabled() bool {
	return a.config.Enabled
}

// SupportsThreading returns true - Slack has thread support
func (a *Adapter) SupportsThreading() bool {
	return true
}

// SupportsMarkdown returns true - Slack renders mrkdwn
func (a *Adapter) SupportsMarkdown() bool {
	return true
}

// BotUserID returns the bot's resolved user ID. Empty until Start has
// authenticated.
func (a *Adapter) BotUserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.botUserID
}

// Start initializes and starts the Slack adapter
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}

	if a.config.Token == "" {
		return fmt.Errorf("slack bot token is required")
	}
	if a.config.AppToken == "" {
		return fmt.Errorf("slack app token is required for socket mode")
	}

	// Create Slack client with bot token
	a.client = slack.New(
		a.config.Token,
		slack.OptionAppLevelToken(a.config.AppToken),
	)

	// Resolve our own user ID so mention matching is exact, not a name
	// heuristic.
	auth, err := a.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test failed: %w", err)
	}
	a.botUserID = auth.UserID

	// Create Socket Mode client for real-time events
	a.socket = socketmode.New(
		a.client,
		socketmode.OptionDebug(false),
	)

	// Create cancellable context
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true

	// Start event handler
	go a.handleEvents(ctx)

	// Start Socket Mode connection
	go func() {
		if err := a.socket.Run(); err != nil {
			a.logger.Error("Socket Mode error", "error", err)
		}
	}()

	a.logger.Info("Slack adapter started", "bot_user_id", a.botUserID)
	return nil
}

// Stop gracefully shuts down the Slack adapter. Holding the write lock
// across the close keeps it from racing an in-flight enqueue.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	a.running = false
	a.closed = true
	close(a.incoming)
	a.logger.Info("Slack adapter stopped")
	return nil
}

// Incoming returns the channel for receiving messages
func (a *Adapter) Incoming() <-chan *channels.InboundMessage {
	return a.incoming
}

// SendMessage posts a message to a Slack channel, in-thread when the
// outbound message carries a thread timestamp.
func (a *Adapter) SendMessage(channelID string, msg *channels.OutboundMessage) error {
	if a.client == nil {
		return fmt.Errorf("slack client not initialized")
	}

	opts := []slack.MsgOption{
		slack.MsgOptionText(a.formatContent(msg.Content, msg.Format), false),
	}

	if msg.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadTS))
	}

	_, _, err := a.client.PostMessage(channelID, opts...)
	if err != nil {
		a.logger.Error("Failed to send message", "error", err, "channel", channelID)
		return fmt.Errorf("failed to send slack message: %w", err)
	}

	return nil
}

// handleEvents processes incoming Socket Mode events
func (a *Adapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-a.socket.Events:
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				a.handleEventsAPI(evt)
			case socketmode.EventTypeConnecting:
				a.logger.Debug("Connecting to Slack...")
			case socketmode.EventTypeConnected:
				a.logger.Info("Connected to Slack")
			case socketmode.EventTypeConnectionError:
				a.logger.Error("Slack connection error")
			}
		}
	}
}

// handleEventsAPI processes Events API payloads
func (a *Adapter) handleEventsAPI(evt socketmode.Event) {
	eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}

	a.socket.Ack(*evt.Request)

	switch eventsAPIEvent.Type {
	case slackevents.CallbackEvent:
		a.handleCallbackEvent(eventsAPIEvent)
	}
}

// handleCallbackEvent processes callback events (messages and mentions).
// A direct mention arrives twice, once as a MessageEvent and once as an
// AppMentionEvent; the MessageEvent copy is dropped so the dispatcher
// sees each prompt exactly once.
func (a *Adapter) handleCallbackEvent(event slackevents.EventsAPIEvent) {
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Ignore bot messages and message changes
		if ev.BotID != "" || ev.SubType != "" {
			return
		}
		if ev.User == a.BotUserID() {
			return
		}
		if a.mentionsBot(ev.Text) {
			return
		}

		a.enqueue(&channels.InboundMessage{
			ID:          ev.TimeStamp,
			UserID:      ev.User,
			ChannelName: "slack",
			ChannelID:   ev.Channel,
			Content:     ev.Text,
			ThreadTS:    ev.ThreadTimeStamp,
			ReceivedAt:  time.Now(),
		})

	case *slackevents.AppMentionEvent:
		if ev.User == a.BotUserID() {
			return
		}

		a.enqueue(&channels.InboundMessage{
			ID:          ev.TimeStamp,
			UserID:      ev.User,
			ChannelName: "slack",
			ChannelID:   ev.Channel,
			Content:     ev.Text,
			ThreadTS:    ev.ThreadTimeStamp,
			Mention:     true,
			ReceivedAt:  time.Now(),
		})
	}
}

func (a *Adapter) enqueue(msg *channels.InboundMessage) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}
	select {
	case a.incoming <- msg:
	default:
		a.logger.Warn("Incoming message channel full, dropping message")
	}
}

// mentionsBot checks for an exact <@botUserID> token in the text.
func (a *Adapter) mentionsBot(text string) bool {
	id := a.BotUserID()
	if id == "" {
		return false
	}
	return strings.Contains(text, "<@"+id+">")
}

// formatContent formats message content based on format type
func (a *Adapter) formatContent(content string, format channels.MessageFormat) string {
	switch format {
	case channels.FormatMarkdown:
		// Slack uses mrkdwn which is similar but not identical to Markdown
		// Basic conversion: **bold** -> *bold*, _italic_ stays same
		return strings.ReplaceAll(content, "**", "*")
	default:
		return content
	}
}
