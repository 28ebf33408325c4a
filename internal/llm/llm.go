// Package llm defines the completion-provider interface Gilbert talks to
// and the implementations behind it.
package llm

import (
	"context"
	"fmt"
)

// Message roles as the completion API expects them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the ordered completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Provider is the interface for completion backends.
type Provider interface {
	// Complete sends the ordered message list and returns the generated text.
	Complete(ctx context.Context, messages []Message, maxTokens int) (string, error)

	// Ping checks provider reachability.
	Ping(ctx context.Context) error

	// Name identifies the backend for logging and health reporting.
	Name() string
}

// ProviderError wraps any external completion failure (network, auth,
// quota, malformed response). Callers recover from it locally with a
// fallback value; it is never surfaced to an end user.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapErr converts an error into a ProviderError, passing nil through.
func wrapErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
