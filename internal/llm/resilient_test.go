package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider returns canned responses or failures.
type fakeProvider struct {
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) Ping(ctx context.Context) error { return f.err }
func (f *fakeProvider) Name() string                   { return "fake" }

func TestResilient_PassThrough(t *testing.T) {
	inner := &fakeProvider{reply: "hello"}
	r := NewResilient(inner, ResilientConfig{MaxFailures: 3, RecoveryTimeout: time.Second}, nil)

	got, err := r.Complete(context.Background(), []Message{UserMessage("hi")}, 100)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete() = %q, want %q", got, "hello")
	}
}

func TestResilient_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeProvider{err: &ProviderError{Provider: "fake", Err: errors.New("boom")}}
	r := NewResilient(inner, ResilientConfig{MaxFailures: 3, RecoveryTimeout: time.Minute}, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := r.Complete(ctx, nil, 0); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	if r.State() != "open" {
		t.Fatalf("expected breaker open after 3 failures, got %q", r.State())
	}

	callsBefore := inner.calls
	_, err := r.Complete(ctx, nil, 0)
	if err == nil {
		t.Fatal("expected error while breaker open")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("expected ProviderError while open, got %T", err)
	}
	if inner.calls != callsBefore {
		t.Error("breaker-open call should not reach the backend")
	}
}

func TestResilient_RateLimited(t *testing.T) {
	inner := &fakeProvider{reply: "ok"}
	r := NewResilient(inner, ResilientConfig{
		MaxFailures:       3,
		RecoveryTimeout:   time.Second,
		RequestsPerSecond: 0.001, // effectively one call per test run
		Burst:             1,
	}, nil)

	ctx := context.Background()
	if _, err := r.Complete(ctx, nil, 0); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	_, err := r.Complete(ctx, nil, 0)
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("rate-limit rejection should be a ProviderError, got %T", err)
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	base := errors.New("quota exceeded")
	err := wrapErr("openai", base)

	if !errors.Is(err, base) {
		t.Error("expected wrapped error to match base via errors.Is")
	}
	if wrapErr("openai", nil) != nil {
		t.Error("wrapErr(nil) should be nil")
	}
}
