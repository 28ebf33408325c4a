package conversation

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendAndGet(t *testing.T) {
	c := NewCache(10)
	key := Key{UserID: "U1", ChannelID: "C1"}

	c.Append(key, RoleUser, "hello")
	c.Append(key, RoleAssistant, "hi there")

	turns := c.Get(key)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "hello" {
		t.Errorf("turn 0 = %+v, want user/hello", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "hi there" {
		t.Errorf("turn 1 = %+v, want assistant/hi there", turns[1])
	}
}

func TestGetMissingKey(t *testing.T) {
	c := NewCache(10)
	turns := c.Get(Key{UserID: "nobody", ChannelID: "nowhere"})
	if len(turns) != 0 {
		t.Errorf("expected empty sequence for missing key, got %d turns", len(turns))
	}
}

func TestFIFOEviction(t *testing.T) {
	c := NewCache(4)
	key := Key{UserID: "U1", ChannelID: "C1"}

	for i := 0; i < 7; i++ {
		c.Append(key, RoleUser, fmt.Sprintf("msg-%d", i))
	}

	turns := c.Get(key)
	if len(turns) != 4 {
		t.Fatalf("expected exactly cap turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("msg-%d", i+3)
		if turn.Content != want {
			t.Errorf("turn %d = %q, want %q", i, turn.Content, want)
		}
	}
}

// Three exchanges fit under a cap of 10; a fourth exchange still fits.
func TestUnderCapKeepsEverything(t *testing.T) {
	c := NewCache(10)
	key := Key{UserID: "U1", ChannelID: "C1"}

	for i := 0; i < 3; i++ {
		c.Append(key, RoleUser, fmt.Sprintf("q%d", i))
		c.Append(key, RoleAssistant, fmt.Sprintf("a%d", i))
	}
	if got := c.Len(key); got != 6 {
		t.Fatalf("after 3 exchanges Len = %d, want 6", got)
	}

	c.Append(key, RoleUser, "q3")
	c.Append(key, RoleAssistant, "a3")

	turns := c.Get(key)
	if len(turns) != 8 {
		t.Fatalf("after 4 exchanges len = %d, want 8 (still under cap)", len(turns))
	}
	if turns[0].Content != "q0" || turns[7].Content != "a3" {
		t.Errorf("order lost: first=%q last=%q", turns[0].Content, turns[7].Content)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	c := NewCache(2)
	a := Key{UserID: "U1", ChannelID: "C1"}
	b := Key{UserID: "U1", ChannelID: "C2"}

	c.Append(a, RoleUser, "in channel one")
	c.Append(b, RoleUser, "in channel two")

	if got := c.Get(a)[0].Content; got != "in channel one" {
		t.Errorf("key a = %q", got)
	}
	if got := c.Get(b)[0].Content; got != "in channel two" {
		t.Errorf("key b = %q", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := NewCache(5)
	key := Key{UserID: "U1", ChannelID: "C1"}
	c.Append(key, RoleUser, "original")

	turns := c.Get(key)
	turns[0].Content = "mutated"

	if got := c.Get(key)[0].Content; got != "original" {
		t.Errorf("cache content changed through returned slice: %q", got)
	}
}

func TestNonPositiveCapFallsBack(t *testing.T) {
	c := NewCache(0)
	if c.MaxTurns() != DefaultMaxTurns {
		t.Errorf("MaxTurns = %d, want %d", c.MaxTurns(), DefaultMaxTurns)
	}
}

func TestConcurrentAppends(t *testing.T) {
	c := NewCache(10)
	key := Key{UserID: "U1", ChannelID: "C1"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Append(key, RoleUser, fmt.Sprintf("m%d", n))
		}(i)
	}
	wg.Wait()

	if got := c.Len(key); got != 10 {
		t.Errorf("after concurrent appends Len = %d, want exactly the cap", got)
	}
}
