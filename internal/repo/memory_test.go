package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polemos-ai/polemos/internal/debate"
)

func TestMemRepo_ConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	r := NewMemRepo(WithTTL(60*time.Minute), WithClock(clock))

	conv, err := r.CreateConversation(ctx, "God exists", debate.StanceCon)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ID == 0 || conv.Stance != debate.StanceCon {
		t.Fatalf("conversation = %+v", conv)
	}
	if want := now.Add(60 * time.Minute); !conv.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", conv.ExpiresAt, want)
	}

	got, err := r.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.Topic != "God exists" {
		t.Errorf("Topic = %q", got.Topic)
	}

	if _, err := r.GetConversation(ctx, 999); !errors.Is(err, debate.ErrConversationNotFound) {
		t.Errorf("missing conversation error = %v", err)
	}

	// Past the TTL the conversation reads as expired.
	now = now.Add(61 * time.Minute)
	if _, err := r.GetConversation(ctx, conv.ID); !errors.Is(err, debate.ErrConversationExpired) {
		t.Errorf("expired conversation error = %v", err)
	}
}

func TestMemRepo_TouchExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)
	r := NewMemRepo(WithTTL(60*time.Minute), WithClock(func() time.Time { return now }))

	conv, _ := r.CreateConversation(ctx, "topic", debate.StancePro)

	now = now.Add(30 * time.Minute)
	if err := r.Touch(ctx, conv.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, _ := r.GetConversation(ctx, conv.ID)
	// Touch extends from the later of now and the current expiry.
	want := now.Add(90 * time.Minute)
	if !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}

	if err := r.Touch(ctx, 999); !errors.Is(err, debate.ErrConversationNotFound) {
		t.Errorf("Touch missing error = %v", err)
	}
}

func TestMemRepo_MessagesOrderedAndWindowed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)
	r := NewMemRepo(WithClock(func() time.Time { return now }))

	conv, _ := r.CreateConversation(ctx, "topic", debate.StancePro)

	texts := []string{"u1", "b1", "u2", "b2", "u3", "b3"}
	for i, text := range texts {
		role := debate.RoleUser
		if i%2 == 1 {
			role = debate.RoleBot
		}
		if err := r.AddMessage(ctx, conv.ID, role, text); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		now = now.Add(time.Second)
	}

	all, err := r.AllMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("AllMessages: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("len(all) = %d, want 6", len(all))
	}
	for i, m := range all {
		if m.Text != texts[i] {
			t.Errorf("all[%d] = %q, want %q (oldest first)", i, m.Text, texts[i])
		}
	}

	window, err := r.LastMessages(ctx, conv.ID, 4)
	if err != nil {
		t.Fatalf("LastMessages: %v", err)
	}
	if len(window) != 4 {
		t.Fatalf("len(window) = %d, want 4", len(window))
	}
	if window[0].Text != "u2" || window[3].Text != "b3" {
		t.Errorf("window = %v, want the newest four oldest-first", window)
	}
}

func TestMemRepo_AddMessageUnknownConversation(t *testing.T) {
	r := NewMemRepo()
	err := r.AddMessage(context.Background(), 42, debate.RoleUser, "hello")
	if !errors.Is(err, debate.ErrConversationNotFound) {
		t.Errorf("error = %v, want ErrConversationNotFound", err)
	}
}
