package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
	"msgcore/internal/service"
)

func TestMarkConversationRead(t *testing.T) {
	st := setupStore(t)
	bc := broadcast.NewMemoryStore()
	unread := service.NewUnreadCounters(bc)
	mailbox := service.NewMailbox(st, unread)

	alice := seedUser(t, st, "alice", domain.RoleRegular)
	admin := seedUser(t, st, "root", domain.RoleAdmin)

	ctx := context.Background()
	now := time.Now().UTC()
	var sent []domain.MessageID
	for i := 0; i < 3; i++ {
		msg := &domain.Message{
			FromUserID: alice.ID,
			ToUserID:   admin.ID,
			Body:       "ping",
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		}
		if err := st.Messages().Append(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
		sent = append(sent, msg.ID)
		if err := unread.IncrementDirect(ctx, admin.ID, alice.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	if err := mailbox.MarkConversationRead(ctx, admin, alice.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	for _, id := range sent {
		receipts, err := st.Messages().ReadReceipts(ctx, id)
		if err != nil || len(receipts) != 1 {
			t.Fatalf("message %s: expected 1 receipt, got %d (err=%v)", id, len(receipts), err)
		}
		if receipts[0].UserID != admin.ID {
			t.Fatalf("receipt must belong to the reader")
		}
	}
	if got := unread.Get(ctx, admin.ID).Total; got != 0 {
		t.Fatalf("expected counter cleared, got total %d", got)
	}

	// Marking again is a no-op: no duplicate receipts.
	if err := mailbox.MarkConversationRead(ctx, admin, alice.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	receipts, _ := st.Messages().ReadReceipts(ctx, sent[0])
	if len(receipts) != 1 {
		t.Fatalf("expected receipts untouched on re-read, got %d", len(receipts))
	}
}

func TestMarkGroupReadClearsCounter(t *testing.T) {
	st := setupStore(t)
	bc := broadcast.NewMemoryStore()
	unread := service.NewUnreadCounters(bc)
	mailbox := service.NewMailbox(st, unread)

	alice := seedUser(t, st, "alice", domain.RoleRegular)
	g := seedGroup(t, st, true, alice)

	ctx := context.Background()
	_ = unread.IncrementGroup(ctx, alice.ID, g.ID)
	_ = unread.IncrementGroup(ctx, alice.ID, g.ID)

	if err := mailbox.MarkGroupRead(ctx, alice, g.ID); err != nil {
		t.Fatalf("mark group read: %v", err)
	}
	if got := unread.Get(ctx, alice.ID).Total; got != 0 {
		t.Fatalf("expected group counter cleared, got total %d", got)
	}
}

func TestConversationHistory(t *testing.T) {
	st := setupStore(t)
	mailbox := service.NewMailbox(st, service.NewUnreadCounters(broadcast.NewMemoryStore()))

	alice := seedUser(t, st, "alice", domain.RoleRegular)
	admin := seedUser(t, st, "root", domain.RoleAdmin)

	ctx := context.Background()
	now := time.Now().UTC()
	_ = st.Messages().Append(ctx, &domain.Message{FromUserID: alice.ID, ToUserID: admin.ID, Body: "q", CreatedAt: now})
	_ = st.Messages().Append(ctx, &domain.Message{FromUserID: admin.ID, ToUserID: alice.ID, Body: "a", CreatedAt: now.Add(time.Second)})

	msgs, err := mailbox.Conversation(ctx, alice, admin.ID, 0)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected both directions, got %d", len(msgs))
	}
	if msgs[0].Body != "q" || msgs[1].Body != "a" {
		t.Fatalf("expected send order, got %q then %q", msgs[0].Body, msgs[1].Body)
	}

	if _, err := mailbox.Conversation(ctx, alice, uuid.New(), 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown partner, got %v", err)
	}
}

func TestGroupHistoryMembership(t *testing.T) {
	st := setupStore(t)
	mailbox := service.NewMailbox(st, service.NewUnreadCounters(broadcast.NewMemoryStore()))

	alice := seedUser(t, st, "alice", domain.RoleRegular)
	bob := seedUser(t, st, "bob", domain.RoleRegular)
	g := seedGroup(t, st, true, bob)

	ctx := context.Background()
	_ = st.Messages().AppendGroup(ctx, &domain.GroupMessage{GroupID: g.ID, FromUserID: bob.ID, Body: "hi", CreatedAt: time.Now().UTC()})

	if _, err := mailbox.GroupHistory(ctx, alice, g.ID, 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-member: expected ErrForbidden, got %v", err)
	}

	msgs, err := mailbox.GroupHistory(ctx, bob, g.ID, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("member: expected 1 message, got %d (err=%v)", len(msgs), err)
	}

	if _, err := mailbox.GroupHistory(ctx, bob, uuid.New(), 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing group: expected ErrNotFound, got %v", err)
	}
}
