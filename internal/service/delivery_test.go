package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
	"msgcore/internal/service"
	"msgcore/internal/store"
)

func newDelivery(st *store.Store, bc broadcast.Store, gw *recordingGateway) (*service.DeliveryCoordinator, *service.UnreadCounters) {
	unread := service.NewUnreadCounters(bc)
	perm := service.NewPermissionEngine(st)
	return service.NewDeliveryCoordinator(st, bc, unread, gw, perm, 2*time.Second), unread
}

func TestSendDirectFullDelivery(t *testing.T) {
	st := setupStore(t)
	bc := broadcast.NewMemoryStore()
	gw := &recordingGateway{}
	d, unread := newDelivery(st, bc, gw)

	admin := seedUser(t, st, "root", domain.RoleAdmin)
	alice := seedUser(t, st, "alice", domain.RoleRegular)
	setToken(t, st, alice.ID, "tok-alice")

	ctx := context.Background()
	receipt, err := d.SendDirect(ctx, admin, alice.ID, service.SendInput{Body: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !receipt.Broadcast || !receipt.Counter || !receipt.Push {
		t.Fatalf("expected full delivery, got %+v", receipt)
	}

	msgs, err := st.Messages().QueryConversation(ctx, admin.ID, alice.ID, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected 1 persisted message, got %d (err=%v)", len(msgs), err)
	}
	if msgs[0].ID != receipt.MessageID {
		t.Fatalf("receipt id %s does not match persisted id %s", receipt.MessageID, msgs[0].ID)
	}

	if _, ok := bc.Get(ctx, receipt.Path); !ok {
		t.Fatalf("expected broadcast copy at %s", receipt.Path)
	}
	summary := unread.Get(ctx, alice.ID)
	if summary.Direct[admin.ID.String()] != 1 {
		t.Fatalf("expected unread counter 1, got %+v", summary)
	}
	if !gw.sentTo("tok-alice") {
		t.Fatalf("expected push to recipient token")
	}
}

func TestSendDirectBroadcastFailureStillPersists(t *testing.T) {
	st := setupStore(t)
	bc := &failingBroadcast{MemoryStore: broadcast.NewMemoryStore(), failPrefix: "conversations/"}
	gw := &recordingGateway{}
	d, unread := newDelivery(st, bc, gw)

	sender := seedUser(t, st, "alice", domain.RoleRegular)
	admin := seedUser(t, st, "root", domain.RoleAdmin)

	ctx := context.Background()
	receipt, err := d.SendDirect(ctx, sender, admin.ID, service.SendInput{Body: "urgent"})
	if err != nil {
		t.Fatalf("publish failure must not fail the send: %v", err)
	}
	if receipt.Broadcast {
		t.Fatalf("expected Broadcast=false on publish failure")
	}
	if !receipt.Counter {
		t.Fatalf("counter increment must not depend on the message publish")
	}

	msgs, err := st.Messages().QueryConversation(ctx, sender.ID, admin.ID, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected message persisted despite publish failure, got %d (err=%v)", len(msgs), err)
	}
	if got := unread.Get(ctx, admin.ID).Direct[sender.ID.String()]; got != 1 {
		t.Fatalf("expected counter 1, got %d", got)
	}
}

func TestSendDirectValidation(t *testing.T) {
	st := setupStore(t)
	d, _ := newDelivery(st, broadcast.NewMemoryStore(), &recordingGateway{})
	alice := seedUser(t, st, "alice", domain.RoleRegular)
	admin := seedUser(t, st, "root", domain.RoleAdmin)

	ctx := context.Background()
	if _, err := d.SendDirect(ctx, alice, admin.ID, service.SendInput{}); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("empty content: expected ErrValidationFailed, got %v", err)
	}
	empty := ""
	if _, err := d.SendDirect(ctx, alice, admin.ID, service.SendInput{AttachmentRef: &empty}); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("blank attachment: expected ErrValidationFailed, got %v", err)
	}
	if _, err := d.SendDirect(ctx, alice, alice.ID, service.SendInput{Body: "hi me"}); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("self send: expected ErrValidationFailed, got %v", err)
	}
}

func TestSendDirectPersistenceFailureAborts(t *testing.T) {
	st := setupStore(t)
	bc := broadcast.NewMemoryStore()
	gw := &recordingGateway{}
	d, unread := newDelivery(st, bc, gw)

	sender := seedUser(t, st, "alice", domain.RoleRegular)
	admin := seedUser(t, st, "root", domain.RoleAdmin)

	ctx := context.Background()
	if err := st.DB.Exec("DROP TABLE messages").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if _, err := d.SendDirect(ctx, sender, admin.ID, service.SendInput{Body: "hello"}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if got := unread.Get(ctx, admin.ID).Total; got != 0 {
		t.Fatalf("no side effects after persist failure, counter total=%d", got)
	}
	if gw.callCount() != 0 {
		t.Fatalf("no push after persist failure, got %d calls", gw.callCount())
	}
}

func TestSendGroupFanOut(t *testing.T) {
	st := setupStore(t)
	bc := broadcast.NewMemoryStore()
	gw := &recordingGateway{failTokens: map[string]bool{"tok-bob": true}}
	d, unread := newDelivery(st, bc, gw)

	sender := seedUser(t, st, "alice", domain.RoleRegular)
	bob := seedUser(t, st, "bob", domain.RoleRegular)
	carol := seedUser(t, st, "carol", domain.RoleRegular)
	admin := seedUser(t, st, "root", domain.RoleAdmin)
	setToken(t, st, bob.ID, "tok-bob")
	setToken(t, st, carol.ID, "tok-carol")
	g := seedGroup(t, st, true, sender, bob, carol, admin)

	ctx := context.Background()
	receipt, err := d.SendGroup(ctx, sender, g.ID, service.SendInput{Body: "standup in 5"})
	if err != nil {
		t.Fatalf("send group: %v", err)
	}
	if !receipt.Broadcast {
		t.Fatalf("expected group publish to succeed")
	}
	if len(receipt.Members) != 3 {
		t.Fatalf("expected 3 member deliveries, got %d", len(receipt.Members))
	}

	byID := map[domain.UserID]service.MemberDelivery{}
	for _, md := range receipt.Members {
		byID[md.UserID] = md
	}
	if md := byID[bob.ID]; !md.Counter || md.Push {
		t.Fatalf("bob: expected counter ok, push failed, got %+v", md)
	}
	if md := byID[carol.ID]; !md.Counter || !md.Push {
		t.Fatalf("carol: expected full delivery, got %+v", md)
	}
	if md := byID[admin.ID]; !md.Counter || !md.Push {
		t.Fatalf("admin: push is skipped and counts as delivered, got %+v", md)
	}

	// Every member's counter moves by exactly one; the sender's does not.
	for _, member := range []*domain.User{bob, carol, admin} {
		if got := unread.Get(ctx, member.ID).Groups[g.ID.String()]; got != 1 {
			t.Fatalf("member %s: expected group counter 1, got %d", member.Username, got)
		}
	}
	if got := unread.Get(ctx, sender.ID).Total; got != 0 {
		t.Fatalf("sender counter must not move, got total %d", got)
	}

	msgs, err := st.Messages().QueryGroup(ctx, g.ID, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected 1 persisted group message, got %d (err=%v)", len(msgs), err)
	}
}
