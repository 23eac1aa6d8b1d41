package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"msgcore/internal/broadcast"
	"msgcore/internal/service"
)

func TestUnreadIncrementAndClear(t *testing.T) {
	bc := broadcast.NewMemoryStore()
	u := service.NewUnreadCounters(bc)
	ctx := context.Background()
	recipient, partner := uuid.New(), uuid.New()

	for i := 0; i < 5; i++ {
		if err := u.IncrementDirect(ctx, recipient, partner); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if got := u.Get(ctx, recipient).Direct[partner.String()]; got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}

	if err := u.ClearDirect(ctx, recipient, partner); err != nil {
		t.Fatalf("clear: %v", err)
	}
	summary := u.Get(ctx, recipient)
	if summary.Total != 0 || len(summary.Direct) != 0 {
		t.Fatalf("expected zero after clear, got %+v", summary)
	}
}

func TestUnreadClearWithoutIncrementIsNoop(t *testing.T) {
	bc := broadcast.NewMemoryStore()
	u := service.NewUnreadCounters(bc)
	ctx := context.Background()

	if err := u.ClearDirect(ctx, uuid.New(), uuid.New()); err != nil {
		t.Fatalf("clearing an absent counter must succeed: %v", err)
	}
	if err := u.ClearGroup(ctx, uuid.New(), uuid.New()); err != nil {
		t.Fatalf("clearing an absent group counter must succeed: %v", err)
	}
}

func TestUnreadSummaryAggregation(t *testing.T) {
	bc := broadcast.NewMemoryStore()
	u := service.NewUnreadCounters(bc)
	ctx := context.Background()
	recipient := uuid.New()
	alice, bob, g := uuid.New(), uuid.New(), uuid.New()

	_ = u.IncrementDirect(ctx, recipient, alice)
	_ = u.IncrementDirect(ctx, recipient, alice)
	_ = u.IncrementDirect(ctx, recipient, bob)
	_ = u.IncrementGroup(ctx, recipient, g)

	// A different recipient's counters must not leak in.
	_ = u.IncrementDirect(ctx, uuid.New(), alice)

	summary := u.Get(ctx, recipient)
	if summary.Direct[alice.String()] != 2 || summary.Direct[bob.String()] != 1 {
		t.Fatalf("unexpected direct counters: %+v", summary.Direct)
	}
	if summary.Groups[g.String()] != 1 {
		t.Fatalf("unexpected group counters: %+v", summary.Groups)
	}
	if summary.Total != 4 {
		t.Fatalf("expected total 4, got %d", summary.Total)
	}
}

// Increments are read-modify-write on the store, so concurrent senders can
// lose updates. The count must stay positive and never overshoot.
func TestUnreadConcurrentIncrementsBounded(t *testing.T) {
	bc := broadcast.NewMemoryStore()
	u := service.NewUnreadCounters(bc)
	ctx := context.Background()
	recipient, partner := uuid.New(), uuid.New()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = u.IncrementDirect(ctx, recipient, partner)
		}()
	}
	wg.Wait()

	got := u.Get(ctx, recipient).Direct[partner.String()]
	if got < 1 || got > n {
		t.Fatalf("expected count in [1,%d], got %d", n, got)
	}
}

func TestUnreadSubscribeSeesCounterChanges(t *testing.T) {
	bc := broadcast.NewMemoryStore()
	u := service.NewUnreadCounters(bc)
	ctx := context.Background()
	recipient, partner := uuid.New(), uuid.New()

	var events []broadcast.Event
	cancel := u.Subscribe(recipient, func(ev broadcast.Event) {
		events = append(events, ev)
	})
	defer cancel()

	_ = u.IncrementDirect(ctx, recipient, partner)
	_ = u.ClearDirect(ctx, recipient, partner)
	_ = u.IncrementDirect(ctx, uuid.New(), partner) // other recipient, invisible

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[1].Removed != true {
		t.Fatalf("expected clear to surface as removal: %+v", events[1])
	}
}
