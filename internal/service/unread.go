package service

import (
	"context"
	"strings"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
)

// UnreadCounters maintains per-recipient unread counts in the broadcast
// store, separate from the durable store's read receipts.
//
// Increment is a plain read-modify-write on the counter path: the store
// offers no atomic add, so two concurrent increments for the same key can
// lose one update. That undercount is accepted; the contract is convergence
// to zero once the recipient clears and the sender stops sending, which
// Clear guarantees by removing the path outright.
type UnreadCounters struct {
	bc broadcast.Store
}

func NewUnreadCounters(bc broadcast.Store) *UnreadCounters {
	return &UnreadCounters{bc: bc}
}

// UnreadSummary aggregates one recipient's counters. Map keys are partner
// user ids / group ids.
type UnreadSummary struct {
	Direct map[string]int64 `json:"direct"`
	Groups map[string]int64 `json:"groups"`
	Total  int64            `json:"total"`
}

func (u *UnreadCounters) IncrementDirect(ctx context.Context, recipient, partner domain.UserID) error {
	return u.increment(ctx, broadcast.UnreadDirectPath(recipient, partner))
}

func (u *UnreadCounters) IncrementGroup(ctx context.Context, recipient domain.UserID, group domain.GroupID) error {
	return u.increment(ctx, broadcast.UnreadGroupPath(recipient, group))
}

func (u *UnreadCounters) increment(ctx context.Context, path string) error {
	current, _ := u.bc.Get(ctx, path)
	return u.bc.Publish(ctx, path, asCount(current)+1)
}

// ClearDirect resets the counter for one conversation. Clearing a counter
// that never existed is a no-op.
func (u *UnreadCounters) ClearDirect(ctx context.Context, recipient, partner domain.UserID) error {
	return u.bc.Remove(ctx, broadcast.UnreadDirectPath(recipient, partner))
}

func (u *UnreadCounters) ClearGroup(ctx context.Context, recipient domain.UserID, group domain.GroupID) error {
	return u.bc.Remove(ctx, broadcast.UnreadGroupPath(recipient, group))
}

func (u *UnreadCounters) Get(ctx context.Context, recipient domain.UserID) UnreadSummary {
	root := broadcast.UnreadRoot(recipient)
	summary := UnreadSummary{
		Direct: make(map[string]int64),
		Groups: make(map[string]int64),
	}
	for path, value := range u.bc.List(root) {
		rest := strings.TrimPrefix(path, root+"/")
		parts := broadcast.Split(rest)
		if len(parts) != 2 {
			continue
		}
		n := asCount(value)
		switch parts[0] {
		case "direct":
			summary.Direct[parts[1]] = n
		case "groups":
			summary.Groups[parts[1]] = n
		default:
			continue
		}
		summary.Total += n
	}
	return summary
}

// Subscribe delivers every counter change for the recipient until cancelled.
func (u *UnreadCounters) Subscribe(recipient domain.UserID, fn func(broadcast.Event)) broadcast.CancelFunc {
	return u.bc.Subscribe(broadcast.UnreadRoot(recipient), fn)
}

// asCount tolerates the value types a counter can come back as: int64 from
// in-process writes, float64 after a JSON round-trip.
func asCount(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
