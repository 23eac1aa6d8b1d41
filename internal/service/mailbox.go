package service

import (
	"context"
	"time"

	"msgcore/internal/domain"
	"msgcore/internal/store"
)

// Mailbox is the read side: conversation/group history and mark-read. Reads
// come from the durable store; mark-read also clears the broadcast-store
// counter, which is the only read state groups have.
type Mailbox struct {
	store  *store.Store
	unread *UnreadCounters
	now    func() time.Time
}

func NewMailbox(st *store.Store, unread *UnreadCounters) *Mailbox {
	return &Mailbox{
		store:  st,
		unread: unread,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Conversation returns the direct history between the caller and a partner.
func (m *Mailbox) Conversation(ctx context.Context, caller *domain.User, partner domain.UserID, limit int) ([]domain.Message, error) {
	if _, err := m.store.Users().Get(ctx, partner); err != nil {
		if store.IsNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m.store.Messages().QueryConversation(ctx, caller.ID, partner, limit)
}

// GroupHistory returns group messages; the caller must be a member.
func (m *Mailbox) GroupHistory(ctx context.Context, caller *domain.User, groupID domain.GroupID, limit int) ([]domain.GroupMessage, error) {
	group, err := m.store.Groups().Get(ctx, groupID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !group.HasMember(caller.ID) {
		return nil, domain.ErrForbidden
	}
	return m.store.Messages().QueryGroup(ctx, groupID, limit)
}

// MarkConversationRead receipts everything the partner sent and clears the
// counter wholesale. Counter failure is logged by the broadcast layer and
// does not undo the receipts.
func (m *Mailbox) MarkConversationRead(ctx context.Context, caller *domain.User, partner domain.UserID) error {
	if err := m.store.Messages().MarkRead(ctx, partner, caller.ID, m.now()); err != nil {
		return err
	}
	return m.unread.ClearDirect(ctx, caller.ID, partner)
}

// MarkGroupRead clears the caller's group counter. Group messages carry no
// per-recipient receipts, so this is the whole operation.
func (m *Mailbox) MarkGroupRead(ctx context.Context, caller *domain.User, groupID domain.GroupID) error {
	return m.unread.ClearGroup(ctx, caller.ID, groupID)
}
