package service

import (
	"context"

	"msgcore/internal/domain"
	"msgcore/internal/store"
)

// PermissionEngine decides whether a sender may deliver to a recipient or
// group. It has no side effects; every rule reads current directory state.
//
// Role rule: regular senders may target only admins. Admins may target
// anyone. Regular-to-regular direct messages are always forbidden, including
// between members of a shared group.
type PermissionEngine struct {
	store *store.Store
}

func NewPermissionEngine(st *store.Store) *PermissionEngine {
	return &PermissionEngine{store: st}
}

// AuthorizeDirect returns the recipient record when the send is allowed.
func (p *PermissionEngine) AuthorizeDirect(ctx context.Context, sender *domain.User, to domain.UserID) (*domain.User, error) {
	if sender.IsBlocked {
		return nil, domain.ErrBlocked
	}

	recipient, err := p.store.Users().Get(ctx, to)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if recipient.Deleted() {
		return nil, domain.ErrNotFound
	}

	if !sender.IsAdmin() && !recipient.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return recipient, nil
}

// AuthorizeGroup returns the group and the resolved member records (sender
// excluded) when the send is allowed.
func (p *PermissionEngine) AuthorizeGroup(ctx context.Context, sender *domain.User, groupID domain.GroupID) (*domain.Group, []domain.User, error) {
	if sender.IsBlocked {
		return nil, nil, domain.ErrBlocked
	}

	group, err := p.store.Groups().Get(ctx, groupID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	if !group.IsActive {
		return nil, nil, domain.ErrNotFound
	}
	if !group.HasMember(sender.ID) {
		return nil, nil, domain.ErrForbidden
	}

	memberIDs := group.MemberIDs(sender.ID)
	members := make([]domain.User, 0, len(memberIDs))
	for _, id := range memberIDs {
		member, err := p.store.Users().Get(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, nil, domain.ErrNotFound
			}
			return nil, nil, err
		}
		if member.Deleted() {
			return nil, nil, domain.ErrNotFound
		}
		members = append(members, *member)
	}
	return group, members, nil
}
