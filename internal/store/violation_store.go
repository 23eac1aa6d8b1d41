package store

import (
	"context"

	"gorm.io/gorm"

	"msgcore/internal/domain"
)

type ViolationStore struct{ db *gorm.DB }

func (s *Store) Violations() *ViolationStore { return &ViolationStore{s.DB} }

func (vs *ViolationStore) Append(ctx context.Context, ev *domain.ViolationEvent) error {
	return vs.db.WithContext(ctx).Create(ev).Error
}

// ListForUser returns the user's violation events oldest first. The log is
// append-only; this is the audit view.
func (vs *ViolationStore) ListForUser(ctx context.Context, userID domain.UserID) ([]domain.ViolationEvent, error) {
	var events []domain.ViolationEvent
	err := vs.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (vs *ViolationStore) CountForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	var n int64
	err := vs.db.WithContext(ctx).
		Model(&domain.ViolationEvent{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}
