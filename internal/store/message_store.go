package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"msgcore/internal/domain"
)

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{s.DB} }

func (ms *MessageStore) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return ms.db.WithContext(ctx).Create(msg).Error
}

func (ms *MessageStore) AppendGroup(ctx context.Context, msg *domain.GroupMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return ms.db.WithContext(ctx).Create(msg).Error
}

// QueryConversation returns the direct messages between two users in send
// order, regardless of direction.
func (ms *MessageStore) QueryConversation(ctx context.Context, a, b domain.UserID, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	tx := ms.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		Order("created_at asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (ms *MessageStore) QueryGroup(ctx context.Context, groupID domain.GroupID, limit int) ([]domain.GroupMessage, error) {
	var msgs []domain.GroupMessage
	tx := ms.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead appends read receipts for every message from one user to another
// that the reader has not yet receipted. Existing receipts are left alone.
func (ms *MessageStore) MarkRead(ctx context.Context, from, to domain.UserID, at time.Time) error {
	var ids []domain.MessageID
	err := ms.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("from_user_id = ? AND to_user_id = ?", from, to).
		Where("id NOT IN (?)", ms.db.Model(&domain.ReadReceipt{}).Select("message_id").Where("user_id = ?", to)).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	receipts := make([]domain.ReadReceipt, 0, len(ids))
	for _, id := range ids {
		receipts = append(receipts, domain.ReadReceipt{MessageID: id, UserID: to, ReadAt: at})
	}
	return ms.db.WithContext(ctx).Create(&receipts).Error
}

func (ms *MessageStore) ReadReceipts(ctx context.Context, messageID domain.MessageID) ([]domain.ReadReceipt, error) {
	var receipts []domain.ReadReceipt
	if err := ms.db.WithContext(ctx).Where("message_id = ?", messageID).Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}
