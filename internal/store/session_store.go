package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"msgcore/internal/domain"
)

type SessionStore struct{ db *gorm.DB }

func (s *Store) Sessions() *SessionStore { return &SessionStore{s.DB} }

func (ss *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	return ss.db.WithContext(ctx).Create(sess).Error
}

func (ss *SessionStore) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var sess domain.Session
	if err := ss.db.WithContext(ctx).First(&sess, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// ActiveForUser returns the user's single live session, if any.
func (ss *SessionStore) ActiveForUser(ctx context.Context, userID domain.UserID) (*domain.Session, error) {
	var sess domain.Session
	err := ss.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, domain.SessionActive).
		Order("issued_at desc").
		First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (ss *SessionStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	var sess domain.Session
	if err := ss.db.WithContext(ctx).First(&sess, "token_id = ?", tokenID).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// End transitions a session out of the active state. The target state names
// why it ended: revoked or superseded by a login from a new device.
func (ss *SessionStore) End(ctx context.Context, id domain.SessionID, state domain.SessionState, at time.Time) error {
	return ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{"state": state, "ended_at": at}).Error
}

// Rotate swaps the token identity on an existing session, extending expiry.
// Used by refresh, which keeps the session row (and its device binding).
func (ss *SessionStore) Rotate(ctx context.Context, id domain.SessionID, tokenID string, expiresAt time.Time) error {
	return ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{"token_id": tokenID, "expires_at": expiresAt}).Error
}

func (ss *SessionStore) EndAllForUser(ctx context.Context, userID domain.UserID, state domain.SessionState, at time.Time) (int64, error) {
	tx := ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND state = ?", userID, domain.SessionActive).
		Updates(map[string]any{"state": state, "ended_at": at})
	return tx.RowsAffected, tx.Error
}
