package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"msgcore/internal/domain"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{s.DB} }

func (us *UserStore) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return us.db.WithContext(ctx).Create(u).Error
}

func (us *UserStore) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	if err := us.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (us *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := us.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateFields applies a partial update to the directory record.
func (us *UserStore) UpdateFields(ctx context.Context, id domain.UserID, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	return us.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (us *UserStore) SetBlocked(ctx context.Context, id domain.UserID, reason string, at time.Time) error {
	return us.UpdateFields(ctx, id, map[string]any{
		"is_blocked":   true,
		"block_reason": reason,
		"blocked_at":   at,
	})
}

// ClearBlocked resets the block flags but leaves the violation log intact.
func (us *UserStore) ClearBlocked(ctx context.Context, id domain.UserID) error {
	return us.UpdateFields(ctx, id, map[string]any{
		"is_blocked":   false,
		"block_reason": nil,
		"blocked_at":   nil,
	})
}

func (us *UserStore) SetPushToken(ctx context.Context, id domain.UserID, token *string) error {
	return us.UpdateFields(ctx, id, map[string]any{"push_token": token})
}

func (us *UserStore) IncrementViolationCount(ctx context.Context, id domain.UserID) (int, error) {
	tx := us.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"violation_count": gorm.Expr("violation_count + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if tx.Error != nil {
		return 0, tx.Error
	}
	var u domain.User
	if err := us.db.WithContext(ctx).Select("violation_count").First(&u, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return u.ViolationCount, nil
}

// Admins lists non-deleted admin users, used for violation alert fan-out.
func (us *UserStore) Admins(ctx context.Context) ([]domain.User, error) {
	var admins []domain.User
	err := us.db.WithContext(ctx).
		Where("role = ? AND deleted_at IS NULL", domain.RoleAdmin).
		Find(&admins).Error
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func (us *UserStore) SoftDelete(ctx context.Context, id domain.UserID, at time.Time) error {
	return us.UpdateFields(ctx, id, map[string]any{"deleted_at": at})
}
