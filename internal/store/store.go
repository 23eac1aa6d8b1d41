package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"msgcore/internal/domain"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.PasswordCredential{},
		&domain.Session{},
		&domain.Message{},
		&domain.ReadReceipt{},
		&domain.GroupMessage{},
		&domain.Group{},
		&domain.GroupMember{},
		&domain.ViolationEvent{},
	)
}

func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
