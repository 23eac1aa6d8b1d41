package store

import (
	"context"

	"gorm.io/gorm"

	"msgcore/internal/domain"
)

type GroupStore struct{ db *gorm.DB }

func (s *Store) Groups() *GroupStore { return &GroupStore{s.DB} }

func (gs *GroupStore) Get(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	var g domain.Group
	err := gs.db.WithContext(ctx).
		Preload("Members").
		First(&g, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (gs *GroupStore) Create(ctx context.Context, g *domain.Group) error {
	return gs.db.WithContext(ctx).Create(g).Error
}

func (gs *GroupStore) AddMember(ctx context.Context, m *domain.GroupMember) error {
	return gs.db.WithContext(ctx).Create(m).Error
}
