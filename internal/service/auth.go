package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"msgcore/internal/domain"
	"msgcore/internal/dto"
	"msgcore/internal/observability/metrics"
	"msgcore/internal/store"
)

// AuthService is the registration/login plumbing in front of the Session
// Guard. Passwords are argon2id; verification failures never reveal whether
// the username or the password was wrong.
type AuthService struct {
	store     *store.Store
	passwords *PasswordService
	guard     *SessionGuard
	now       func() time.Time
}

func NewAuthService(st *store.Store, passwords *PasswordService, guard *SessionGuard) *AuthService {
	return &AuthService{
		store:     st,
		passwords: passwords,
		guard:     guard,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthService) Register(ctx context.Context, r dto.RegisterRequest, ip, ua string) (*dto.RegisterResponse, error) {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return nil, ErrEmptyCredential
	}
	if len(r.Password) < 8 {
		return nil, ErrPasswordLength
	}

	now := a.now()
	user := &domain.User{
		ID:          uuid.New(),
		Username:    r.Username,
		DisplayName: strings.TrimSpace(r.DisplayName),
		Role:        domain.RoleRegular,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cred, err := a.passwords.Hash(user.ID, r.Password)
	if err != nil {
		return nil, err
	}
	cred.CreatedAt = now
	cred.UpdatedAt = now

	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Users().GetByUsername(ctx, r.Username); err == nil {
			return ErrUsernameTaken
		} else if !store.IsNotFound(err) {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.DB.WithContext(ctx).Create(cred).Error
	})
	if err != nil {
		return nil, err
	}

	tokens, err := a.guard.StartSession(ctx, user, r.DeviceFingerprint, ip, ua)
	if err != nil {
		return nil, err
	}
	return &dto.RegisterResponse{
		UserID:       user.ID.String(),
		SessionToken: tokens.SessionToken,
		ExpiresIn:    tokens.ExpiresIn,
	}, nil
}

func (a *AuthService) Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.LoginsTotal.WithLabelValues(result).Inc()
	}()

	if r.Username == "" || r.Password == "" {
		result = "failure"
		return nil, ErrEmptyCredential
	}

	user, err := a.store.Users().GetByUsername(ctx, r.Username)
	if err != nil || user.Deleted() {
		result = "failure"
		return nil, domain.ErrInvalidCredentials
	}

	var cred domain.PasswordCredential
	if err := a.store.DB.WithContext(ctx).First(&cred, "user_id = ?", user.ID).Error; err != nil {
		result = "failure"
		return nil, domain.ErrInvalidCredentials
	}

	rehashNeeded, ok := a.passwords.Verify(r.Password, &cred)
	if !ok {
		result = "failure"
		return nil, domain.ErrInvalidCredentials
	}
	if rehashNeeded {
		if fresh, err := a.passwords.Hash(user.ID, r.Password); err == nil {
			fresh.CreatedAt = cred.CreatedAt
			fresh.UpdatedAt = a.now()
			_ = a.store.DB.WithContext(ctx).Save(fresh).Error
		}
	}

	tokens, err := a.guard.StartSession(ctx, user, r.DeviceFingerprint, ip, ua)
	if err != nil {
		result = "failure"
		return nil, err
	}
	return tokens, nil
}

// SetPushToken registers the caller's device token for push delivery.
// Regular users hold at most one token, matching their single session.
func (a *AuthService) SetPushToken(ctx context.Context, userID domain.UserID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return a.store.Users().SetPushToken(ctx, userID, nil)
	}
	return a.store.Users().SetPushToken(ctx, userID, &token)
}
