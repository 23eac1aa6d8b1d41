package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"msgcore/internal/domain"
	"msgcore/internal/dto"
	"msgcore/internal/netutil"
	"msgcore/internal/observability/metrics"
	"msgcore/internal/store"
)

type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration // token lifetime; refresh renews within the session window
	RefreshTTL time.Duration // absolute session lifetime
	SigningKey []byte        // HS256 secret
}

// sessionClaims bind a token to its session row (jti == Session.TokenID) and
// to the device fingerprint the session was issued for.
type sessionClaims struct {
	SID string `json:"sid"`
	FP  string `json:"fp"`
	jwt.RegisteredClaims
}

// SessionGuard enforces the single-active-device rule for regular users and
// validates every authenticated request. Admins bypass the single-session
// machine entirely; their sessions are still device-bound individually.
type SessionGuard struct {
	cfg        TokenConfig
	store      *store.Store
	violations *ViolationTracker
	now        func() time.Time
}

func NewSessionGuard(cfg TokenConfig, st *store.Store, violations *ViolationTracker) *SessionGuard {
	return &SessionGuard{
		cfg:        cfg,
		store:      st,
		violations: violations,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartSession transitions the user into ActiveSession for the presented
// fingerprint and returns a signed token. For regular users any prior active
// session ends first: same fingerprint is a plain replacement, a different
// fingerprint is superseded and recorded as a multiple_login_attempt
// violation.
func (g *SessionGuard) StartSession(ctx context.Context, user *domain.User, fingerprint, ip, ua string) (*dto.TokenResponse, error) {
	fingerprint = netutil.NormalizeFingerprint(fingerprint)
	if fingerprint == "" {
		return nil, ErrEmptyFingerprint
	}
	if user.IsBlocked {
		return nil, domain.ErrBlocked
	}
	now := g.now()

	if !user.IsAdmin() {
		prior, err := g.store.Sessions().ActiveForUser(ctx, user.ID)
		switch {
		case err == nil:
			if prior.DeviceFingerprint == fingerprint {
				if err := g.store.Sessions().End(ctx, prior.ID, domain.SessionRevoked, now); err != nil {
					return nil, err
				}
			} else {
				if err := g.store.Sessions().End(ctx, prior.ID, domain.SessionSuperseded, now); err != nil {
					return nil, err
				}
				g.violations.RecordBestEffort(ctx, user.ID, domain.ViolationMultipleLogin, map[string]any{
					"previous_fingerprint": prior.DeviceFingerprint,
					"new_fingerprint":      fingerprint,
					"ip":                   ip,
				})
			}
		case store.IsNotFound(err):
			// NoSession -> ActiveSession, nothing to end.
		default:
			return nil, err
		}
	}

	sess := &domain.Session{
		ID:                uuid.New(),
		UserID:            user.ID,
		DeviceFingerprint: fingerprint,
		TokenID:           uuid.NewString(),
		State:             domain.SessionActive,
		IssuedAt:          now,
		ExpiresAt:         now.Add(g.cfg.RefreshTTL),
		IP:                ip,
		UserAgent:         netutil.TruncateUserAgent(ua),
	}
	if err := g.store.Sessions().Create(ctx, sess); err != nil {
		return nil, err
	}

	token, err := g.sign(user.ID, sess, now)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		SessionToken: token,
		ExpiresIn:    int64(g.cfg.AccessTTL.Seconds()),
	}, nil
}

// Validate checks a presented token and fingerprint against the stored
// session. Token possession alone is insufficient: the fingerprint must
// match the one the session was bound to at login.
func (g *SessionGuard) Validate(ctx context.Context, tokenStr, fingerprint string) (*domain.User, *domain.Session, error) {
	result := "ok"
	defer func() {
		metrics.SessionValidationsTotal.WithLabelValues(result).Inc()
	}()

	claims, err := g.parse(tokenStr, true)
	if err != nil {
		result = "invalid"
		return nil, nil, domain.ErrInvalidSession
	}

	user, sess, err := g.resolve(ctx, claims, netutil.NormalizeFingerprint(fingerprint))
	if err != nil {
		if errors.Is(err, domain.ErrBlocked) {
			result = "blocked"
		} else {
			result = "invalid"
		}
		return nil, nil, err
	}
	return user, sess, nil
}

// Refresh re-validates the device binding of an expired token, ignoring only
// its expiry, then rotates the token identity on the same session.
func (g *SessionGuard) Refresh(ctx context.Context, tokenStr, fingerprint string) (*dto.TokenResponse, error) {
	claims, err := g.parse(tokenStr, false)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}

	user, sess, err := g.resolve(ctx, claims, netutil.NormalizeFingerprint(fingerprint))
	if err != nil {
		return nil, err
	}
	now := g.now()
	if now.After(sess.ExpiresAt) {
		return nil, domain.ErrInvalidSession
	}

	sess.TokenID = uuid.NewString()
	if err := g.store.Sessions().Rotate(ctx, sess.ID, sess.TokenID, sess.ExpiresAt); err != nil {
		return nil, err
	}

	token, err := g.sign(user.ID, sess, now)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		SessionToken: token,
		ExpiresIn:    int64(g.cfg.AccessTTL.Seconds()),
	}, nil
}

// Logout revokes the session behind a valid token. Subsequent validations
// fail until a new login.
func (g *SessionGuard) Logout(ctx context.Context, sess *domain.Session) error {
	return g.store.Sessions().End(ctx, sess.ID, domain.SessionRevoked, g.now())
}

// resolve maps verified claims onto live directory state, enforcing the
// session invariant plus the block flag.
func (g *SessionGuard) resolve(ctx context.Context, claims *sessionClaims, fingerprint string) (*domain.User, *domain.Session, error) {
	sid, err := uuid.Parse(claims.SID)
	if err != nil {
		return nil, nil, domain.ErrInvalidSession
	}
	sess, err := g.store.Sessions().Get(ctx, sid)
	if err != nil {
		return nil, nil, domain.ErrInvalidSession
	}
	if !sess.IsActive() || sess.TokenID != claims.ID {
		return nil, nil, domain.ErrInvalidSession
	}
	if fingerprint == "" || sess.DeviceFingerprint != fingerprint || claims.FP != fingerprint {
		return nil, nil, domain.ErrInvalidSession
	}

	user, err := g.store.Users().Get(ctx, sess.UserID)
	if err != nil || user.Deleted() {
		return nil, nil, domain.ErrInvalidSession
	}
	if user.IsBlocked {
		return nil, nil, domain.ErrBlocked
	}
	return user, sess, nil
}

func (g *SessionGuard) sign(userID domain.UserID, sess *domain.Session, now time.Time) (string, error) {
	claims := sessionClaims{
		SID: sess.ID.String(),
		FP:  sess.DeviceFingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.cfg.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{g.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(g.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sess.TokenID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.cfg.SigningKey)
}

func (g *SessionGuard) parse(tokenStr string, enforceExpiry bool) (*sessionClaims, error) {
	claims := &sessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.cfg.Issuer),
		jwt.WithAudience(g.cfg.Audience),
	}
	if !enforceExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parser := jwt.NewParser(opts...)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return g.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid && enforceExpiry {
		return nil, errors.New("invalid token")
	}
	if !enforceExpiry {
		// Expiry was skipped; issuer and audience still have to hold.
		if claims.Issuer != g.cfg.Issuer {
			return nil, errors.New("bad issuer")
		}
		if !containsAudience(claims.Audience, g.cfg.Audience) {
			return nil, errors.New("bad audience")
		}
	}
	return claims, nil
}

// containsAudience checks if the expected audience is present in the claim audience list.
func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
