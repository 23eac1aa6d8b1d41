package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
	"msgcore/internal/observability/metrics"
	"msgcore/internal/push"
	"msgcore/internal/store"
)

// BlockThreshold is the violation count at which a user is auto-blocked.
const BlockThreshold = 3

// ViolationTracker appends security violation events and derives the block
// decision. The transition to blocked is one-way from the tracker's side;
// only an explicit admin unblock reverses it, and the event log survives
// that for audit.
type ViolationTracker struct {
	store     *store.Store
	bc        broadcast.Store
	push      push.Gateway
	threshold int
	now       func() time.Time
}

func NewViolationTracker(st *store.Store, bc broadcast.Store, gw push.Gateway) *ViolationTracker {
	return &ViolationTracker{
		store:     st,
		bc:        bc,
		push:      gw,
		threshold: BlockThreshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type RecordResult struct {
	ViolationCount int  `json:"violationCount"`
	Blocked        bool `json:"blocked"`
}

// Record appends the event, bumps the user's counter, and blocks the user
// once the threshold is crossed. The admin alert at the end is best-effort:
// its failure never rolls back the event or the block.
func (v *ViolationTracker) Record(ctx context.Context, userID domain.UserID, vtype domain.ViolationType, deviceInfo map[string]any) (*RecordResult, error) {
	if !vtype.Valid() {
		return nil, domain.ErrValidationFailed
	}

	user, err := v.store.Users().Get(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	info, err := json.Marshal(deviceInfo)
	if err != nil {
		info = nil
	}
	now := v.now()
	ev := &domain.ViolationEvent{
		UserID:     userID,
		Type:       vtype,
		DeviceInfo: info,
		CreatedAt:  now,
	}

	var count int
	err = v.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Violations().Append(ctx, ev); err != nil {
			return err
		}
		count, err = tx.Users().IncrementViolationCount(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ViolationsRecordedTotal.WithLabelValues(string(vtype)).Inc()

	result := &RecordResult{ViolationCount: count, Blocked: user.IsBlocked}
	if count >= v.threshold && !user.IsBlocked {
		reason := "security violation threshold exceeded: " + string(vtype)
		if err := v.store.Users().SetBlocked(ctx, userID, reason, now); err != nil {
			return nil, err
		}
		result.Blocked = true
		metrics.AutoBlocksTotal.WithLabelValues().Inc()
		slog.Warn("user auto-blocked", "user_id", userID, "violations", count, "reason", reason)
	}

	v.alertAdmins(ctx, user, vtype, count, result.Blocked)
	return result, nil
}

// RecordBestEffort is for call sites where violation bookkeeping must never
// fail the surrounding operation, like the login supersede path.
func (v *ViolationTracker) RecordBestEffort(ctx context.Context, userID domain.UserID, vtype domain.ViolationType, deviceInfo map[string]any) {
	if _, err := v.Record(ctx, userID, vtype, deviceInfo); err != nil {
		slog.Warn("violation record failed", "user_id", userID, "type", vtype, "error", err)
	}
}

// Block applies an explicit administrative block, independent of the
// violation count.
func (v *ViolationTracker) Block(ctx context.Context, userID domain.UserID, reason string) error {
	if _, err := v.store.Users().Get(ctx, userID); err != nil {
		if store.IsNotFound(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return v.store.Users().SetBlocked(ctx, userID, reason, v.now())
}

// Unblock is the admin escape hatch: clears the block flags, keeps the log.
func (v *ViolationTracker) Unblock(ctx context.Context, userID domain.UserID) error {
	if _, err := v.store.Users().Get(ctx, userID); err != nil {
		if store.IsNotFound(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return v.store.Users().ClearBlocked(ctx, userID)
}

func (v *ViolationTracker) List(ctx context.Context, userID domain.UserID) ([]domain.ViolationEvent, error) {
	return v.store.Violations().ListForUser(ctx, userID)
}

type adminAlert struct {
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Type           string    `json:"type"`
	ViolationCount int       `json:"violationCount"`
	Blocked        bool      `json:"blocked"`
	At             time.Time `json:"at"`
}

// alertAdmins publishes the violation to the admin broadcast path and pushes
// to every admin with a registered token. Failures are logged and dropped.
func (v *ViolationTracker) alertAdmins(ctx context.Context, user *domain.User, vtype domain.ViolationType, count int, blocked bool) {
	alert := adminAlert{
		UserID:         user.ID.String(),
		Username:       user.Username,
		Type:           string(vtype),
		ViolationCount: count,
		Blocked:        blocked,
		At:             v.now(),
	}
	if err := v.bc.Publish(ctx, broadcast.AdminAlertPath(uuid.NewString()), alert); err != nil {
		slog.Warn("admin alert publish failed", "error", err)
	}

	admins, err := v.store.Users().Admins(ctx)
	if err != nil {
		slog.Warn("admin lookup for alert failed", "error", err)
		return
	}
	tokens := make([]string, 0, len(admins))
	for _, a := range admins {
		if a.PushToken != nil && *a.PushToken != "" {
			tokens = append(tokens, *a.PushToken)
		}
	}
	if len(tokens) == 0 {
		return
	}
	v.push.Notify(ctx, tokens, "Security violation",
		user.Username+": "+string(vtype), map[string]string{
			"userId": alert.UserID,
			"type":   alert.Type,
		})
}
