package service

import (
	"context"
	"log/slog"
	"time"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
	"msgcore/internal/observability/metrics"
	"msgcore/internal/push"
	"msgcore/internal/store"
)

// DeliveryCoordinator owns the dual-write send path: persist to the durable
// store, then fan the broadcast publish, counter increment, and push
// notification out as independent tasks. Only the persist step can fail a
// send; everything after it degrades to a false flag on the receipt.
type DeliveryCoordinator struct {
	store  *store.Store
	bc     broadcast.Store
	unread *UnreadCounters
	push   push.Gateway
	perm   *PermissionEngine

	// wait bounds how long a send blocks on side-effect flags. Tasks that
	// miss the window keep running detached and report false.
	wait time.Duration
	now  func() time.Time
}

func NewDeliveryCoordinator(st *store.Store, bc broadcast.Store, unread *UnreadCounters, gw push.Gateway, perm *PermissionEngine, wait time.Duration) *DeliveryCoordinator {
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &DeliveryCoordinator{
		store:  st,
		bc:     bc,
		unread: unread,
		push:   gw,
		perm:   perm,
		wait:   wait,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type SendInput struct {
	Body          string
	AttachmentRef *string
}

// DeliveryReceipt is returned once persistence succeeds. The flags report
// which best-effort steps completed within the wait window.
type DeliveryReceipt struct {
	MessageID domain.MessageID `json:"messageId"`
	Path      string           `json:"path"`
	CreatedAt time.Time        `json:"createdAt"`
	Broadcast bool             `json:"broadcast"`
	Counter   bool             `json:"counter"`
	Push      bool             `json:"push"`
}

type MemberDelivery struct {
	UserID  domain.UserID `json:"userId"`
	Counter bool          `json:"counter"`
	Push    bool          `json:"push"`
}

type GroupDeliveryReceipt struct {
	MessageID domain.MessageID `json:"messageId"`
	Path      string           `json:"path"`
	CreatedAt time.Time        `json:"createdAt"`
	Broadcast bool             `json:"broadcast"`
	Members   []MemberDelivery `json:"members"`
}

// broadcastMessage is the denormalized copy published for live clients.
type broadcastMessage struct {
	ID            string                `json:"id"`
	From          domain.PublicProfile  `json:"from"`
	To            *domain.PublicProfile `json:"to,omitempty"`
	GroupID       string                `json:"groupId,omitempty"`
	Body          string                `json:"body,omitempty"`
	AttachmentRef *string               `json:"attachmentRef,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func (d *DeliveryCoordinator) SendDirect(ctx context.Context, sender *domain.User, to domain.UserID, in SendInput) (*DeliveryReceipt, error) {
	if !domain.HasContent(in.Body, in.AttachmentRef) {
		return nil, domain.ErrValidationFailed
	}
	if sender.ID == to {
		return nil, domain.ErrValidationFailed
	}

	recipient, err := d.perm.AuthorizeDirect(ctx, sender, to)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		FromUserID:    sender.ID,
		ToUserID:      recipient.ID,
		Body:          in.Body,
		AttachmentRef: in.AttachmentRef,
		CreatedAt:     d.now(),
	}
	if err := d.store.Messages().Append(ctx, msg); err != nil {
		metrics.MessagesSentTotal.WithLabelValues("direct", "failed").Inc()
		return nil, persistErr(err)
	}

	path := broadcast.MessagePath(sender.ID, recipient.ID, msg.ID)
	copyOut := broadcastMessage{
		ID:            msg.ID.String(),
		From:          sender.Profile(),
		Body:          msg.Body,
		AttachmentRef: msg.AttachmentRef,
		CreatedAt:     msg.CreatedAt,
	}
	profile := recipient.Profile()
	copyOut.To = &profile

	// Side effects run detached from the request context: an aborted
	// request must not retract a persisted send.
	bg := context.WithoutCancel(ctx)
	flags := runTasks(d.wait,
		func() bool { return d.publishCopy(bg, path, copyOut) },
		func() bool { return d.incrementDirect(bg, recipient.ID, sender.ID) },
		func() bool { return d.notify(bg, recipient, sender, "direct", path) },
	)

	delivery := "full"
	if !flags[0] || !flags[1] || !flags[2] {
		delivery = "degraded"
	}
	metrics.MessagesSentTotal.WithLabelValues("direct", delivery).Inc()

	return &DeliveryReceipt{
		MessageID: msg.ID,
		Path:      path,
		CreatedAt: msg.CreatedAt,
		Broadcast: flags[0],
		Counter:   flags[1],
		Push:      flags[2],
	}, nil
}

func (d *DeliveryCoordinator) SendGroup(ctx context.Context, sender *domain.User, groupID domain.GroupID, in SendInput) (*GroupDeliveryReceipt, error) {
	if !domain.HasContent(in.Body, in.AttachmentRef) {
		return nil, domain.ErrValidationFailed
	}

	group, members, err := d.perm.AuthorizeGroup(ctx, sender, groupID)
	if err != nil {
		return nil, err
	}

	msg := &domain.GroupMessage{
		GroupID:       group.ID,
		FromUserID:    sender.ID,
		Body:          in.Body,
		AttachmentRef: in.AttachmentRef,
		CreatedAt:     d.now(),
	}
	if err := d.store.Messages().AppendGroup(ctx, msg); err != nil {
		metrics.MessagesSentTotal.WithLabelValues("group", "failed").Inc()
		return nil, persistErr(err)
	}

	path := broadcast.GroupMessagePath(group.ID, msg.ID)
	copyOut := broadcastMessage{
		ID:            msg.ID.String(),
		From:          sender.Profile(),
		GroupID:       group.ID.String(),
		Body:          msg.Body,
		AttachmentRef: msg.AttachmentRef,
		CreatedAt:     msg.CreatedAt,
	}

	// One publish for the shared group path, then an independent
	// counter+notify pair per member. A slow or failing member must not
	// delay the others, so each member task runs on its own goroutine.
	bg := context.WithoutCancel(ctx)
	tasks := make([]func() bool, 0, 1+2*len(members))
	tasks = append(tasks, func() bool { return d.publishCopy(bg, path, copyOut) })
	for i := range members {
		member := members[i]
		tasks = append(tasks,
			func() bool { return d.incrementGroup(bg, member.ID, group.ID) },
			func() bool { return d.notify(bg, &member, sender, "group", path) },
		)
	}
	flags := runTasks(d.wait, tasks...)

	receipt := &GroupDeliveryReceipt{
		MessageID: msg.ID,
		Path:      path,
		CreatedAt: msg.CreatedAt,
		Broadcast: flags[0],
		Members:   make([]MemberDelivery, 0, len(members)),
	}
	degraded := !flags[0]
	for i, member := range members {
		md := MemberDelivery{
			UserID:  member.ID,
			Counter: flags[1+2*i],
			Push:    flags[2+2*i],
		}
		if !md.Counter || !md.Push {
			degraded = true
		}
		receipt.Members = append(receipt.Members, md)
	}

	delivery := "full"
	if degraded {
		delivery = "degraded"
	}
	metrics.MessagesSentTotal.WithLabelValues("group", delivery).Inc()

	return receipt, nil
}

func (d *DeliveryCoordinator) publishCopy(ctx context.Context, path string, copyOut broadcastMessage) bool {
	if err := d.bc.Publish(ctx, path, copyOut); err != nil {
		slog.Warn("broadcast publish failed", "path", path, "error", err)
		return false
	}
	return true
}

func (d *DeliveryCoordinator) incrementDirect(ctx context.Context, recipient, partner domain.UserID) bool {
	if err := d.unread.IncrementDirect(ctx, recipient, partner); err != nil {
		slog.Warn("unread increment failed", "recipient", recipient, "error", err)
		return false
	}
	return true
}

func (d *DeliveryCoordinator) incrementGroup(ctx context.Context, recipient domain.UserID, group domain.GroupID) bool {
	if err := d.unread.IncrementGroup(ctx, recipient, group); err != nil {
		slog.Warn("unread increment failed", "recipient", recipient, "group", group, "error", err)
		return false
	}
	return true
}

// notify pushes to regular recipients only. Admins watch the broadcast store
// through an always-open interface and never receive push.
func (d *DeliveryCoordinator) notify(ctx context.Context, recipient, sender *domain.User, kind, path string) bool {
	if recipient.IsAdmin() {
		return true
	}
	if recipient.PushToken == nil || *recipient.PushToken == "" {
		return true
	}
	results := d.push.Notify(ctx, []string{*recipient.PushToken}, "New message",
		sender.DisplayName, map[string]string{"type": kind, "path": path})
	for _, res := range results {
		if !res.OK {
			slog.Warn("push notify failed", "recipient", recipient.ID, "error", res.Err)
			return false
		}
	}
	return true
}

// runTasks starts every task on its own goroutine and collects success flags,
// waiting at most the given duration. A task that misses the window reports
// false but keeps running.
func runTasks(wait time.Duration, tasks ...func() bool) []bool {
	type result struct {
		idx int
		ok  bool
	}
	results := make(chan result, len(tasks))
	for i, task := range tasks {
		go func(idx int, fn func() bool) {
			results <- result{idx: idx, ok: fn()}
		}(i, task)
	}

	flags := make([]bool, len(tasks))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for range tasks {
		select {
		case res := <-results:
			flags[res.idx] = res.ok
		case <-timer.C:
			return flags
		}
	}
	return flags
}

func persistErr(err error) error {
	slog.Error("durable store append failed", "error", err)
	return domain.ErrPersistence
}
