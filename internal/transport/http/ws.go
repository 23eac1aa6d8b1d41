package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS middleware in front.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
)

// handleSubscribe streams broadcast-store events for one path prefix over a
// websocket. The caller may only watch prefixes they could read anyway:
// their own unread tree, conversations they participate in, or groups they
// belong to. Admins may watch anything, including the alert feed.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	prefix := strings.Trim(r.URL.Query().Get("prefix"), "/")
	if prefix == "" {
		prefix = broadcast.UnreadRoot(user.ID)
	}
	if !h.prefixAllowed(r, user, prefix) {
		writeError(w, domain.ErrForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := make(chan broadcast.Event, wsSendBuffer)
	cancel := h.bc.Subscribe(prefix, func(ev broadcast.Event) {
		select {
		case events <- ev:
		default:
			// Slow consumer: drop rather than block the publisher.
		}
	})
	defer cancel()

	// Reader goroutine only to detect client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) prefixAllowed(r *http.Request, user *domain.User, prefix string) bool {
	if user.IsAdmin() {
		return true
	}
	parts := broadcast.Split(prefix)
	if len(parts) < 2 {
		return false
	}
	switch parts[0] {
	case "unread":
		return parts[1] == user.ID.String()
	case "conversations":
		return strings.Contains(parts[1], user.ID.String())
	case "groups":
		groupID, err := uuid.Parse(parts[1])
		if err != nil {
			return false
		}
		_, err = h.mailbox.GroupHistory(r.Context(), user, groupID, 1)
		return err == nil
	default:
		return false
	}
}
