package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"msgcore/internal/broadcast"
	"msgcore/internal/domain"
	"msgcore/internal/dto"
	"msgcore/internal/service"
)

type Handler struct {
	auth       *service.AuthService
	guard      *service.SessionGuard
	delivery   *service.DeliveryCoordinator
	mailbox    *service.Mailbox
	unread     *service.UnreadCounters
	violations *service.ViolationTracker
	bc         broadcast.Store
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res, err := h.auth.Register(r.Context(), req, clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res, err := h.auth.Login(r.Context(), req, clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res, err := h.guard.Refresh(r.Context(), req.SessionToken, req.DeviceFingerprint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		writeError(w, domain.ErrInvalidSession)
		return
	}
	if err := h.guard.Logout(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSendDirect(w http.ResponseWriter, r *http.Request) {
	var req dto.SendDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	to, err := uuid.Parse(req.To)
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}
	receipt, err := h.delivery.SendDirect(r.Context(), userFrom(r.Context()), to, service.SendInput{
		Body:          req.Body,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleSendGroup(w http.ResponseWriter, r *http.Request) {
	var req dto.SendGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}
	receipt, err := h.delivery.SendGroup(r.Context(), userFrom(r.Context()), groupID, service.SendInput{
		Body:          req.Body,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	partner, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	msgs, err := h.mailbox.Conversation(r.Context(), userFrom(r.Context()), partner, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.MessageView{
			ID:            m.ID.String(),
			From:          m.FromUserID.String(),
			To:            m.ToUserID.String(),
			Body:          m.Body,
			AttachmentRef: m.AttachmentRef,
			CreatedAt:     m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGroupHistory(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}
	msgs, err := h.mailbox.GroupHistory(r.Context(), userFrom(r.Context()), groupID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.MessageView{
			ID:            m.ID.String(),
			From:          m.FromUserID.String(),
			GroupID:       m.GroupID.String(),
			Body:          m.Body,
			AttachmentRef: m.AttachmentRef,
			CreatedAt:     m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMarkConversationRead(w http.ResponseWriter, r *http.Request) {
	partner, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.mailbox.MarkConversationRead(r.Context(), userFrom(r.Context()), partner); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkGroupRead(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}
	if err := h.mailbox.MarkGroupRead(r.Context(), userFrom(r.Context()), groupID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnread(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.unread.Get(r.Context(), userFrom(r.Context()).ID))
}

func (h *Handler) handlePushToken(w http.ResponseWriter, r *http.Request) {
	var req dto.PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := h.auth.SetPushToken(r.Context(), userFrom(r.Context()).ID, req.Token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReportViolation(w http.ResponseWriter, r *http.Request) {
	var req dto.ViolationReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res, err := h.violations.Record(r.Context(), userFrom(r.Context()).ID,
		domain.ViolationType(req.Type), req.DeviceInfo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAdminBlock(w http.ResponseWriter, r *http.Request) {
	target, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var req dto.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "blocked by administrator"
	}
	if err := h.violations.Block(r.Context(), target, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminUnblock(w http.ResponseWriter, r *http.Request) {
	target, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.violations.Unblock(r.Context(), target); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminViolations(w http.ResponseWriter, r *http.Request) {
	target, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	events, err := h.violations.List(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.ViolationView, 0, len(events))
	for _, ev := range events {
		out = append(out, dto.ViolationView{Type: string(ev.Type), CreatedAt: ev.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryLimit(r *http.Request) int {
	const defaultLimit = 200
	q := r.URL.Query().Get("limit")
	if q == "" {
		return defaultLimit
	}
	var n int
	for _, c := range q {
		if c < '0' || c > '9' {
			return defaultLimit
		}
		n = n*10 + int(c-'0')
		if n > 1000 {
			return 1000
		}
	}
	if n <= 0 {
		return defaultLimit
	}
	return n
}
