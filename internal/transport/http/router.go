package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"msgcore/internal/broadcast"
	obsmw "msgcore/internal/observability/middleware"
	"msgcore/internal/service"
)

type RouterConfig struct {
	CORSOrigins string
	RateLimit   int
	TrustProxy  bool
}

func NewRouter(
	cfg RouterConfig,
	auth *service.AuthService,
	guard *service.SessionGuard,
	delivery *service.DeliveryCoordinator,
	mailbox *service.Mailbox,
	unread *service.UnreadCounters,
	violations *service.ViolationTracker,
	bc broadcast.Store,
) http.Handler {
	h := &Handler{
		auth:       auth,
		guard:      guard,
		delivery:   delivery,
		mailbox:    mailbox,
		unread:     unread,
		violations: violations,
		bc:         bc,
	}

	r := chi.NewRouter()

	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)

	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", fingerprintHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireSession(guard))

		r.Post("/v1/auth/logout", h.handleLogout)
		r.Put("/v1/users/push-token", h.handlePushToken)

		r.Post("/v1/messages/direct", h.handleSendDirect)
		r.Post("/v1/messages/group", h.handleSendGroup)

		r.Get("/v1/conversations/{userID}", h.handleConversation)
		r.Post("/v1/conversations/{userID}/read", h.handleMarkConversationRead)
		r.Get("/v1/groups/{groupID}/messages", h.handleGroupHistory)
		r.Post("/v1/groups/{groupID}/read", h.handleMarkGroupRead)

		r.Get("/v1/unread", h.handleUnread)
		r.Get("/v1/subscribe", h.handleSubscribe)

		r.Post("/v1/violations", h.handleReportViolation)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/v1/admin/users/{userID}/block", h.handleAdminBlock)
			r.Post("/v1/admin/users/{userID}/unblock", h.handleAdminUnblock)
			r.Get("/v1/admin/users/{userID}/violations", h.handleAdminViolations)
		})
	})

	return r
}

func splitOrigins(raw string) []string {
	out := []string{}
	for _, o := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
