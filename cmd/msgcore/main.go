package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"msgcore/internal/broadcast"
	"msgcore/internal/config"
	"msgcore/internal/observability/logging"
	"msgcore/internal/observability/metrics"
	"msgcore/internal/push"
	"msgcore/internal/service"
	"msgcore/internal/store"
	httpx "msgcore/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "msgcore",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	cfg := config.Load()
	metrics.MustRegister("msgcore")

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := store.New(gdb)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("automigrate", "error", err)
		os.Exit(1)
	}

	bc := broadcast.NewMemoryStore()

	var gw push.Gateway = push.Noop{}
	if cfg.PushEndpoint != "" {
		gw = push.NewHTTPGateway(cfg.PushEndpoint, cfg.PushAPIKey, cfg.PushTimeout)
	}

	unread := service.NewUnreadCounters(bc)
	perm := service.NewPermissionEngine(st)
	violations := service.NewViolationTracker(st, bc, gw)
	guard := service.NewSessionGuard(service.TokenConfig{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		SigningKey: []byte(cfg.SigningKey),
	}, st, violations)
	auth := service.NewAuthService(st, service.NewPasswordServiceArgon2id(), guard)
	delivery := service.NewDeliveryCoordinator(st, bc, unread, gw, perm, cfg.SideEffectWait)
	mailbox := service.NewMailbox(st, unread)

	router := httpx.NewRouter(httpx.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		TrustProxy:  cfg.TrustProxy,
	}, auth, guard, delivery, mailbox, unread, violations, bc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("msgcore listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
