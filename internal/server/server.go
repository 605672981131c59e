package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/castle/internal/checklist"
	"github.com/dukerupert/castle/internal/clock"
	"github.com/dukerupert/castle/internal/config"
	"github.com/dukerupert/castle/internal/handler"
	"github.com/dukerupert/castle/internal/metrics"
	"github.com/dukerupert/castle/internal/middleware"
	"github.com/dukerupert/castle/internal/notify"
	"github.com/dukerupert/castle/internal/push"
	"github.com/dukerupert/castle/internal/store"
	"github.com/dukerupert/castle/internal/telegram"
	ws "github.com/dukerupert/castle/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	engine      *checklist.Engine
	dispatcher  *notify.Dispatcher
	checklistH  *handler.ChecklistHandler
	adminH      *handler.AdminHandler
	pushH       *handler.PushHandler
	healthH     *handler.HealthHandler
	rateLimiter *middleware.RateLimiter
	cfg         config.Config
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, clk clock.Clock, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	catalogStore := store.NewCatalogStore(db)
	staffStore := store.NewStaffStore(db)
	completionStore := store.NewCompletionStore(db)
	signatureStore := store.NewSignatureStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := PushService(cfg)
	notifyLogger := logger.With("component", "notify")
	sinks := append([]notify.Sink{notify.NewHubSink(hub)}, OutboundSinks(cfg, pushSvc, pushStore, notifyLogger)...)

	dispatcher := notify.NewDispatcher(notifyLogger, cfg.NotifyTimeout, sinks...)

	engine := checklist.New(clk, checklist.Stores{
		Catalog:     catalogStore,
		Staff:       staffStore,
		Completions: completionStore,
		Signatures:  signatureStore,
	}, dispatcher, logger.With("component", "checklist"), cfg.StoreTimeout)

	return &Server{
		db:          db,
		hub:         hub,
		engine:      engine,
		dispatcher:  dispatcher,
		checklistH:  handler.NewChecklistHandler(engine, logger.With("component", "checklist_handler")),
		adminH:      handler.NewAdminHandler(engine, logger.With("component", "admin_handler")),
		pushH:       handler.NewPushHandler(pushStore, staffStore, pushSvc, cfg.StoreTimeout, logger.With("component", "push_handler")),
		healthH:     handler.NewHealthHandler(db),
		rateLimiter: middleware.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// PushService builds the Web Push client from the VAPID settings. It is
// unconfigured when the keys are empty.
func PushService(cfg config.Config) *push.Service {
	return push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, push.WithSubscriber(cfg.VAPIDSubscriber))
}

// OutboundSinks builds the notification sinks that leave the process:
// Telegram and Web Push, each only when configured.
func OutboundSinks(cfg config.Config, pushSvc *push.Service, pushStore *store.PushStore, logger *slog.Logger) []notify.Sink {
	var sinks []notify.Sink

	if cfg.TelegramEnabled() {
		tg := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID)
		sinks = append(sinks, notify.NewTelegramSink(tg, cfg.Location()))
	} else {
		logger.Info("telegram not configured, chat notifications disabled")
	}

	if cfg.PushEnabled() {
		sinks = append(sinks, notify.NewPushSink(pushSvc, pushStore, logger))
	} else {
		logger.Info("VAPID keys not configured, push notifications disabled")
	}

	return sinks
}

// Engine returns the transition engine.
func (s *Server) Engine() *checklist.Engine {
	return s.engine
}

// Hub returns the live-update hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Close waits for in-flight notifications, bounded by ctx.
func (s *Server) Close(ctx context.Context) error {
	return s.dispatcher.Close(ctx)
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /up", s.healthH.Up)
	mux.HandleFunc("GET /health", s.healthH.Health)
	mux.HandleFunc("GET /health/database", s.healthH.Health)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /api/checklists", s.checklistH.ListChecklists)
	mux.HandleFunc("GET /api/checklists/{name}/chores", s.checklistH.State)
	mux.HandleFunc("GET /api/checklists/{name}/signatures", s.checklistH.Signatures)
	mux.HandleFunc("POST /api/checklists/{name}/submit", s.rateLimited(s.checklistH.Submit))
	mux.HandleFunc("POST /api/chores/{id}/toggle", s.rateLimited(s.checklistH.Toggle))
	mux.HandleFunc("POST /api/chores/{id}/comment", s.rateLimited(s.checklistH.Comment))
	mux.HandleFunc("POST /api/sections/{id}/complete", s.rateLimited(s.checklistH.CompleteSection))
	mux.HandleFunc("GET /api/staff", s.checklistH.ListStaff)

	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.rateLimited(s.pushH.Subscribe))
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.rateLimited(s.pushH.Unsubscribe))

	if s.cfg.AdminEnabled() {
		adminMux := http.NewServeMux()
		s.registerAdminRoutes(adminMux)
		mux.Handle("/admin/", middleware.RequireAdmin(s.cfg.AdminUsername, s.cfg.AdminPasswordHash)(adminMux))
	} else {
		s.logger.Info("ADMIN_PASSWORD_HASH not set, admin routes disabled")
	}

	var h http.Handler = mux
	h = middleware.Recoverer(s.logger.With("component", "http"))(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/checklists", s.adminH.CreateChecklist)
	mux.HandleFunc("PATCH /admin/checklists/{name}", s.adminH.UpdateChecklist)
	mux.HandleFunc("DELETE /admin/checklists/{name}", s.adminH.DeleteChecklist)
	mux.HandleFunc("POST /admin/checklists/{name}/reset", s.adminH.Reset)
	mux.HandleFunc("GET /admin/checklists/{name}/sections", s.adminH.ListSections)
	mux.HandleFunc("POST /admin/checklists/{name}/sections", s.adminH.CreateSection)
	mux.HandleFunc("PUT /admin/sections/{id}", s.adminH.UpdateSection)
	mux.HandleFunc("DELETE /admin/sections/{id}", s.adminH.DeleteSection)
	mux.HandleFunc("POST /admin/sections/{id}/chores", s.adminH.CreateChore)
	mux.HandleFunc("PUT /admin/chores/{id}", s.adminH.UpdateChore)
	mux.HandleFunc("DELETE /admin/chores/{id}", s.adminH.DeleteChore)
	mux.HandleFunc("POST /admin/staff", s.adminH.AddStaff)
	mux.HandleFunc("DELETE /admin/staff/{name}", s.adminH.DeactivateStaff)
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.cfg.RateLimit, time.Minute)
	return rl(h).ServeHTTP
}
