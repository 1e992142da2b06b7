package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/chatsync/internal/handler/auth"
	"github.com/zhouzirui/chatsync/internal/handler/chat"
	"github.com/zhouzirui/chatsync/internal/handler/notification"
	"github.com/zhouzirui/chatsync/internal/handler/stream"
	"github.com/zhouzirui/chatsync/internal/middleware"
	chatService "github.com/zhouzirui/chatsync/internal/service/chat"
	notificationService "github.com/zhouzirui/chatsync/internal/service/notification"
	"github.com/zhouzirui/chatsync/internal/service/realtime"
	"github.com/zhouzirui/chatsync/internal/service/ui"
	"github.com/zhouzirui/chatsync/pkg/utils"
)

// sseHeartbeat SSE 心跳间隔。
const sseHeartbeat = 20 * time.Second

// Deps 路由依赖的核心服务。
type Deps struct {
	Engine *realtime.Engine
	Chat   *chatService.Service
	Feed   *notificationService.Feed
	Broker *ui.Broker
	Logger *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		auth.New(deps.Engine).RegisterRoutes(api)

		api.Get("/events", stream.New(deps.Broker, sseHeartbeat, logger).ServeHTTP)

		// 其余请求视为一次导航，按需重连。
		api.Group(func(app chi.Router) {
			app.Use(middleware.Ensure(func(r *http.Request) error {
				return deps.Engine.Ensure(r.Context())
			}, logger))

			chat.New(deps.Chat).RegisterRoutes(app)
			notification.New(deps.Feed).RegisterRoutes(app)
		})
	})

	return r
}
