package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/chatsync/internal/config"
	"github.com/zhouzirui/chatsync/internal/handler"
	"github.com/zhouzirui/chatsync/internal/observability"
	"github.com/zhouzirui/chatsync/internal/service/auth"
	"github.com/zhouzirui/chatsync/internal/service/backend"
	"github.com/zhouzirui/chatsync/internal/service/chat"
	"github.com/zhouzirui/chatsync/internal/service/connection"
	"github.com/zhouzirui/chatsync/internal/service/notification"
	"github.com/zhouzirui/chatsync/internal/service/realtime"
	"github.com/zhouzirui/chatsync/internal/service/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	session := auth.NewSession()
	broker := ui.NewBroker(logger.Named("ui"))
	api := backend.New(cfg.Backend.BaseURL(), cfg.Backend.Timeout, session, logger.Named("backend"))

	chatService := chat.NewService(api, broker, logger)
	feed := notification.NewFeed(api, broker, logger)

	socketOpts := connection.Options{
		BaseURL:          cfg.Socket.URL,
		HandshakeTimeout: cfg.Socket.HandshakeTimeout,
		PingInterval:     cfg.Socket.PingInterval,
		PongWait:         cfg.Socket.PongWait,
		WriteTimeout:     cfg.Socket.WriteTimeout,
		MaxMessageSize:   cfg.Socket.MaxMessageSize,
	}
	engine := realtime.NewEngine(socketOpts, session, chatService, feed, broker, logger)
	defer engine.Logout()

	if cfg.Auth.Enabled() {
		if err := engine.Login(ctx, cfg.Auth.AccessToken, cfg.Auth.UserID); err != nil {
			logger.Warn("initial login could not open every socket", zap.Error(err))
		}
	} else {
		logger.Info("no access token configured, waiting for POST /api/auth/login")
	}

	router := handler.NewRouter(handler.Deps{
		Engine: engine,
		Chat:   chatService,
		Feed:   feed,
		Broker: broker,
		Logger: logger.Named("http"),
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("chatsync adapter listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
