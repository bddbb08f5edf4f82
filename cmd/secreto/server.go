package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/secreto-bot/secreto/moderation"
	"github.com/secreto-bot/secreto/moderation/banstore"
	"github.com/secreto-bot/secreto/moderation/directory"
	"github.com/secreto-bot/secreto/telegram"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
)

type Server struct {
	logger    *slog.Logger
	engine    *moderation.Engine
	client    *telegram.Client
	dir       *directory.MemDirectory
	bans      banstore.BanStore
	echo      *echo.Echo
	intentTTL time.Duration

	// Telegram redelivers webhook updates that were not acknowledged
	// in time; this keeps the last few thousand update ids so a
	// redelivery isn't processed twice.
	seenUpdates *lru.Cache[int64, struct{}]
}

type Config struct {
	Logger       *slog.Logger
	BotToken     string
	TelegramHost string
	ChannelID    int64
	MainAdmin    int64
	Moderators   []int64
	Privileged   []int64
	BotLink      string
	RedisURL     string
	IntentTTL    time.Duration
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var bans banstore.BanStore
	if config.RedisURL != "" {
		rbs, err := banstore.NewRedisBanStore(config.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis ban registry")
		bans = rbs
	} else {
		logger.Info("redis not configured, ban registry is in-memory only")
		bans = banstore.NewMemBanStore()
	}

	dir := directory.NewMemDirectory(config.MainAdmin, config.Moderators, config.Privileged)

	client := telegram.NewClient(config.BotToken)
	if config.TelegramHost != "" {
		client.Host = config.TelegramHost
	}

	engine := &moderation.Engine{
		Logger:    logger,
		Directory: dir,
		Bans:      bans,
		Transport: client,
		Registry:  moderation.NewRegistry(),
		ChannelID: config.ChannelID,
		BotLink:   config.BotLink,
	}

	seen, err := lru.New[int64, struct{}](8192)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:      logger,
		engine:      engine,
		client:      client,
		dir:         dir,
		bans:        bans,
		intentTTL:   config.IntentTTL,
		seenUpdates: seen,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger.With("system", "http")))
	e.Use(echoprometheus.NewMiddleware("secreto"))
	e.GET("/_health", s.handleHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/webhook", s.handleWebhook)
	s.echo = e

	return s, nil
}

// RegisterWebhook points the Bot API at this daemon's public URL.
func (s *Server) RegisterWebhook(ctx context.Context, url string) error {
	if err := s.client.SetWebhook(ctx, url); err != nil {
		return err
	}
	s.logger.Info("registered telegram webhook", "url", url)
	return nil
}

func (s *Server) RunAPI(listen string) error {
	s.logger.Info("starting webhook listener", "bind", listen)
	if err := s.echo.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// RunExpireIntents periodically returns confessions parked behind a
// silent moderator's reject to the pending pool.
func (s *Server) RunExpireIntents(ctx context.Context) error {
	if s.intentTTL <= 0 {
		return nil
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			restored := s.engine.Registry.ExpireIntents(s.intentTTL)
			for _, rec := range restored {
				intentsExpired.Inc()
				s.logger.Info("rejection intent expired, confession returned to pool", "confession", rec.ID)
			}
		}
	}
}

type healthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Pending  int    `json:"pendingCount"`
	Resolved int    `json:"resolvedCount"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(200, healthStatus{
		Status:   "ok",
		Version:  serverVersion(),
		Pending:  s.engine.Registry.PendingCount(),
		Resolved: s.engine.Registry.ResolvedCount(),
	})
}

func (s *Server) handleWebhook(c echo.Context) error {
	var upd telegram.Update
	if err := c.Bind(&upd); err != nil {
		s.logger.Warn("malformed webhook update", "err", err)
		return c.NoContent(http.StatusBadRequest)
	}
	updatesReceived.Inc()

	if dup, _ := s.seenUpdates.ContainsOrAdd(upd.UpdateID, struct{}{}); dup {
		updatesDuplicate.Inc()
		return c.NoContent(http.StatusOK)
	}

	// always ack: handler errors become user-facing replies, not webhook retries
	s.HandleUpdate(c.Request().Context(), &upd)
	return c.NoContent(http.StatusOK)
}
