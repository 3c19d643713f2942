package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/konusmate/mate/ai/core/embedding"
	"github.com/konusmate/mate/ai/core/llm"
	"github.com/konusmate/mate/ai/metrics"
	"github.com/konusmate/mate/internal/profile"
	apiv1 "github.com/konusmate/mate/server/router/api/v1"
	"github.com/konusmate/mate/server/service/gc"
	"github.com/konusmate/mate/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	collector  *gc.Collector
}

func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   st,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	corsConfig := middleware.DefaultCORSConfig
	if len(profile.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = profile.CORSOrigins
	}
	echoServer.Use(middleware.CORSWithConfig(corsConfig))

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	exporter := metrics.NewExporter(metrics.DefaultConfig())
	echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	llmService, err := llm.NewService(&llm.Config{
		Provider:    profile.LLMProvider,
		Model:       profile.LLMModel,
		APIKey:      profile.LLMAPIKey,
		BaseURL:     profile.LLMBaseURL,
		MaxTokens:   profile.LLMMaxTokens,
		Temperature: profile.LLMTemperature,
		Timeout:     profile.LLMTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create llm service")
	}

	embedder := embedding.NewProvider(embedding.Config{
		Provider: profile.EmbeddingProvider,
		Model:    profile.EmbeddingModel,
		APIKey:   profile.EmbeddingAPIKey,
		BaseURL:  profile.EmbeddingBaseURL,
	})

	apiV1Service := apiv1.NewAPIV1Service(profile.JWTSecret, profile, st, llmService, embedder, exporter)
	apiV1Service.RegisterRoutes(echoServer)

	s.echoServer = echoServer
	s.collector = gc.NewCollector(st, exporter)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.collector.Start(); err != nil {
		return errors.Wrap(err, "failed to start memory gc")
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.collector.Stop()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("server shutdown complete")
}
