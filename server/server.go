// Package server assembles the HTTP service: the echo instance, the AI
// subsystem wiring, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/doitpm/assist/ai/assistant"
	"github.com/doitpm/assist/ai/automation"
	"github.com/doitpm/assist/ai/llm"
	"github.com/doitpm/assist/ai/localagent"
	"github.com/doitpm/assist/ai/rag"
	"github.com/doitpm/assist/ai/taskdomain"
	"github.com/doitpm/assist/ai/usercontext"
	"github.com/doitpm/assist/internal/profile"
	"github.com/doitpm/assist/plugin/fileparser"
	apiv1 "github.com/doitpm/assist/server/router/api/v1"
	"github.com/doitpm/assist/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
}

func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	e := echo.New()
	e.Debug = p.IsDev()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger())

	var cloudLLM llm.Service
	if p.IsCloudLLMEnabled() {
		var err error
		cloudLLM, err = llm.NewService(&llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create cloud LLM service")
		}
		slog.Info("cloud LLM service initialized", "provider", p.LLMProvider, "model", p.LLMModel)
	} else {
		slog.Warn("cloud LLM is not configured, cloud chat is disabled")
	}

	localLLM, err := llm.NewService(&llm.Config{
		Provider: "ollama",
		Model:    p.LocalLLMModel,
		BaseURL:  p.LocalLLMBaseURL,
		Timeout:  p.LocalLLMTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create local LLM service")
	}

	// Vector retrieval needs pgvector; other drivers degrade to raw context.
	var retriever rag.Retriever = rag.Unavailable{}
	if p.Driver == "postgres" && p.EmbeddingAPIKey != "" {
		retriever = rag.NewRetriever(&rag.Config{
			APIKey:  p.EmbeddingAPIKey,
			BaseURL: p.EmbeddingBaseURL,
			Model:   p.EmbeddingModel,
		}, s)
		slog.Info("context retriever initialized", "model", p.EmbeddingModel)
	}

	localAgent := localagent.New(localLLM, retriever, p.LocalLLMModel, p.LocalLLMBaseURL)
	analyzer := usercontext.NewAnalyzer(s)
	domain := taskdomain.NewService(s)
	gate := automation.NewGate(s)
	resolver := automation.NewResolver(s)
	dispatcher := automation.NewDispatcher(s, resolver, gate, domain)

	// The parser prefers the cloud LLM and falls back to the local model
	// when no cloud provider is configured. Regex fallback still applies
	// below either one.
	parserLLM := cloudLLM
	if parserLLM == nil {
		parserLLM = localLLM
	}
	parser := automation.NewParser(parserLLM)

	files := fileparser.New(p.TikaServerURL)
	assistantService := assistant.NewService(s, analyzer, parser, dispatcher, cloudLLM, localAgent, files)

	server := &Server{
		Profile:    p,
		Store:      s,
		echoServer: e,
		apiV1:      apiv1.NewAPIV1Service(p.Secret, p, s, assistantService, parser, dispatcher, domain, localAgent),
	}
	server.apiV1.Register(e)

	return server, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server shutdown complete")
}

// requestLogger logs each request with latency and status.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Warn("http request", attrs...)
			} else {
				slog.Info("http request", attrs...)
			}
			return nil
		},
	})
}
