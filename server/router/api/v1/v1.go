// Package v1 exposes the REST surface: conversations and chat, the
// automation pipeline, agent channel endpoints, and the local agent
// controls.
package v1

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/doitpm/assist/ai/assistant"
	"github.com/doitpm/assist/ai/automation"
	"github.com/doitpm/assist/ai/localagent"
	"github.com/doitpm/assist/ai/taskdomain"
	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/internal/profile"
	"github.com/doitpm/assist/server/auth"
	"github.com/doitpm/assist/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	Assistant  *assistant.Service
	Parser     *automation.Parser
	Dispatcher *automation.Dispatcher
	Domain     *taskdomain.Service
	LocalAgent *localagent.Agent

	authenticator *auth.Authenticator

	// extractionSemaphore caps concurrent file extractions.
	extractionSemaphore *semaphore.Weighted

	limiterMu sync.Mutex
	limiters  map[int32]*rate.Limiter
}

func NewAPIV1Service(secret string, p *profile.Profile, s *store.Store, assistantService *assistant.Service, parser *automation.Parser, dispatcher *automation.Dispatcher, domain *taskdomain.Service, localAgent *localagent.Agent) *APIV1Service {
	return &APIV1Service{
		Profile:             p,
		Store:               s,
		Assistant:           assistantService,
		Parser:              parser,
		Dispatcher:          dispatcher,
		Domain:              domain,
		LocalAgent:          localAgent,
		authenticator:       auth.NewAuthenticator(s, secret, p.AgentServiceToken, p.AgentServiceUserID),
		extractionSemaphore: semaphore.NewWeighted(3),
		limiters:            map[int32]*rate.Limiter{},
	}
}

// Register mounts all routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.Use(middleware.CORS())
	api.Use(s.authMiddleware)

	api.POST("/conversations", s.CreateConversation)
	api.GET("/conversations", s.ListConversations)
	api.GET("/conversations/:uid/messages", s.ListMessages)
	api.PATCH("/conversations/:uid", s.RenameConversation)
	api.DELETE("/conversations/:uid", s.DeleteConversation)
	api.POST("/conversations/:uid/messages", s.SendMessage, s.rateLimitMiddleware)
	api.POST("/conversations/:uid/stream", s.StreamMessage, s.rateLimitMiddleware)
	api.POST("/conversations/:uid/files", s.UploadFile)

	api.POST("/automation/execute", s.ExecuteAutomation)

	agent := api.Group("/agent")
	agent.GET("/projects", s.AgentListProjects)
	agent.GET("/tasks", s.AgentListTasks)
	agent.GET("/users", s.AgentListUsers)
	agent.GET("/sprints", s.AgentListSprints)
	agent.GET("/statistics", s.AgentStatistics)
	agent.POST("/automation/tasks", s.AgentCreateTask)
	agent.PUT("/automation/tasks/:id/assign", s.AgentAssignTask)
	agent.POST("/automation/sprints", s.AgentCreateSprint)
	agent.GET("/automation/projects/:id/assignable-users", s.AgentAssignableUsers)

	local := api.Group("/local-agent")
	local.POST("/reset-history", s.ResetLocalHistory)
	local.GET("/history", s.LocalHistory)
	local.GET("/health", s.LocalAgentHealth)
}

const (
	userContextKey    = "assist.user"
	channelContextKey = "assist.service-channel"
)

// authMiddleware authenticates every /api/v1 request. Both the JWT bearer
// token and the agent service key are accepted.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		result := s.authenticator.Authenticate(
			c.Request().Context(),
			c.Request().Header.Get("Authorization"),
			c.Request().Header.Get("X-Agent-Key"),
		)
		if result == nil {
			return echo.NewHTTPError(http.StatusUnauthorized,
				"Authentication required. Provide Bearer token or X-Agent-Key header")
		}
		c.Set(userContextKey, result.User)
		c.Set(channelContextKey, result.ServiceChannel)
		return next(c)
	}
}

// rateLimitMiddleware applies a per-user token bucket on chat sends.
func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user != nil && !s.limiterFor(user.ID).Allow() {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, slow down")
		}
		return next(c)
	}
}

func (s *APIV1Service) limiterFor(userID int32) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	limiter, ok := s.limiters[userID]
	if !ok {
		// One chat send per second sustained, bursts of five.
		limiter = rate.NewLimiter(rate.Limit(1), 5)
		s.limiters[userID] = limiter
	}
	return limiter
}

func currentUser(c echo.Context) *store.User {
	user, _ := c.Get(userContextKey).(*store.User)
	return user
}

func isServiceChannel(c echo.Context) bool {
	channel, _ := c.Get(channelContextKey).(bool)
	return channel
}

// HealthCheck reports service liveness.
func (s *APIV1Service) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": s.Profile.Version,
	})
}

// httpError converts a typed service error into an echo HTTP error.
func httpError(err error) error {
	status := apierror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		return echo.NewHTTPError(status, "Internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
