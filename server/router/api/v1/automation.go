package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doitpm/assist/ai/automation"
)

type executeAutomationRequest struct {
	Message string `json:"message"`
}

// ExecuteAutomation runs a natural-language command through the full
// pipeline without touching any conversation. Pipeline failures come back
// as a successful HTTP response with success=false.
func (s *APIV1Service) ExecuteAutomation(c echo.Context) error {
	user := currentUser(c)
	request := &executeAutomationRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	if request.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message is required")
	}

	ctx := c.Request().Context()
	command, err := s.Parser.Parse(ctx, request.Message, map[string]any{
		"user_name": user.Name,
		"user_role": user.Role.String(),
	})
	if err != nil {
		return c.JSON(http.StatusOK, &automation.DispatchResult{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, s.Dispatcher.Execute(ctx, user.ID, command))
}

// ResetLocalHistory clears the local agent's rolling history for the user.
func (s *APIV1Service) ResetLocalHistory(c echo.Context) error {
	if s.LocalAgent == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Local agent is not configured")
	}
	user := currentUser(c)
	s.LocalAgent.ResetHistory(user.ID)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Conversation history cleared"})
}

// LocalHistory returns the user's rolling history buffer.
func (s *APIV1Service) LocalHistory(c echo.Context) error {
	if s.LocalAgent == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Local agent is not configured")
	}
	user := currentUser(c)
	history := s.LocalAgent.History(user.ID)
	return c.JSON(http.StatusOK, map[string]any{
		"history": history,
		"count":   len(history),
	})
}

// LocalAgentHealth probes the Ollama server and model availability.
func (s *APIV1Service) LocalAgentHealth(c echo.Context) error {
	if s.LocalAgent == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Local agent is not configured")
	}
	return c.JSON(http.StatusOK, s.LocalAgent.CheckHealth(c.Request().Context()))
}
