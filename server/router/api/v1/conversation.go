package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/doitpm/assist/ai/assistant"
	"github.com/doitpm/assist/store"
)

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content        string `json:"content"`
	IncludeContext bool   `json:"include_context"`
	UseLocalAgent  bool   `json:"use_local_agent"`
}

type conversationResponse struct {
	UID          string `json:"uid"`
	Title        string `json:"title"`
	MessageCount int32  `json:"message_count"`
	CreatedTs    int64  `json:"created_ts"`
	UpdatedTs    int64  `json:"updated_ts"`
}

func toConversationResponse(c *store.Conversation) *conversationResponse {
	return &conversationResponse{
		UID:          c.UID,
		Title:        c.Title,
		MessageCount: c.MessageCount,
		CreatedTs:    c.CreatedTs,
		UpdatedTs:    c.UpdatedTs,
	}
}

type messageResponse struct {
	ID          int64              `json:"id"`
	Role        string             `json:"role"`
	Content     string             `json:"content"`
	Attachments []store.Attachment `json:"attachments,omitempty"`
	ImageURL    string             `json:"image_url,omitempty"`
	TokensUsed  int32              `json:"tokens_used,omitempty"`
	CreatedTs   int64              `json:"created_ts"`
}

func toMessageResponse(m *store.Message) *messageResponse {
	return &messageResponse{
		ID:          m.ID,
		Role:        string(m.Role),
		Content:     m.Content,
		Attachments: m.Attachments,
		ImageURL:    m.ImageURL,
		TokensUsed:  m.TokensUsed,
		CreatedTs:   m.CreatedTs,
	}
}

func (s *APIV1Service) CreateConversation(c echo.Context) error {
	user := currentUser(c)
	request := &createConversationRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	conversation, err := s.Assistant.CreateConversation(c.Request().Context(), user.ID, request.Title)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(conversation))
}

func (s *APIV1Service) ListConversations(c echo.Context) error {
	user := currentUser(c)
	conversations, err := s.Assistant.ListConversations(c.Request().Context(), user.ID)
	if err != nil {
		return httpError(err)
	}
	response := make([]*conversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		response = append(response, toConversationResponse(conversation))
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": response})
}

func (s *APIV1Service) ListMessages(c echo.Context) error {
	user := currentUser(c)
	messages, err := s.Assistant.ListMessages(c.Request().Context(), c.Param("uid"), user.ID)
	if err != nil {
		return httpError(err)
	}
	response := make([]*messageResponse, 0, len(messages))
	for _, message := range messages {
		response = append(response, toMessageResponse(message))
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": response})
}

func (s *APIV1Service) RenameConversation(c echo.Context) error {
	user := currentUser(c)
	request := &createConversationRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	conversation, err := s.Assistant.RenameConversation(c.Request().Context(), c.Param("uid"), user.ID, request.Title)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(conversation))
}

func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	user := currentUser(c)
	if err := s.Assistant.DeleteConversation(c.Request().Context(), c.Param("uid"), user.ID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *APIV1Service) SendMessage(c echo.Context) error {
	user := currentUser(c)
	request := &sendMessageRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}

	result, err := s.Assistant.Send(c.Request().Context(), c.Param("uid"), user.ID, request.Content, assistant.SendOptions{
		IncludeContext: request.IncludeContext,
		UseLocalAgent:  request.UseLocalAgent,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    toMessageResponse(result.Message),
		"model":      result.Model,
		"rag_used":   result.RAGUsed,
		"automation": result.Automation,
		"tokens":     result.Tokens,
	})
}

// StreamMessage streams a chat reply as server-sent events, one JSON
// payload per event.
func (s *APIV1Service) StreamMessage(c echo.Context) error {
	user := currentUser(c)
	request := &sendMessageRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}

	response := c.Response()
	response.Header().Set(echo.HeaderContentType, "text/event-stream")
	response.Header().Set("Cache-Control", "no-cache")
	response.Header().Set("Connection", "keep-alive")
	response.WriteHeader(http.StatusOK)

	emit := func(event assistant.StreamEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(response, "data: %s\n\n", payload); err != nil {
			return err
		}
		response.Flush()
		return nil
	}

	err := s.Assistant.SendStream(c.Request().Context(), c.Param("uid"), user.ID, request.Content, assistant.SendOptions{
		IncludeContext: request.IncludeContext,
		UseLocalAgent:  request.UseLocalAgent,
	}, emit)
	if err != nil {
		// Headers are already written, deliver the error in-band.
		_ = emit(assistant.StreamEvent{Error: err.Error()})
	}
	return nil
}

// UploadFile saves a multipart upload under the data directory and attaches
// it to the conversation. Extraction concurrency is capped.
func (s *APIV1Service) UploadFile(c echo.Context) error {
	user := currentUser(c)
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file field").SetInternal(err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable upload").SetInternal(err)
	}
	defer src.Close()

	uploadDir := filepath.Join(s.Profile.Data, "uploads", "ai_attachments")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to prepare upload directory").SetInternal(err)
	}
	savedPath := filepath.Join(uploadDir, uuid.New().String()+filepath.Ext(fileHeader.Filename))

	dst, err := os.Create(savedPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save upload").SetInternal(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save upload").SetInternal(err)
	}
	dst.Close()

	if err := s.extractionSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Server busy").SetInternal(err)
	}
	defer s.extractionSemaphore.Release(1)

	result, err := s.Assistant.AttachFile(ctx, c.Param("uid"), user.ID,
		fileHeader.Filename, savedPath, fileHeader.Header.Get("Content-Type"), fileHeader.Size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}
