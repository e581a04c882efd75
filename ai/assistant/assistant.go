// Package assistant orchestrates chat conversations end to end: ownership
// checks, automation-first routing, context injection, persistence, token
// backfill, and auto-titling. Both the cloud and the local agent share this
// flow; only the generation step differs.
package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/doitpm/assist/ai/automation"
	"github.com/doitpm/assist/ai/llm"
	"github.com/doitpm/assist/ai/localagent"
	"github.com/doitpm/assist/ai/usercontext"
	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/plugin/fileparser"
	"github.com/doitpm/assist/store"
)

const (
	// contextWindow is the number of most recent messages handed to the LLM.
	contextWindow = 20

	cloudSystemPrompt = `You are DOIT AI, the assistant built into the DOIT
task management product. You help users understand and organize their tasks,
sprints, and projects. Ground your answers in the user data provided; when
referencing tasks, include the ticket ID. Be concise and actionable.`
)

// Store is the persistence slice the assistant needs.
type Store interface {
	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
	GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error)
	ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error)
	UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error)
	DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error
	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
	UpdateMessageTokens(ctx context.Context, update *store.UpdateMessageTokens) error
}

// Service is the conversation orchestrator.
type Service struct {
	store      Store
	analyzer   *usercontext.Analyzer
	parser     *automation.Parser
	dispatcher *automation.Dispatcher
	cloud      llm.Service
	local      *localagent.Agent
	files      *fileparser.Parser
}

func NewService(s Store, analyzer *usercontext.Analyzer, parser *automation.Parser, dispatcher *automation.Dispatcher, cloud llm.Service, local *localagent.Agent, files *fileparser.Parser) *Service {
	return &Service{
		store:      s,
		analyzer:   analyzer,
		parser:     parser,
		dispatcher: dispatcher,
		cloud:      cloud,
		local:      local,
		files:      files,
	}
}

// CreateConversation opens a conversation for the user.
func (s *Service) CreateConversation(ctx context.Context, userID int32, title string) (*store.Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}
	now := time.Now().Unix()
	return s.store.CreateConversation(ctx, &store.Conversation{
		UID:       shortuuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedTs: now,
		UpdatedTs: now,
	})
}

// ListConversations lists the user's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, userID int32) ([]*store.Conversation, error) {
	return s.store.ListConversations(ctx, &store.FindConversation{UserID: &userID})
}

// Verify loads a conversation by UID and checks ownership. Missing
// conversations are NotFound; someone else's are Forbidden.
func (s *Service) Verify(ctx context.Context, uid string, userID int32) (*store.Conversation, error) {
	conversation, err := s.store.GetConversation(ctx, &store.FindConversation{UID: &uid})
	if err != nil {
		return nil, apierror.Upstream("failed to load conversation: %v", err)
	}
	if conversation == nil {
		return nil, apierror.NotFound("Conversation not found")
	}
	if conversation.UserID != userID {
		return nil, apierror.Forbidden("You do not own this conversation")
	}
	return conversation, nil
}

// ListMessages returns the conversation's messages in creation order.
func (s *Service) ListMessages(ctx context.Context, uid string, userID int32) ([]*store.Message, error) {
	conversation, err := s.Verify(ctx, uid, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
}

// DeleteConversation removes a conversation and all its messages, and
// clears the local agent's history buffer for the owner.
func (s *Service) DeleteConversation(ctx context.Context, uid string, userID int32) error {
	conversation, err := s.Verify(ctx, uid, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, &store.DeleteConversation{ID: conversation.ID}); err != nil {
		return apierror.Upstream("failed to delete conversation: %v", err)
	}
	if s.local != nil {
		s.local.ResetHistory(userID)
	}
	return nil
}

// SendResult is the reply envelope for one chat turn.
type SendResult struct {
	Message    *store.Message `json:"message"`
	Model      string         `json:"model,omitempty"`
	RAGUsed    bool           `json:"rag_used,omitempty"`
	Automation bool           `json:"automation,omitempty"`
	Tokens     *llm.CallStats `json:"tokens,omitempty"`
}

// SendOptions controls one chat turn.
type SendOptions struct {
	IncludeContext bool
	// UseLocalAgent routes generation through the on-premise agent.
	UseLocalAgent bool
}

// Send runs one chat turn: persist the user message, try the automation
// pipeline, otherwise generate a grounded reply, persist it, backfill
// tokens, and auto-title young conversations.
func (s *Service) Send(ctx context.Context, uid string, userID int32, content string, opts SendOptions) (*SendResult, error) {
	conversation, err := s.Verify(ctx, uid, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apierror.Validation("Message content is required")
	}

	if _, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleUser,
		Content:        content,
		CreatedTs:      time.Now().Unix(),
	}); err != nil {
		return nil, apierror.Upstream("failed to save message: %v", err)
	}

	result := &SendResult{}
	var reply string
	var stats *llm.CallStats

	if automationResult := s.tryAutomation(ctx, userID, content); automationResult != nil {
		// The rendered confirmation or error IS the assistant reply.
		reply = automationResult.Text()
		result.Automation = true
	} else {
		reply, stats, err = s.generate(ctx, conversation, userID, content, opts, result)
		if err != nil {
			return nil, err
		}
	}

	assistantMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleAssistant,
		Content:        reply,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return nil, apierror.Upstream("failed to save reply: %v", err)
	}

	if stats != nil && stats.TotalTokens > 0 {
		if err := s.store.UpdateMessageTokens(ctx, &store.UpdateMessageTokens{
			ID:         assistantMessage.ID,
			TokensUsed: int32(stats.TotalTokens),
		}); err != nil {
			slog.Warn("token backfill failed", "message_id", assistantMessage.ID, "error", err)
		} else {
			assistantMessage.TokensUsed = int32(stats.TotalTokens)
		}
		result.Tokens = stats
	}

	s.autoTitle(ctx, conversation, content)

	result.Message = assistantMessage
	return result, nil
}

// tryAutomation runs the command pipeline when the message looks like a
// command. A nil return means ordinary chat. Parse failures of detected
// commands still produce a conversational reply.
func (s *Service) tryAutomation(ctx context.Context, userID int32, content string) *automation.DispatchResult {
	if !automation.Detect(content) {
		return nil
	}

	snapshot, err := s.analyzer.Get(ctx, userID)
	userContext := map[string]any{}
	if err == nil && snapshot != nil {
		userContext["user_name"] = snapshot.UserName
		userContext["user_role"] = snapshot.UserRole
	}

	command, err := s.parser.Parse(ctx, content, userContext)
	if err != nil {
		return &automation.DispatchResult{Success: false, Error: err.Error()}
	}
	return s.dispatcher.Execute(ctx, userID, command)
}

func (s *Service) generate(ctx context.Context, conversation *store.Conversation, userID int32, content string, opts SendOptions, result *SendResult) (string, *llm.CallStats, error) {
	var snapshot *usercontext.Snapshot
	if opts.IncludeContext {
		var err error
		snapshot, err = s.analyzer.Get(ctx, userID)
		if err != nil {
			slog.Warn("context snapshot failed, continuing without", "user_id", userID, "error", err)
		}
	}

	if opts.UseLocalAgent {
		if s.local == nil {
			return "", nil, apierror.Upstream("Local agent is not configured")
		}
		reply, err := s.local.Send(ctx, userID, content, snapshot)
		if err != nil {
			return "", nil, apierror.Upstream("%v", err)
		}
		result.Model = reply.Model
		result.RAGUsed = reply.RAGUsed
		return reply.Response, reply.Tokens, nil
	}

	if s.cloud == nil {
		return "", nil, apierror.Upstream("Cloud LLM is not configured")
	}

	messages, err := s.buildContextWindow(ctx, conversation, snapshot)
	if err != nil {
		return "", nil, err
	}

	reply, stats, err := s.cloud.Chat(ctx, messages)
	if err != nil {
		return "", nil, apierror.Upstream("LLM call failed: %v", err)
	}
	return strings.TrimSpace(reply), stats, nil
}

// buildContextWindow assembles system prompt + snapshot + the most recent
// messages in chronological order. The just-persisted user message arrives
// as part of the window.
func (s *Service) buildContextWindow(ctx context.Context, conversation *store.Conversation, snapshot *usercontext.Snapshot) ([]llm.Message, error) {
	system := cloudSystemPrompt
	if snapshot != nil {
		if encoded, err := json.MarshalIndent(snapshot, "", "  "); err == nil {
			system += "\n\nUser data:\n" + string(encoded)
		}
	}
	messages := []llm.Message{{Role: "system", Content: system}}

	recent, err := s.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversation.ID,
		Limit:          contextWindow,
		Descending:     true,
	})
	if err != nil {
		return nil, apierror.Upstream("failed to load history: %v", err)
	}
	for i := len(recent) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{
			Role:    string(recent[i].Role),
			Content: recent[i].Content,
		})
	}
	return messages, nil
}

// autoTitle names young conversations after their opening message.
func (s *Service) autoTitle(ctx context.Context, conversation *store.Conversation, content string) {
	if conversation.MessageCount > 2 {
		return
	}
	title := content
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50]) + "..."
	}
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:    conversation.ID,
		Title: &title,
	}); err != nil {
		slog.Warn("auto-title failed", "conversation_id", conversation.ID, "error", err)
	}
}

// RenameConversation sets an explicit title.
func (s *Service) RenameConversation(ctx context.Context, uid string, userID int32, title string) (*store.Conversation, error) {
	conversation, err := s.Verify(ctx, uid, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, apierror.Validation("Title is required")
	}
	updated, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{ID: conversation.ID, Title: &title})
	if err != nil {
		return nil, apierror.Upstream("failed to rename conversation: %v", err)
	}
	return updated, nil
}
