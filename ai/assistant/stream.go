package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/doitpm/assist/ai/llm"
	"github.com/doitpm/assist/ai/usercontext"
	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/store"
)

// StreamEvent is one server-sent event of a streaming chat turn. Exactly
// one of Chunk, Done, or Error is meaningful per event.
type StreamEvent struct {
	Chunk     string `json:"chunk,omitempty"`
	Done      bool   `json:"done,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendStream runs one chat turn, emitting the reply incrementally through
// emit. Automation commands short-circuit to a single chunk. The assistant
// message is persisted from the accumulated chunks once the stream ends,
// so a consumer that disconnects mid-stream still loses nothing that was
// not yet generated.
func (s *Service) SendStream(ctx context.Context, uid string, userID int32, content string, opts SendOptions, emit func(StreamEvent) error) error {
	conversation, err := s.Verify(ctx, uid, userID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return apierror.Validation("Message content is required")
	}

	if _, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleUser,
		Content:        content,
		CreatedTs:      time.Now().Unix(),
	}); err != nil {
		return apierror.Upstream("failed to save message: %v", err)
	}

	if automationResult := s.tryAutomation(ctx, userID, content); automationResult != nil {
		reply := automationResult.Text()
		if err := emit(StreamEvent{Chunk: reply}); err != nil {
			return err
		}
		return s.finishStream(ctx, conversation, content, reply, nil, emit)
	}

	result := &SendResult{}
	if opts.UseLocalAgent {
		// The local agent does not stream; deliver its reply whole.
		reply, stats, err := s.generate(ctx, conversation, userID, content, opts, result)
		if err != nil {
			return emit(StreamEvent{Error: err.Error()})
		}
		if err := emit(StreamEvent{Chunk: reply}); err != nil {
			return err
		}
		return s.finishStream(ctx, conversation, content, reply, stats, emit)
	}

	if s.cloud == nil {
		return emit(StreamEvent{Error: "Cloud LLM is not configured"})
	}

	var snapshot *usercontext.Snapshot
	if opts.IncludeContext {
		snap, err := s.analyzer.Get(ctx, userID)
		if err != nil {
			slog.Warn("context snapshot failed, continuing without", "user_id", userID, "error", err)
		} else {
			snapshot = snap
		}
	}
	messages, err := s.buildContextWindow(ctx, conversation, snapshot)
	if err != nil {
		return emit(StreamEvent{Error: err.Error()})
	}

	contentChan, statsChan, errChan := s.cloud.ChatStream(ctx, messages)

	var reply strings.Builder
	for chunk := range contentChan {
		reply.WriteString(chunk)
		if err := emit(StreamEvent{Chunk: chunk}); err != nil {
			return err
		}
	}
	if streamErr := <-errChan; streamErr != nil {
		return emit(StreamEvent{Error: "LLM call failed: " + streamErr.Error()})
	}
	stats := <-statsChan

	return s.finishStream(ctx, conversation, content, reply.String(), stats, emit)
}

// finishStream persists the assistant reply, backfills tokens, auto-titles,
// and emits the terminal done event.
func (s *Service) finishStream(ctx context.Context, conversation *store.Conversation, userContent, reply string, stats *llm.CallStats, emit func(StreamEvent) error) error {
	assistantMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleAssistant,
		Content:        reply,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return emit(StreamEvent{Error: "failed to save reply: " + err.Error()})
	}

	if stats != nil && stats.TotalTokens > 0 {
		if err := s.store.UpdateMessageTokens(ctx, &store.UpdateMessageTokens{
			ID:         assistantMessage.ID,
			TokensUsed: int32(stats.TotalTokens),
		}); err != nil {
			slog.Warn("token backfill failed", "message_id", assistantMessage.ID, "error", err)
		}
	}

	s.autoTitle(ctx, conversation, userContent)

	return emit(StreamEvent{Done: true, MessageID: assistantMessage.ID})
}
