package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/plugin/fileparser"
	"github.com/doitpm/assist/store"
)

// attachmentTokenBudget caps how much extracted file text is stored in the
// user message for the LLM to read.
const attachmentTokenBudget = 3000

// AttachResult describes a processed upload.
type AttachResult struct {
	Message     string            `json:"message"`
	Extracted   bool              `json:"extracted"`
	Kind        string            `json:"kind,omitempty"`
	MessageID   int64             `json:"message_id"`
	AIMessageID int64             `json:"ai_message_id,omitempty"`
	Attachment  *store.Attachment `json:"attachment"`
}

// AttachFile records an already-saved upload on the conversation. The
// extracted text is embedded in the user message so follow-up questions can
// reference the file; extraction failure degrades to a plain upload notice.
func (s *Service) AttachFile(ctx context.Context, uid string, userID int32, filename, savedPath, contentType string, size int64) (*AttachResult, error) {
	conversation, err := s.Verify(ctx, uid, userID)
	if err != nil {
		return nil, err
	}

	var extraction *fileparser.Extraction
	if s.files != nil {
		extraction, err = s.files.Extract(ctx, savedPath)
		if err != nil {
			slog.Warn("file extraction failed", "filename", filename, "error", err)
			extraction = nil
		}
	}

	var content string
	if extraction != nil {
		content = fmt.Sprintf("User uploaded file '%s'.\n\nFile Contents:\n%s",
			filename, fileparser.Summarize(extraction.Content, attachmentTokenBudget))
	} else {
		content = fmt.Sprintf("Uploaded file: %s (content extraction not supported)", filename)
	}

	userMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleUser,
		Content:        content,
		Attachments: []store.Attachment{{
			Filename:    filename,
			Filepath:    savedPath,
			ContentType: contentType,
			Size:        size,
			Extracted:   extraction != nil,
		}},
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		return nil, apierror.Upstream("failed to save upload message: %v", err)
	}

	result := &AttachResult{
		Extracted:  extraction != nil,
		MessageID:  userMessage.ID,
		Attachment: &userMessage.Attachments[0],
	}

	if extraction == nil {
		result.Message = fmt.Sprintf("File '%s' uploaded, but content extraction is not supported for this file type.", filename)
		return result, nil
	}

	result.Kind = extraction.Kind
	ack := fmt.Sprintf("I've received and analyzed your %s file '%s'. ", extraction.Kind, filename)
	if extraction.Kind == "csv" {
		ack += fmt.Sprintf("It contains %d rows and %d columns. ", extraction.Rows, extraction.Columns)
	}
	ack += "I can now answer questions about this file. What would you like to know?"

	aiMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleAssistant,
		Content:        ack,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return nil, apierror.Upstream("failed to save acknowledgment: %v", err)
	}

	result.Message = ack
	result.AIMessageID = aiMessage.ID
	return result, nil
}
