package store

// MessageRole is the author kind of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type Conversation struct {
	// UID is the short public identifier exposed over the API.
	UID          string
	Title        string
	CreatedTs    int64
	UpdatedTs    int64
	ID           int32
	UserID       int32
	MessageCount int32
}

type FindConversation struct {
	ID     *int32
	UID    *string
	UserID *int32
	Limit  int
}

type UpdateConversation struct {
	Title     *string
	UpdatedTs *int64
	ID        int32
}

type DeleteConversation struct {
	ID int32
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename    string `json:"filename"`
	Filepath    string `json:"filepath"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Extracted   bool   `json:"extracted"`
}

// Message is a single turn in a conversation. Immutable once created
// except for the token-count backfill after the LLM call returns usage.
type Message struct {
	Role           MessageRole
	Content        string
	ImageURL       string
	Attachments    []Attachment
	CreatedTs      int64
	ID             int64
	TokensUsed     int32
	ConversationID int32
}

type FindMessage struct {
	ConversationID *int32
	// Limit caps the result count; with Descending it selects the most
	// recent N (the LLM context window).
	Limit      int
	Descending bool
}

type UpdateMessageTokens struct {
	ID         int64
	TokensUsed int32
}
