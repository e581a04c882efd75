package assistant

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitpm/assist/ai/automation"
	"github.com/doitpm/assist/ai/llm"
	"github.com/doitpm/assist/ai/usercontext"
	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/store"
)

// fakeChatStore is an in-memory conversation store.
type fakeChatStore struct {
	conversations []*store.Conversation
	messages      []*store.Message
	nextConvID    int32
	nextMsgID     int64
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{nextConvID: 1, nextMsgID: 1}
}

func (f *fakeChatStore) CreateConversation(_ context.Context, create *store.Conversation) (*store.Conversation, error) {
	create.ID = f.nextConvID
	f.nextConvID++
	f.conversations = append(f.conversations, create)
	return create, nil
}

func (f *fakeChatStore) GetConversation(_ context.Context, find *store.FindConversation) (*store.Conversation, error) {
	for _, c := range f.conversations {
		if find.UID != nil && c.UID == *find.UID {
			return c, nil
		}
		if find.ID != nil && c.ID == *find.ID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeChatStore) ListConversations(_ context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	result := []*store.Conversation{}
	for _, c := range f.conversations {
		if find.UserID != nil && c.UserID != *find.UserID {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (f *fakeChatStore) UpdateConversation(_ context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	for _, c := range f.conversations {
		if c.ID == update.ID {
			if update.Title != nil {
				c.Title = *update.Title
			}
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeChatStore) DeleteConversation(_ context.Context, delete *store.DeleteConversation) error {
	kept := f.conversations[:0]
	for _, c := range f.conversations {
		if c.ID != delete.ID {
			kept = append(kept, c)
		}
	}
	f.conversations = kept

	keptMessages := f.messages[:0]
	for _, m := range f.messages {
		if m.ConversationID != delete.ID {
			keptMessages = append(keptMessages, m)
		}
	}
	f.messages = keptMessages
	return nil
}

func (f *fakeChatStore) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	create.ID = f.nextMsgID
	f.nextMsgID++
	f.messages = append(f.messages, create)
	if conversation, _ := f.GetConversation(ctx, &store.FindConversation{ID: &create.ConversationID}); conversation != nil {
		conversation.MessageCount++
	}
	return create, nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, find *store.FindMessage) ([]*store.Message, error) {
	result := []*store.Message{}
	for _, m := range f.messages {
		if find.ConversationID != nil && m.ConversationID != *find.ConversationID {
			continue
		}
		result = append(result, m)
	}
	if find.Descending {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	if find.Limit > 0 && len(result) > find.Limit {
		result = result[:find.Limit]
	}
	return result, nil
}

func (f *fakeChatStore) UpdateMessageTokens(_ context.Context, update *store.UpdateMessageTokens) error {
	for _, m := range f.messages {
		if m.ID == update.ID {
			m.TokensUsed = update.TokensUsed
		}
	}
	return nil
}

// fakeBackend serves the context analyzer and the automation pipeline.
type fakeBackend struct {
	users    []*store.User
	projects []*store.Project
}

func (f *fakeBackend) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	for _, u := range f.users {
		if find.ID != nil && u.ID == *find.ID {
			return u, nil
		}
		if find.Email != nil && u.Email == *find.Email {
			return u, nil
		}
		if find.Name != nil && strings.EqualFold(u.Name, *find.Name) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) ListProjects(_ context.Context, _ *store.FindProject) ([]*store.Project, error) {
	return f.projects, nil
}

func (f *fakeBackend) ListTasks(_ context.Context, find *store.FindTask) ([]*store.Task, error) {
	return []*store.Task{}, nil
}

func (f *fakeBackend) ListSprints(_ context.Context, _ *store.FindSprint) ([]*store.Sprint, error) {
	return []*store.Sprint{}, nil
}

func (f *fakeBackend) GetTask(_ context.Context, _ *store.FindTask) (*store.Task, error) {
	return nil, nil
}

func (f *fakeBackend) GetSprint(_ context.Context, _ *store.FindSprint) (*store.Sprint, error) {
	return nil, nil
}

func (f *fakeBackend) ListProjectMembers(_ context.Context, _ *store.FindProjectMember) ([]*store.ProjectMember, error) {
	return []*store.ProjectMember{}, nil
}

// fakeLLM records the prompt and returns a canned reply.
type fakeLLM struct {
	reply    string
	stats    *llm.CallStats
	received []llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, *llm.CallStats, error) {
	f.received = messages
	return f.reply, f.stats, nil
}

func (f *fakeLLM) ChatStream(_ context.Context, messages []llm.Message) (<-chan string, <-chan *llm.CallStats, <-chan error) {
	f.received = messages
	contentChan := make(chan string, 8)
	statsChan := make(chan *llm.CallStats, 1)
	errChan := make(chan error, 1)
	for _, word := range strings.SplitAfter(f.reply, " ") {
		contentChan <- word
	}
	close(contentChan)
	statsChan <- f.stats
	close(statsChan)
	errChan <- nil
	close(errChan)
	return contentChan, statsChan, errChan
}

func newServiceFixture(cloud llm.Service) (*Service, *fakeChatStore, *fakeBackend) {
	chatStore := newFakeChatStore()
	backend := &fakeBackend{
		users: []*store.User{{ID: 1, Name: "Mel Member", Email: "mel@doit.dev", Role: store.RoleMember}},
	}
	analyzer := usercontext.NewAnalyzer(backend)
	parser := automation.NewParser(nil)
	dispatcher := automation.NewDispatcher(backend, automation.NewResolver(backend), automation.NewGate(backend), nil)
	service := NewService(chatStore, analyzer, parser, dispatcher, cloud, nil, nil)
	return service, chatStore, backend
}

func seedConversation(t *testing.T, service *Service, userID int32) *store.Conversation {
	t.Helper()
	conversation, err := service.CreateConversation(context.Background(), userID, "")
	require.NoError(t, err)
	return conversation
}

func TestCreateConversationDefaults(t *testing.T) {
	service, _, _ := newServiceFixture(nil)

	conversation, err := service.CreateConversation(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", conversation.Title)
	assert.NotEmpty(t, conversation.UID)
}

func TestVerifyOwnership(t *testing.T) {
	service, _, _ := newServiceFixture(nil)
	ctx := context.Background()
	conversation := seedConversation(t, service, 1)

	_, err := service.Verify(ctx, conversation.UID, 1)
	assert.NoError(t, err)

	_, err = service.Verify(ctx, conversation.UID, 2)
	assert.Equal(t, 403, apierror.HTTPStatus(err))

	_, err = service.Verify(ctx, "missing", 1)
	assert.Equal(t, 404, apierror.HTTPStatus(err))
}

func TestSendRequiresContent(t *testing.T) {
	service, _, _ := newServiceFixture(nil)
	conversation := seedConversation(t, service, 1)

	_, err := service.Send(context.Background(), conversation.UID, 1, "   ", SendOptions{})
	assert.Equal(t, 400, apierror.HTTPStatus(err))
}

func TestSendCloudReply(t *testing.T) {
	cloud := &fakeLLM{reply: "  You have nothing due today.  ", stats: &llm.CallStats{TotalTokens: 42}}
	service, chatStore, _ := newServiceFixture(cloud)
	conversation := seedConversation(t, service, 1)

	result, err := service.Send(context.Background(), conversation.UID, 1, "What is on my plate today?", SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, "You have nothing due today.", result.Message.Content)
	assert.Equal(t, store.MessageRoleAssistant, result.Message.Role)
	assert.Equal(t, int32(42), result.Message.TokensUsed)
	require.NotNil(t, result.Tokens)
	assert.False(t, result.Automation)
	require.Len(t, chatStore.messages, 2)
	assert.Equal(t, store.MessageRoleUser, chatStore.messages[0].Role)

	// The prompt starts with the system message and ends with the user turn.
	require.NotEmpty(t, cloud.received)
	assert.Equal(t, "system", cloud.received[0].Role)
	assert.Equal(t, "What is on my plate today?", cloud.received[len(cloud.received)-1].Content)
}

func TestSendAutomationReplyIsPersisted(t *testing.T) {
	service, chatStore, _ := newServiceFixture(nil)
	conversation := seedConversation(t, service, 1)

	result, err := service.Send(context.Background(), conversation.UID, 1, "show my tasks", SendOptions{})
	require.NoError(t, err)

	assert.True(t, result.Automation)
	assert.Equal(t, "No tasks found", result.Message.Content)
	require.Len(t, chatStore.messages, 2)
	assert.Equal(t, "No tasks found", chatStore.messages[1].Content)
}

func TestSendAutomationParseFailureIsConversational(t *testing.T) {
	service, _, _ := newServiceFixture(nil)
	conversation := seedConversation(t, service, 1)

	// Detected as a command but unparseable without the LLM.
	result, err := service.Send(context.Background(), conversation.UID, 1, "assign task to whoever seems free", SendOptions{})
	require.NoError(t, err)

	assert.True(t, result.Automation)
	assert.Contains(t, result.Message.Content, "Please be more specific")
}

func TestSendTrimsContextWindow(t *testing.T) {
	cloud := &fakeLLM{reply: "ok"}
	service, chatStore, _ := newServiceFixture(cloud)
	conversation := seedConversation(t, service, 1)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := chatStore.CreateMessage(ctx, &store.Message{
			ConversationID: conversation.ID,
			Role:           store.MessageRoleUser,
			Content:        "filler",
		})
		require.NoError(t, err)
	}

	_, err := service.Send(ctx, conversation.UID, 1, "What changed since yesterday?", SendOptions{})
	require.NoError(t, err)

	// One system message plus the trimmed history.
	assert.Len(t, cloud.received, 1+contextWindow)
	assert.Equal(t, "What changed since yesterday?", cloud.received[len(cloud.received)-1].Content)
}

func TestAutoTitleTruncatesOpeningMessage(t *testing.T) {
	cloud := &fakeLLM{reply: "hi"}
	service, _, _ := newServiceFixture(cloud)
	conversation := seedConversation(t, service, 1)

	long := strings.Repeat("a", 60)
	_, err := service.Send(context.Background(), conversation.UID, 1, long, SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("a", 50)+"...", conversation.Title)
}

func TestAutoTitleTruncatesOnRuneBoundary(t *testing.T) {
	cloud := &fakeLLM{reply: "hi"}
	service, _, _ := newServiceFixture(cloud)
	conversation := seedConversation(t, service, 1)

	long := strings.Repeat("й", 60)
	_, err := service.Send(context.Background(), conversation.UID, 1, long, SendOptions{})
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(conversation.Title))
	assert.Equal(t, strings.Repeat("й", 50)+"...", conversation.Title)
}

func TestAutoTitleSkipsEstablishedConversations(t *testing.T) {
	cloud := &fakeLLM{reply: "hi"}
	service, _, _ := newServiceFixture(cloud)
	conversation := seedConversation(t, service, 1)
	conversation.MessageCount = 10

	_, err := service.Send(context.Background(), conversation.UID, 1, "a much later question", SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, "New Conversation", conversation.Title)
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	cloud := &fakeLLM{reply: "hi"}
	service, chatStore, _ := newServiceFixture(cloud)
	conversation := seedConversation(t, service, 1)

	_, err := service.Send(context.Background(), conversation.UID, 1, "hello", SendOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, chatStore.messages)

	require.NoError(t, service.DeleteConversation(context.Background(), conversation.UID, 1))
	assert.Empty(t, chatStore.conversations)
	assert.Empty(t, chatStore.messages)
}

func TestRenameConversation(t *testing.T) {
	service, _, _ := newServiceFixture(nil)
	conversation := seedConversation(t, service, 1)

	updated, err := service.RenameConversation(context.Background(), conversation.UID, 1, "Sprint planning notes")
	require.NoError(t, err)
	assert.Equal(t, "Sprint planning notes", updated.Title)

	_, err = service.RenameConversation(context.Background(), conversation.UID, 1, "  ")
	assert.Equal(t, 400, apierror.HTTPStatus(err))
}
