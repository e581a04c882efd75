package store

import (
	"context"
	"strconv"
	"time"

	"github.com/doitpm/assist/internal/profile"
	"github.com/doitpm/assist/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	userCache *cache.Cache // short-lived cache for user lookups
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:    driver,
		profile:   profile,
		userCache: cache.New(10 * time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// User

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

// GetUser returns a single user matching find, or nil when absent.
// Lookups by ID are served from a short-lived cache.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil && find.Email == nil && find.Name == nil {
		key := strconv.FormatInt(int64(*find.ID), 10)
		if cached := s.userCache.Get(key); cached != nil {
			if user, ok := cached.(*User); ok {
				return user, nil
			}
		}
		user, err := s.driver.GetUser(ctx, find)
		if err != nil {
			return nil, err
		}
		if user != nil {
			s.userCache.Set(key, user, 0)
		}
		return user, nil
	}
	return s.driver.GetUser(ctx, find)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	s.userCache.Clear(strconv.FormatInt(int64(update.ID), 10))
	return s.driver.UpdateUser(ctx, update)
}

// Project

func (s *Store) CreateProject(ctx context.Context, create *Project) (*Project, error) {
	return s.driver.CreateProject(ctx, create)
}

func (s *Store) GetProject(ctx context.Context, find *FindProject) (*Project, error) {
	return s.driver.GetProject(ctx, find)
}

func (s *Store) ListProjects(ctx context.Context, find *FindProject) ([]*Project, error) {
	return s.driver.ListProjects(ctx, find)
}

func (s *Store) UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error) {
	return s.driver.UpdateProject(ctx, update)
}

func (s *Store) DeleteProject(ctx context.Context, delete *DeleteProject) error {
	return s.driver.DeleteProject(ctx, delete)
}

func (s *Store) AddProjectMember(ctx context.Context, member *ProjectMember) error {
	return s.driver.AddProjectMember(ctx, member)
}

func (s *Store) RemoveProjectMember(ctx context.Context, member *ProjectMember) error {
	return s.driver.RemoveProjectMember(ctx, member)
}

func (s *Store) ListProjectMembers(ctx context.Context, find *FindProjectMember) ([]*ProjectMember, error) {
	return s.driver.ListProjectMembers(ctx, find)
}

// Task

func (s *Store) CreateTask(ctx context.Context, create *Task) (*Task, error) {
	return s.driver.CreateTask(ctx, create)
}

func (s *Store) GetTask(ctx context.Context, find *FindTask) (*Task, error) {
	return s.driver.GetTask(ctx, find)
}

func (s *Store) ListTasks(ctx context.Context, find *FindTask) ([]*Task, error) {
	return s.driver.ListTasks(ctx, find)
}

func (s *Store) UpdateTask(ctx context.Context, update *UpdateTask) (*Task, error) {
	return s.driver.UpdateTask(ctx, update)
}

func (s *Store) DeleteTask(ctx context.Context, delete *DeleteTask) error {
	return s.driver.DeleteTask(ctx, delete)
}

// Sprint

func (s *Store) CreateSprint(ctx context.Context, create *Sprint) (*Sprint, error) {
	return s.driver.CreateSprint(ctx, create)
}

func (s *Store) GetSprint(ctx context.Context, find *FindSprint) (*Sprint, error) {
	return s.driver.GetSprint(ctx, find)
}

func (s *Store) ListSprints(ctx context.Context, find *FindSprint) ([]*Sprint, error) {
	return s.driver.ListSprints(ctx, find)
}

func (s *Store) UpdateSprint(ctx context.Context, update *UpdateSprint) (*Sprint, error) {
	return s.driver.UpdateSprint(ctx, update)
}

// Conversation

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	return s.driver.GetConversation(ctx, find)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

// Message

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) UpdateMessageTokens(ctx context.Context, update *UpdateMessageTokens) error {
	return s.driver.UpdateMessageTokens(ctx, update)
}

// Context embedding

func (s *Store) UpsertContextEmbedding(ctx context.Context, upsert *ContextEmbedding) (*ContextEmbedding, error) {
	return s.driver.UpsertContextEmbedding(ctx, upsert)
}

func (s *Store) SearchContextEmbeddings(ctx context.Context, search *SearchContextEmbedding) ([]*ContextEmbedding, error) {
	return s.driver.SearchContextEmbeddings(ctx, search)
}

func (s *Store) DeleteContextEmbeddings(ctx context.Context, userID int32) error {
	return s.driver.DeleteContextEmbeddings(ctx, userID)
}
