package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, create *User) (*User, error)
	GetUser(ctx context.Context, find *FindUser) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)

	CreateProject(ctx context.Context, create *Project) (*Project, error)
	GetProject(ctx context.Context, find *FindProject) (*Project, error)
	ListProjects(ctx context.Context, find *FindProject) ([]*Project, error)
	UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error)
	DeleteProject(ctx context.Context, delete *DeleteProject) error
	AddProjectMember(ctx context.Context, member *ProjectMember) error
	RemoveProjectMember(ctx context.Context, member *ProjectMember) error
	ListProjectMembers(ctx context.Context, find *FindProjectMember) ([]*ProjectMember, error)

	CreateTask(ctx context.Context, create *Task) (*Task, error)
	GetTask(ctx context.Context, find *FindTask) (*Task, error)
	ListTasks(ctx context.Context, find *FindTask) ([]*Task, error)
	UpdateTask(ctx context.Context, update *UpdateTask) (*Task, error)
	DeleteTask(ctx context.Context, delete *DeleteTask) error

	CreateSprint(ctx context.Context, create *Sprint) (*Sprint, error)
	GetSprint(ctx context.Context, find *FindSprint) (*Sprint, error)
	ListSprints(ctx context.Context, find *FindSprint) ([]*Sprint, error)
	UpdateSprint(ctx context.Context, update *UpdateSprint) (*Sprint, error)

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	UpdateMessageTokens(ctx context.Context, update *UpdateMessageTokens) error

	// Vector operations return ErrVectorSearchUnsupported on drivers
	// without a vector extension.
	UpsertContextEmbedding(ctx context.Context, upsert *ContextEmbedding) (*ContextEmbedding, error)
	SearchContextEmbeddings(ctx context.Context, search *SearchContextEmbedding) ([]*ContextEmbedding, error)
	DeleteContextEmbeddings(ctx context.Context, userID int32) error
}
