package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitpm/assist/store"
)

func newResolverFixture() *fakeStore {
	return &fakeStore{
		users: []*store.User{
			{ID: 1, Name: "Ada Admin", Email: "ada@doit.dev", Role: store.RoleAdmin},
			{ID: 2, Name: "Mel Member", Email: "mel@doit.dev", Role: store.RoleMember},
		},
		projects: []*store.Project{
			{ID: 10, Name: "CDW Platform", TicketPrefix: "CDW", OwnerID: 1},
			{ID: 11, Name: "FTP Migration", TicketPrefix: "FTP", OwnerID: 2},
		},
		members: []*store.ProjectMember{
			{ProjectID: 10, UserID: 2, Role: "member"},
		},
		tasks: []*store.Task{
			{ID: 100, TicketID: "FTP-005", Title: "Fix upload retries", ProjectID: 11, Status: store.TaskStatusToDo},
			{ID: 101, TicketID: "CDW-001", Title: "Login page audit", ProjectID: 10, Status: store.TaskStatusInProgress},
		},
		sprints: []*store.Sprint{
			{ID: 200, Name: "Sprint 7", ProjectID: 10, Status: store.SprintStatusActive},
		},
	}
}

func TestResolveProjectByNormalizedName(t *testing.T) {
	resolver := NewResolver(newResolverFixture())
	ctx := context.Background()

	tests := []struct {
		input  string
		wantID int32
	}{
		{"CDW Platform", 10},
		{"cdw platform project", 10},
		{"the CDW Platform Project", 10}, // substring match absorbs the article
		{"cdw", 10},
		{"FTP", 11},
	}
	for _, tt := range tests {
		project := resolver.ResolveProject(ctx, 2, "", tt.input)
		if tt.wantID == 0 {
			assert.Nil(t, project, "input %q", tt.input)
			continue
		}
		require.NotNil(t, project, "input %q", tt.input)
		assert.Equal(t, tt.wantID, project.ID, "input %q", tt.input)
	}
}

func TestResolveProjectScopedToMembership(t *testing.T) {
	resolver := NewResolver(newResolverFixture())

	// User 1 owns CDW but has no access to FTP Migration.
	assert.Nil(t, resolver.ResolveProject(context.Background(), 1, "", "FTP Migration"))
}

func TestResolveTaskByTicket(t *testing.T) {
	resolver := NewResolver(newResolverFixture())
	ctx := context.Background()

	task := resolver.ResolveTask(ctx, 2, "", "ftp-005", "")
	require.NotNil(t, task)
	assert.Equal(t, "FTP-005", task.TicketID)

	// Same lookup is idempotent.
	again := resolver.ResolveTask(ctx, 2, "", "ftp-005", "")
	require.NotNil(t, again)
	assert.Equal(t, task.ID, again.ID)

	// The ticket path rejects identifiers that are not ticket shaped.
	assert.Nil(t, resolver.ResolveTask(ctx, 2, "", "fix-everything-now", ""))
}

func TestResolveTaskByTitleFragment(t *testing.T) {
	resolver := NewResolver(newResolverFixture())

	task := resolver.ResolveTask(context.Background(), 2, "", "", "upload")
	require.NotNil(t, task)
	assert.Equal(t, "FTP-005", task.TicketID)
}

func TestResolveTaskOutsideScope(t *testing.T) {
	resolver := NewResolver(newResolverFixture())

	// User 1 cannot see FTP Migration's tasks.
	assert.Nil(t, resolver.ResolveTask(context.Background(), 1, "", "FTP-005", ""))
}

func TestResolveSprintActiveKeyword(t *testing.T) {
	resolver := NewResolver(newResolverFixture())

	sprint := resolver.ResolveSprint(context.Background(), 2, nil, "", "active")
	require.NotNil(t, sprint)
	assert.Equal(t, store.SprintStatusActive, sprint.Status)
}

func TestResolveUserEmailBeforeName(t *testing.T) {
	resolver := NewResolver(newResolverFixture())
	ctx := context.Background()

	byEmail := resolver.ResolveUser(ctx, "mel@doit.dev")
	require.NotNil(t, byEmail)
	assert.Equal(t, int32(2), byEmail.ID)

	byName := resolver.ResolveUser(ctx, "ada admin")
	require.NotNil(t, byName)
	assert.Equal(t, int32(1), byName.ID)

	assert.Nil(t, resolver.ResolveUser(ctx, "nobody@doit.dev"))
}

func TestAccessibleProjectIDsNeverNil(t *testing.T) {
	resolver := NewResolver(&fakeStore{})

	ids := resolver.AccessibleProjectIDs(context.Background(), 42)
	require.NotNil(t, ids)
	assert.Empty(t, ids)
}
