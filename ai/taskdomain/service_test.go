package taskdomain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/doitpm/assist/store"
)

func newServiceFixture() (*Service, *fakeDomainStore) {
	s := newFakeDomainStore()
	s.users = []*store.User{
		{ID: 1, Name: "Ada Admin", Email: "ada@doit.dev", Role: store.RoleAdmin},
		{ID: 2, Name: "Mel Member", Email: "mel@doit.dev", Role: store.RoleMember},
		{ID: 3, Name: "Vic Viewer", Email: "vic@doit.dev", Role: store.RoleViewer},
	}
	s.projects = []*store.Project{
		{ID: 10, Name: "CDW Platform", TicketPrefix: "CDW", OwnerID: 1},
	}
	s.members = []*store.ProjectMember{
		{ProjectID: 10, UserID: 2, Role: "member"},
	}
	return NewService(s), s
}

func TestCreateTaskAllocatesSequentialTicketIDs(t *testing.T) {
	service, _ := newServiceFixture()
	ctx := context.Background()

	first := Normalize(service.CreateTask(ctx, `{"title": "Fix login", "project_id": 10}`, 2))
	require.True(t, first.OK)
	assert.Equal(t, "CDW-001", gjson.Get(first.Payload, "ticket_id").String())
	assert.Equal(t, "To Do", gjson.Get(first.Payload, "status").String())

	second := Normalize(service.CreateTask(ctx, `{"title": "Audit sessions", "project_id": 10}`, 2))
	require.True(t, second.OK)
	assert.Equal(t, "CDW-002", gjson.Get(second.Payload, "ticket_id").String())
}

func TestCreateTaskRequiresMembership(t *testing.T) {
	service, _ := newServiceFixture()

	result := Normalize(service.CreateTask(context.Background(), `{"title": "Sneaky", "project_id": 10}`, 3))

	require.False(t, result.OK)
	assert.Equal(t, 403, result.Code)
	assert.Equal(t, "You are not a member of this project", result.Message)
}

func TestCreateTaskValidatesBody(t *testing.T) {
	service, _ := newServiceFixture()
	ctx := context.Background()

	missingTitle := Normalize(service.CreateTask(ctx, `{"project_id": 10}`, 2))
	require.False(t, missingTitle.OK)
	assert.Equal(t, 400, missingTitle.Code)
	assert.Equal(t, "Task title is required", missingTitle.Message)

	missingProject := Normalize(service.CreateTask(ctx, `{"title": "Orphan"}`, 2))
	require.False(t, missingProject.OK)
	assert.Equal(t, 400, missingProject.Code)
}

func TestCreateTaskDefaultsInvalidPriority(t *testing.T) {
	service, _ := newServiceFixture()

	result := Normalize(service.CreateTask(context.Background(), `{"title": "Priority check", "project_id": 10, "priority": "Urgent"}`, 2))

	require.True(t, result.OK)
	assert.Equal(t, string(store.TaskPriorityMedium), gjson.Get(result.Payload, "priority").String())
}

func TestUpdateTaskClearsSprintOnNull(t *testing.T) {
	service, fake := newServiceFixture()
	ctx := context.Background()

	created := Normalize(service.CreateTask(ctx, `{"title": "Sprint bound", "project_id": 10, "sprint_id": 200}`, 2))
	require.True(t, created.OK)
	taskID := int32(gjson.Get(created.Payload, "id").Int())
	require.NotNil(t, fake.tasks[0].SprintID)

	updated := Normalize(service.UpdateTask(ctx, `{"sprint_id": null}`, taskID, 2))
	require.True(t, updated.OK)
	assert.Nil(t, fake.tasks[0].SprintID)
}

func TestUpdateTaskUnknownTask(t *testing.T) {
	service, _ := newServiceFixture()

	result := Normalize(service.UpdateTask(context.Background(), `{"status": "Done"}`, 999, 2))

	require.False(t, result.OK)
	assert.Equal(t, 404, result.Code)
	assert.Equal(t, "Task not found", result.Message)
}

func TestCreateSprintDefaultsTwoWeekWindow(t *testing.T) {
	service, fake := newServiceFixture()

	result := Normalize(service.CreateSprint(context.Background(), `{"name": "Sprint 9"}`, 10, 1))

	require.True(t, result.OK)
	require.Len(t, fake.sprints, 1)
	sprint := fake.sprints[0]
	assert.Equal(t, store.SprintStatusPlanning, sprint.Status)
	assert.Equal(t, int64(14*24*3600), sprint.EndTs-sprint.StartTs)
}

func TestCreateProjectDerivesTicketPrefix(t *testing.T) {
	service, _ := newServiceFixture()

	result := Normalize(service.CreateProject(context.Background(), `{"name": "File Transfer Portal"}`, 1))

	require.True(t, result.OK)
	assert.Equal(t, "FIL", gjson.Get(result.Payload, "ticket_prefix").String())
}

func TestTicketPrefix(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		want     string
	}{
		{"CDW Platform", "", "CDW"},
		{"File Transfer Portal", "", "FIL"},
		{"ab", "", "AB"},
		{"12345", "", "TSK"},
		{"whatever", "OPS", "OPS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ticketPrefix(tt.name, tt.explicit), "name %q", tt.name)
	}
}
