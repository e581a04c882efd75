package taskdomain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/store"
)

func errorKind(t *testing.T, err error) apierror.Kind {
	t.Helper()
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	return apiErr.Kind
}

func TestAgentCreateTaskUnknownRequestingUser(t *testing.T) {
	service, _ := newServiceFixture()

	_, err := service.AgentCreateTask(context.Background(), "ghost@doit.dev", &AgentCreateTaskRequest{
		Title:     "Haunted",
		ProjectID: 10,
	})

	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, errorKind(t, err))
	assert.Contains(t, err.Error(), "ghost@doit.dev")
}

func TestAgentCreateTaskRejectsViewers(t *testing.T) {
	service, _ := newServiceFixture()

	_, err := service.AgentCreateTask(context.Background(), "vic@doit.dev", &AgentCreateTaskRequest{
		Title:     "Read only",
		ProjectID: 10,
	})

	require.Error(t, err)
	assert.Equal(t, apierror.KindForbidden, errorKind(t, err))
	assert.Contains(t, err.Error(), "Your role is 'viewer'")
}

func TestAgentCreateTaskResolvesAssigneeByEmail(t *testing.T) {
	service, fake := newServiceFixture()

	result, err := service.AgentCreateTask(context.Background(), "ada@doit.dev", &AgentCreateTaskRequest{
		Title:         "Wire metrics",
		ProjectID:     10,
		AssigneeEmail: "mel@doit.dev",
		Priority:      "High",
	})

	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, int64(2), gjson.Get(result.Payload, "assignee_id").Int())
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, int32(1), fake.tasks[0].CreatorID)
}

func TestAgentCreateTaskAssigneeByNameMustBeMember(t *testing.T) {
	service, _ := newServiceFixture()

	_, err := service.AgentCreateTask(context.Background(), "ada@doit.dev", &AgentCreateTaskRequest{
		Title:        "Out of reach",
		ProjectID:    10,
		AssigneeName: "Vic Viewer",
	})

	require.Error(t, err)
	assert.Equal(t, apierror.KindForbidden, errorKind(t, err))
	assert.Contains(t, err.Error(), "is not a member of this project")
}

func TestAgentAssignTaskByTicketID(t *testing.T) {
	service, fake := newServiceFixture()
	fake.tasks = []*store.Task{
		{ID: 100, TicketID: "CDW-001", Title: "Login page audit", ProjectID: 10},
	}

	result, err := service.AgentAssignTask(context.Background(), "ada@doit.dev", "cdw-001", "Mel Member")

	require.NoError(t, err)
	require.True(t, result.OK)
	require.NotNil(t, fake.tasks[0].AssigneeID)
	assert.Equal(t, int32(2), *fake.tasks[0].AssigneeID)
}

func TestAgentAssignTaskUnknownTask(t *testing.T) {
	service, _ := newServiceFixture()

	_, err := service.AgentAssignTask(context.Background(), "ada@doit.dev", "CDW-404", "mel@doit.dev")

	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, errorKind(t, err))
	assert.Contains(t, err.Error(), "Task 'CDW-404' not found")
}

func TestAgentCreateSprintRequiresAdmin(t *testing.T) {
	service, _ := newServiceFixture()

	_, err := service.AgentCreateSprint(context.Background(), "mel@doit.dev", &AgentCreateSprintRequest{
		Name:      "Sprint 12",
		ProjectID: 10,
	})

	require.Error(t, err)
	assert.Equal(t, apierror.KindForbidden, errorKind(t, err))
	assert.Contains(t, err.Error(), "Only Admin users can create sprints")
}

func TestAgentCreateSprintAttributesToHuman(t *testing.T) {
	service, fake := newServiceFixture()

	result, err := service.AgentCreateSprint(context.Background(), "ada@doit.dev", &AgentCreateSprintRequest{
		Name:      "Sprint 12",
		Goal:      "Ship uploads",
		ProjectID: 10,
	})

	require.NoError(t, err)
	require.True(t, result.OK)
	require.Len(t, fake.sprints, 1)
	assert.Equal(t, "Ship uploads", fake.sprints[0].Goal)
}
