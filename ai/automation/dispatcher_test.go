package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitpm/assist/store"
)

func newDispatcherFixture(s *fakeStore) *Dispatcher {
	return NewDispatcher(s, NewResolver(s), NewGate(s), nil)
}

func TestExecuteListTasksWithNoProjects(t *testing.T) {
	s := &fakeStore{
		users: []*store.User{{ID: 5, Name: "Nora", Role: store.RoleMember}},
		tasks: []*store.Task{
			{ID: 100, TicketID: "FTP-005", Title: "Fix upload retries", ProjectID: 11},
		},
	}
	dispatcher := newDispatcherFixture(s)

	result := dispatcher.Execute(context.Background(), 5, &ParsedCommand{
		Action: ActionListTasks,
		Params: map[string]string{},
	})

	require.True(t, result.Success)
	assert.Equal(t, "No tasks found", result.Message)
	payload, ok := result.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, payload["count"])
	assert.Empty(t, payload["tasks"])
}

func TestExecuteDeniesSprintCreationForMembers(t *testing.T) {
	s := newResolverFixture()
	dispatcher := newDispatcherFixture(s)

	result := dispatcher.Execute(context.Background(), 2, &ParsedCommand{
		Action: ActionCreateSprint,
		Params: map[string]string{"name": "Sprint 8", "project_name": "CDW"},
	})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "Only Admin users can create sprint")
}

func TestExecuteRejectsUnknownActionByRole(t *testing.T) {
	s := newResolverFixture()
	dispatcher := newDispatcherFixture(s)

	result := dispatcher.Execute(context.Background(), 2, &ParsedCommand{
		Action: Action("fly_to_moon"),
		Params: map[string]string{},
	})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "does not have permission")
}

func TestExecuteReportsAvailableProjectsOnMiss(t *testing.T) {
	s := newResolverFixture()
	dispatcher := newDispatcherFixture(s)

	result := dispatcher.Execute(context.Background(), 2, &ParsedCommand{
		Action: ActionListTasks,
		Params: map[string]string{"project_name": "Zeta"},
	})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "Project 'Zeta' not found")
	assert.Contains(t, result.Error, "CDW Platform")
}

func TestDispatchResultText(t *testing.T) {
	ok := &DispatchResult{Success: true, Message: "Created task CDW-002"}
	assert.Equal(t, "Created task CDW-002", ok.Text())

	failed := &DispatchResult{Success: false, Error: "Project 'Zeta' not found"}
	assert.Equal(t, "Project 'Zeta' not found", failed.Text())
}
