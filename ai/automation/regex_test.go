package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegexCreateTask(t *testing.T) {
	command, err := ParseRegex("create task called Fix Login in CDW project")
	require.NoError(t, err)

	assert.Equal(t, ActionCreateTask, command.Action)
	assert.Equal(t, "Fix Login", command.Params["title"])
	assert.Equal(t, "CDW", command.Params["project_name"])
	assert.Equal(t, "Medium", command.Params["priority"])
}

func TestParseRegexProjectKeywordIsWholeWord(t *testing.T) {
	// Words ending in "in" or "for" must not be mistaken for the project
	// keyword. "Login" here would otherwise capture project_name "in".
	cases := []struct {
		message string
		project string
	}{
		{"create task called Fix Login in CDW project", "CDW"},
		{"create task called Update Editor for Atlas project", "Atlas"},
		{"show my tasks again in Atlas", "Atlas"},
	}
	for _, tc := range cases {
		command, err := ParseRegex(tc.message)
		require.NoError(t, err, tc.message)
		assert.Equal(t, tc.project, command.Params["project_name"], tc.message)
	}
}

func TestParseRegexCreateTaskPriorityAndAssignee(t *testing.T) {
	command, err := ParseRegex("add task Deploy API with high priority, assign to jane@doit.dev")
	require.NoError(t, err)

	assert.Equal(t, ActionCreateTask, command.Action)
	assert.Equal(t, "High", command.Params["priority"])
	assert.Equal(t, "jane@doit.dev", command.Params["assignee_email"])
	assert.NotContains(t, command.Params, "assignee_name")
}

func TestParseRegexCreateTaskDefaultsTitle(t *testing.T) {
	command, err := ParseRegex("create task")
	require.NoError(t, err)
	assert.Equal(t, "New Task", command.Params["title"])
}

func TestParseRegexListTasks(t *testing.T) {
	command, err := ParseRegex("show tasks in CDW project")
	require.NoError(t, err)

	assert.Equal(t, ActionListTasks, command.Action)
	assert.Equal(t, "CDW", command.Params["project_name"])
}

func TestParseRegexRejectsUnknownCommand(t *testing.T) {
	_, err := ParseRegex("please water my plants")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please be more specific")
}
