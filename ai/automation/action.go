// Package automation implements the natural-language command pipeline:
// keyword detection, LLM parsing with a regex fallback, role gating, fuzzy
// entity resolution, and dispatch to domain mutations.
package automation

// Action is a recognized automation command.
type Action string

const (
	ActionCreateTask           Action = "create_task"
	ActionAssignTask           Action = "assign_task"
	ActionUpdateTask           Action = "update_task"
	ActionCreateSprint         Action = "create_sprint"
	ActionStartSprint          Action = "start_sprint"
	ActionCompleteSprint       Action = "complete_sprint"
	ActionAddTaskToSprint      Action = "add_task_to_sprint"
	ActionRemoveTaskFromSprint Action = "remove_task_from_sprint"
	ActionListTasks            Action = "list_tasks"
	ActionListSprints          Action = "list_sprints"
	ActionListProjects         Action = "list_projects"
	ActionCreateProject        Action = "create_project"
	ActionAddMember            Action = "add_member"
	ActionRemoveMember         Action = "remove_member"
	ActionListMembers          Action = "list_members"
)

var knownActions = map[Action]bool{
	ActionCreateTask:           true,
	ActionAssignTask:           true,
	ActionUpdateTask:           true,
	ActionCreateSprint:         true,
	ActionStartSprint:          true,
	ActionCompleteSprint:       true,
	ActionAddTaskToSprint:      true,
	ActionRemoveTaskFromSprint: true,
	ActionListTasks:            true,
	ActionListSprints:          true,
	ActionListProjects:         true,
	ActionCreateProject:        true,
	ActionAddMember:            true,
	ActionRemoveMember:         true,
	ActionListMembers:          true,
}

// IsKnown reports whether the action belongs to the closed action set.
func (a Action) IsKnown() bool {
	return knownActions[a]
}

func (a Action) String() string {
	return string(a)
}

// ParsedCommand is the structured form of a natural-language command.
// Params never contain empty values or the literal string "None".
type ParsedCommand struct {
	Action Action
	Params map[string]string
}

// Param returns the named parameter or "".
func (c *ParsedCommand) Param(key string) string {
	if c.Params == nil {
		return ""
	}
	return c.Params[key]
}
