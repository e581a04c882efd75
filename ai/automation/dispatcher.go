package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doitpm/assist/ai/taskdomain"
	"github.com/doitpm/assist/store"
)

// DispatcherStore is the read slice the handlers need beyond the resolver.
type DispatcherStore interface {
	ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error)
	ListSprints(ctx context.Context, find *store.FindSprint) ([]*store.Sprint, error)
	ListProjectMembers(ctx context.Context, find *store.FindProjectMember) ([]*store.ProjectMember, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// DispatchResult is the uniform command outcome. Failures are data rendered
// as a conversational reply, never HTTP faults.
type DispatchResult struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Text renders the result as the assistant's chat reply.
func (r *DispatchResult) Text() string {
	if r.Success {
		return r.Message
	}
	return r.Error
}

// Dispatcher routes a parsed command through the permission gate and entity
// resolution to the matching domain mutation. All orchestration state is
// stack-local to one command.
type Dispatcher struct {
	store    DispatcherStore
	resolver *Resolver
	gate     *Gate
	domain   *taskdomain.Service
}

func NewDispatcher(s DispatcherStore, resolver *Resolver, gate *Gate, domain *taskdomain.Service) *Dispatcher {
	return &Dispatcher{store: s, resolver: resolver, gate: gate, domain: domain}
}

// Execute runs one command for the human user. Handler panics become
// failure values.
func (d *Dispatcher) Execute(ctx context.Context, userID int32, command *ParsedCommand) (result *DispatchResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("automation handler panicked", "action", command.Action, "panic", r)
			result = failure(command.Action, fmt.Sprintf("Command failed unexpectedly: %v", r))
		}
		outcome := "failure"
		if result != nil && result.Success {
			outcome = "success"
		}
		metricDispatchLatency.WithLabelValues(command.Action.String(), outcome).Observe(time.Since(start).Seconds())
	}()

	if allowed, reason := d.gate.Check(ctx, userID, command.Action); !allowed {
		return failure(command.Action, reason)
	}

	switch command.Action {
	case ActionCreateTask:
		return d.createTask(ctx, userID, command)
	case ActionAssignTask:
		return d.assignTask(ctx, userID, command)
	case ActionUpdateTask:
		return d.updateTask(ctx, userID, command)
	case ActionCreateSprint:
		return d.createSprint(ctx, userID, command)
	case ActionStartSprint:
		return d.setSprintStatus(ctx, userID, command, store.SprintStatusActive)
	case ActionCompleteSprint:
		return d.setSprintStatus(ctx, userID, command, store.SprintStatusCompleted)
	case ActionAddTaskToSprint:
		return d.addTaskToSprint(ctx, userID, command)
	case ActionRemoveTaskFromSprint:
		return d.removeTaskFromSprint(ctx, userID, command)
	case ActionListTasks:
		return d.listTasks(ctx, userID, command)
	case ActionListSprints:
		return d.listSprints(ctx, userID, command)
	case ActionListProjects:
		return d.listProjects(ctx, userID)
	case ActionCreateProject:
		return d.createProject(ctx, userID, command)
	case ActionAddMember:
		return d.addMember(ctx, userID, command)
	case ActionRemoveMember:
		return d.removeMember(ctx, userID, command)
	case ActionListMembers:
		return d.listMembers(ctx, userID, command)
	default:
		return &DispatchResult{Success: false, Error: fmt.Sprintf("Unknown action: %s", command.Action)}
	}
}

func failure(action Action, message string) *DispatchResult {
	return &DispatchResult{Success: false, Action: action.String(), Error: message}
}

func success(action Action, message string, result any) *DispatchResult {
	return &DispatchResult{Success: true, Action: action.String(), Message: message, Result: result}
}

// requireProject resolves the project named in the params, failing with the
// list of available project names for user guidance.
func (d *Dispatcher) requireProject(ctx context.Context, userID int32, command *ParsedCommand) (*store.Project, *DispatchResult) {
	projectID := command.Param("project_id")
	projectName := command.Param("project_name")
	if projectID == "" && projectName == "" {
		return nil, failure(command.Action, "Please specify which project, e.g. \"in the CDW project\"")
	}

	project := d.resolver.ResolveProject(ctx, userID, projectID, projectName)
	if project == nil {
		label := projectName
		if label == "" {
			label = projectID
		}
		names := make([]string, 0)
		for _, p := range d.resolver.AccessibleProjects(ctx, userID) {
			names = append(names, p.Name)
		}
		if len(names) == 0 {
			return nil, failure(command.Action, fmt.Sprintf("Project '%s' not found. You have no accessible projects.", label))
		}
		return nil, failure(command.Action, fmt.Sprintf("Project '%s' not found. Available projects: %s", label, strings.Join(names, ", ")))
	}
	return project, nil
}

func (d *Dispatcher) requireTask(ctx context.Context, userID int32, command *ParsedCommand) (*store.Task, *DispatchResult) {
	taskID := command.Param("task_id")
	ticketID := command.Param("ticket_id")
	title := command.Param("task_title")
	if title == "" {
		title = command.Param("title")
	}
	// A ticket-shaped task_id goes down the ticket path.
	if ticketID == "" && ticketIDPattern.MatchString(strings.ToUpper(strings.TrimSpace(taskID))) {
		ticketID, taskID = taskID, ""
	}
	if taskID == "" && ticketID == "" && title == "" {
		return nil, failure(command.Action, "Please specify which task, e.g. a ticket id like FTP-005 or part of its title")
	}

	task := d.resolver.ResolveTask(ctx, userID, taskID, ticketID, title)
	if task == nil {
		label := firstNonEmpty(ticketID, taskID, title)
		return nil, failure(command.Action, fmt.Sprintf("Task '%s' not found in your projects", label))
	}
	return task, nil
}

func (d *Dispatcher) createTask(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	title := command.Param("title")
	if title == "" {
		return failure(command.Action, "Task title is required, e.g. \"create task called Fix Login\"")
	}

	project, fail := d.requireProject(ctx, userID, command)
	if fail != nil {
		return fail
	}

	body := map[string]any{
		"title":       title,
		"description": command.Param("description"),
		"project_id":  project.ID,
		"priority":    command.Param("priority"),
		"issue_type":  command.Param("issue_type"),
		"due_date":    command.Param("due_date"),
	}
	if labels := command.Param("labels"); labels != "" {
		body["labels"] = strings.Split(labels, ",")
	}

	if identifier := firstNonEmpty(command.Param("assignee_email"), command.Param("assignee_name")); identifier != "" {
		assignee := d.resolver.ResolveUser(ctx, identifier)
		if assignee == nil {
			return failure(command.Action, fmt.Sprintf("User '%s' not found", identifier))
		}
		body["assignee_id"] = assignee.ID
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return failure(command.Action, fmt.Sprintf("Failed to encode task: %v", err))
	}

	result := taskdomain.Normalize(d.domain.CreateTask(ctx, string(encoded), userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}

	payload := decodePayload(result.Payload)
	message := fmt.Sprintf("Created task '%s' in project %s", title, project.Name)
	if ticket, ok := payload["ticket_id"].(string); ok && ticket != "" {
		message = fmt.Sprintf("Created task %s '%s' in project %s", ticket, title, project.Name)
	}
	return success(command.Action, message, payload)
}

func (d *Dispatcher) assignTask(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	task, fail := d.requireTask(ctx, userID, command)
	if fail != nil {
		return fail
	}

	identifier := firstNonEmpty(command.Param("assignee_email"), command.Param("assignee_name"), command.Param("assignee"))
	if identifier == "" {
		return failure(command.Action, "Please specify who to assign the task to")
	}
	assignee := d.resolver.ResolveUser(ctx, identifier)
	if assignee == nil {
		return failure(command.Action, fmt.Sprintf("User '%s' not found", identifier))
	}

	body, _ := json.Marshal(map[string]any{"assignee_id": assignee.ID})
	result := taskdomain.Normalize(d.domain.UpdateTask(ctx, string(body), task.ID, userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}
	return success(command.Action,
		fmt.Sprintf("Assigned %s '%s' to %s", task.TicketID, task.Title, assignee.Name),
		decodePayload(result.Payload))
}

func (d *Dispatcher) updateTask(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	task, fail := d.requireTask(ctx, userID, command)
	if fail != nil {
		return fail
	}

	body := map[string]any{}
	if status := command.Param("status"); status != "" {
		body["status"] = normalizeStatus(status)
	}
	if priority := command.Param("priority"); priority != "" {
		body["priority"] = priority
	}
	if newTitle := command.Param("new_title"); newTitle != "" {
		body["title"] = newTitle
	}
	if len(body) == 0 {
		return failure(command.Action, "Please specify what to update, e.g. a new status or priority")
	}

	encoded, _ := json.Marshal(body)
	result := taskdomain.Normalize(d.domain.UpdateTask(ctx, string(encoded), task.ID, userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}
	return success(command.Action,
		fmt.Sprintf("Updated task %s '%s'", task.TicketID, task.Title),
		decodePayload(result.Payload))
}

func (d *Dispatcher) createSprint(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	name := firstNonEmpty(command.Param("sprint_name"), command.Param("name"))
	if name == "" {
		return failure(command.Action, "Sprint name is required, e.g. \"create sprint Sprint 12 in CDW\"")
	}

	project, fail := d.requireProject(ctx, userID, command)
	if fail != nil {
		return fail
	}

	body, _ := json.Marshal(map[string]any{
		"name":       name,
		"goal":       command.Param("goal"),
		"start_date": command.Param("start_date"),
		"end_date":   command.Param("end_date"),
	})
	result := taskdomain.Normalize(d.domain.CreateSprint(ctx, string(body), project.ID, userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}
	return success(command.Action,
		fmt.Sprintf("Created sprint '%s' in project %s", name, project.Name),
		decodePayload(result.Payload))
}

func (d *Dispatcher) setSprintStatus(ctx context.Context, userID int32, command *ParsedCommand, status store.SprintStatus) *DispatchResult {
	var projectID *int32
	if command.Param("project_id") != "" || command.Param("project_name") != "" {
		project, fail := d.requireProject(ctx, userID, command)
		if fail != nil {
			return fail
		}
		projectID = &project.ID
	}

	sprintName := firstNonEmpty(command.Param("sprint_name"), command.Param("name"))
	if status == store.SprintStatusCompleted && sprintName == "" {
		// Completing without naming a sprint targets the active one.
		sprintName = "active"
	}
	sprint := d.resolver.ResolveSprint(ctx, userID, projectID, command.Param("sprint_id"), sprintName)
	if sprint == nil {
		return failure(command.Action, fmt.Sprintf("Sprint '%s' not found in your projects", firstNonEmpty(sprintName, command.Param("sprint_id"))))
	}

	result := taskdomain.Normalize(d.domain.UpdateSprintStatus(ctx, sprint.ID, status))
	if !result.OK {
		return failure(command.Action, result.Message)
	}

	verb := "Started"
	if status == store.SprintStatusCompleted {
		verb = "Completed"
	}
	return success(command.Action, fmt.Sprintf("%s sprint '%s'", verb, sprint.Name), decodePayload(result.Payload))
}

func (d *Dispatcher) addTaskToSprint(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	task, fail := d.requireTask(ctx, userID, command)
	if fail != nil {
		return fail
	}

	sprintName := firstNonEmpty(command.Param("sprint_name"), command.Param("sprint"))
	if sprintName == "" && command.Param("sprint_id") == "" {
		sprintName = "active"
	}
	sprint := d.resolver.ResolveSprint(ctx, userID, &task.ProjectID, command.Param("sprint_id"), sprintName)
	if sprint == nil {
		return failure(command.Action, fmt.Sprintf("Sprint '%s' not found in the task's project", firstNonEmpty(sprintName, command.Param("sprint_id"))))
	}

	body, _ := json.Marshal(map[string]any{"sprint_id": sprint.ID})
	result := taskdomain.Normalize(d.domain.UpdateTask(ctx, string(body), task.ID, userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}
	return success(command.Action,
		fmt.Sprintf("Added %s '%s' to sprint '%s'", task.TicketID, task.Title, sprint.Name),
		decodePayload(result.Payload))
}

func (d *Dispatcher) removeTaskFromSprint(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	task, fail := d.requireTask(ctx, userID, command)
	if fail != nil {
		return fail
	}
	if task.SprintID == nil {
		return failure(command.Action, fmt.Sprintf("Task %s is not in a sprint", task.TicketID))
	}

	body, _ := json.Marshal(map[string]any{"sprint_id": nil})
	result := taskdomain.Normalize(d.domain.UpdateTask(ctx, string(body), task.ID, userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}
	return success(command.Action,
		fmt.Sprintf("Removed %s '%s' from its sprint", task.TicketID, task.Title),
		decodePayload(result.Payload))
}

func (d *Dispatcher) listTasks(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	find := &store.FindTask{Limit: 50}

	if command.Param("project_id") != "" || command.Param("project_name") != "" {
		project, fail := d.requireProject(ctx, userID, command)
		if fail != nil {
			return fail
		}
		find.ProjectID = &project.ID
	} else {
		find.ProjectIDs = d.resolver.AccessibleProjectIDs(ctx, userID)
	}
	if status := command.Param("status"); status != "" {
		taskStatus := store.TaskStatus(normalizeStatus(status))
		find.Status = &taskStatus
	}

	tasks, err := d.store.ListTasks(ctx, find)
	if err != nil {
		return failure(command.Action, fmt.Sprintf("Failed to list tasks: %v", err))
	}

	summaries := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, map[string]any{
			"ticket_id": t.TicketID,
			"title":     t.Title,
			"status":    string(t.Status),
			"priority":  string(t.Priority),
		})
	}

	message := fmt.Sprintf("Found %d task(s)", len(tasks))
	if len(tasks) == 0 {
		message = "No tasks found"
	}
	return success(command.Action, message, map[string]any{"count": len(tasks), "tasks": summaries})
}

func (d *Dispatcher) listSprints(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	find := &store.FindSprint{}

	if command.Param("project_id") != "" || command.Param("project_name") != "" {
		project, fail := d.requireProject(ctx, userID, command)
		if fail != nil {
			return fail
		}
		find.ProjectID = &project.ID
	} else {
		find.ProjectIDs = d.resolver.AccessibleProjectIDs(ctx, userID)
	}

	sprints, err := d.store.ListSprints(ctx, find)
	if err != nil {
		return failure(command.Action, fmt.Sprintf("Failed to list sprints: %v", err))
	}

	summaries := make([]map[string]any, 0, len(sprints))
	for _, s := range sprints {
		summaries = append(summaries, map[string]any{
			"name":   s.Name,
			"status": string(s.Status),
			"goal":   s.Goal,
		})
	}
	return success(command.Action,
		fmt.Sprintf("Found %d sprint(s)", len(sprints)),
		map[string]any{"count": len(sprints), "sprints": summaries})
}

func (d *Dispatcher) listProjects(ctx context.Context, userID int32) *DispatchResult {
	projects := d.resolver.AccessibleProjects(ctx, userID)

	summaries := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, map[string]any{
			"name":   p.Name,
			"status": string(p.Status),
		})
	}
	return success(ActionListProjects,
		fmt.Sprintf("You have %d project(s)", len(projects)),
		map[string]any{"count": len(projects), "projects": summaries})
}

func (d *Dispatcher) createProject(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	name := firstNonEmpty(command.Param("project_name"), command.Param("name"))
	if name == "" {
		return failure(command.Action, "Project name is required")
	}

	body, _ := json.Marshal(map[string]any{
		"name":        name,
		"description": command.Param("description"),
	})
	result := taskdomain.Normalize(d.domain.CreateProject(ctx, string(body), userID))
	if !result.OK {
		return failure(command.Action, result.Message)
	}
	return success(command.Action, fmt.Sprintf("Created project '%s'", name), decodePayload(result.Payload))
}

func (d *Dispatcher) addMember(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	project, fail := d.requireProject(ctx, userID, command)
	if fail != nil {
		return fail
	}

	identifier := firstNonEmpty(command.Param("member_email"), command.Param("member_name"), command.Param("user_email"), command.Param("user_name"))
	if identifier == "" {
		return failure(command.Action, "Please specify who to add, by email or name")
	}
	member := d.resolver.ResolveUser(ctx, identifier)
	if member == nil {
		return failure(command.Action, fmt.Sprintf("User '%s' not found", identifier))
	}

	role := command.Param("role")
	if role == "" {
		role = "member"
	}
	if err := d.domain.AddMember(ctx, project.ID, member.ID, role); err != nil {
		return failure(command.Action, fmt.Sprintf("Failed to add member: %v", err))
	}
	return success(command.Action, fmt.Sprintf("Added %s to project %s", member.Name, project.Name), nil)
}

func (d *Dispatcher) removeMember(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	project, fail := d.requireProject(ctx, userID, command)
	if fail != nil {
		return fail
	}

	identifier := firstNonEmpty(command.Param("member_email"), command.Param("member_name"), command.Param("user_email"), command.Param("user_name"))
	if identifier == "" {
		return failure(command.Action, "Please specify who to remove, by email or name")
	}
	member := d.resolver.ResolveUser(ctx, identifier)
	if member == nil {
		return failure(command.Action, fmt.Sprintf("User '%s' not found", identifier))
	}

	if err := d.domain.RemoveMember(ctx, project.ID, member.ID); err != nil {
		return failure(command.Action, fmt.Sprintf("Failed to remove member: %v", err))
	}
	return success(command.Action, fmt.Sprintf("Removed %s from project %s", member.Name, project.Name), nil)
}

func (d *Dispatcher) listMembers(ctx context.Context, userID int32, command *ParsedCommand) *DispatchResult {
	project, fail := d.requireProject(ctx, userID, command)
	if fail != nil {
		return fail
	}

	members, err := d.store.ListProjectMembers(ctx, &store.FindProjectMember{ProjectID: &project.ID})
	if err != nil {
		return failure(command.Action, fmt.Sprintf("Failed to list members: %v", err))
	}

	summaries := make([]map[string]any, 0, len(members))
	for _, m := range members {
		summary := map[string]any{"user_id": m.UserID, "role": m.Role}
		if user, err := d.store.GetUser(ctx, &store.FindUser{ID: &m.UserID}); err == nil && user != nil {
			summary["name"] = user.Name
			summary["email"] = user.Email
		}
		summaries = append(summaries, summary)
	}
	return success(command.Action,
		fmt.Sprintf("Project %s has %d member(s)", project.Name, len(members)),
		map[string]any{"count": len(members), "members": summaries})
}

// normalizeStatus maps casual status phrasing to canonical values.
func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "todo", "to do", "to-do", "open":
		return string(store.TaskStatusToDo)
	case "in progress", "in-progress", "started", "doing":
		return string(store.TaskStatusInProgress)
	case "dev complete", "dev-complete":
		return string(store.TaskStatusDevComplete)
	case "testing", "qa":
		return string(store.TaskStatusTesting)
	case "done", "complete", "completed", "finished":
		return string(store.TaskStatusDone)
	case "blocked":
		return string(store.TaskStatusBlocked)
	default:
		return raw
	}
}

func decodePayload(payload string) map[string]any {
	result := map[string]any{}
	if payload == "" {
		return result
	}
	_ = json.Unmarshal([]byte(payload), &result)
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
