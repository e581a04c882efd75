package taskdomain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/doitpm/assist/store"
)

// Store is the slice of the data layer the mutations need.
type Store interface {
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	GetProject(ctx context.Context, find *store.FindProject) (*store.Project, error)
	ListProjectMembers(ctx context.Context, find *store.FindProjectMember) ([]*store.ProjectMember, error)
	CreateTask(ctx context.Context, create *store.Task) (*store.Task, error)
	GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error)
	ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error)
	UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error)
	CreateSprint(ctx context.Context, create *store.Sprint) (*store.Sprint, error)
	UpdateSprint(ctx context.Context, update *store.UpdateSprint) (*store.Sprint, error)
	CreateProject(ctx context.Context, create *store.Project) (*store.Project, error)
	AddProjectMember(ctx context.Context, member *store.ProjectMember) error
	RemoveProjectMember(ctx context.Context, member *store.ProjectMember) error
}

// Service executes domain mutations with explicit acting-user attribution.
type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// CreateTask creates a task from a JSON body attributed to actingUserID.
// The ticket id is derived from the project's prefix and task count.
func (s *Service) CreateTask(ctx context.Context, bodyJSON string, actingUserID int32) *Envelope {
	title := gjson.Get(bodyJSON, "title").String()
	if title == "" {
		return errorEnvelope(400, "Task title is required")
	}
	projectID := int32(gjson.Get(bodyJSON, "project_id").Int())
	if projectID == 0 {
		return errorEnvelope(400, "Target project is required")
	}

	project, err := s.store.GetProject(ctx, &store.FindProject{ID: &projectID})
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Failed to load project: %v", err))
	}
	if project == nil {
		return errorEnvelope(404, "Project not found")
	}

	if !s.isProjectMember(ctx, project, actingUserID) {
		return errorEnvelope(403, "You are not a member of this project")
	}

	ticketID, err := s.nextTicketID(ctx, project)
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Failed to allocate ticket id: %v", err))
	}

	now := time.Now().Unix()
	task := &store.Task{
		TicketID:    ticketID,
		Title:       title,
		Description: gjson.Get(bodyJSON, "description").String(),
		Status:      store.TaskStatusToDo,
		Priority:    taskPriority(gjson.Get(bodyJSON, "priority").String()),
		IssueType:   issueType(gjson.Get(bodyJSON, "issue_type").String()),
		ProjectID:   projectID,
		CreatorID:   actingUserID,
		CreatedTs:   now,
		UpdatedTs:   now,
	}
	for _, label := range gjson.Get(bodyJSON, "labels").Array() {
		if label.String() != "" {
			task.Labels = append(task.Labels, label.String())
		}
	}
	if assigneeID := gjson.Get(bodyJSON, "assignee_id"); assigneeID.Exists() && assigneeID.Int() != 0 {
		id := int32(assigneeID.Int())
		task.AssigneeID = &id
	}
	if sprintID := gjson.Get(bodyJSON, "sprint_id"); sprintID.Exists() && sprintID.Int() != 0 {
		id := int32(sprintID.Int())
		task.SprintID = &id
	}
	if dueDate := gjson.Get(bodyJSON, "due_date").String(); dueDate != "" {
		if parsed, err := time.Parse("2006-01-02", dueDate); err == nil {
			ts := parsed.Unix()
			task.DueTs = &ts
		}
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Task creation failed: %v", err))
	}
	return &Envelope{StatusCode: 200, Body: taskBody(created)}
}

// UpdateTask applies a partial JSON body to a task attributed to actingUserID.
func (s *Service) UpdateTask(ctx context.Context, bodyJSON string, taskID int32, actingUserID int32) *Envelope {
	task, err := s.store.GetTask(ctx, &store.FindTask{ID: &taskID})
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Failed to load task: %v", err))
	}
	if task == nil {
		return errorEnvelope(404, "Task not found")
	}

	project, err := s.store.GetProject(ctx, &store.FindProject{ID: &task.ProjectID})
	if err != nil || project == nil {
		return errorEnvelope(404, "Project not found")
	}
	if !s.isProjectMember(ctx, project, actingUserID) {
		return errorEnvelope(403, "You are not a member of this project")
	}

	now := time.Now().Unix()
	update := &store.UpdateTask{ID: taskID, UpdatedTs: &now}
	if title := gjson.Get(bodyJSON, "title").String(); title != "" {
		update.Title = &title
	}
	if status := gjson.Get(bodyJSON, "status").String(); status != "" {
		taskStatus := store.TaskStatus(status)
		update.Status = &taskStatus
	}
	if priority := gjson.Get(bodyJSON, "priority").String(); priority != "" {
		taskPri := taskPriority(priority)
		update.Priority = &taskPri
	}
	if assigneeID := gjson.Get(bodyJSON, "assignee_id"); assigneeID.Exists() && assigneeID.Int() != 0 {
		id := int32(assigneeID.Int())
		update.AssigneeID = &id
	}
	if sprintID := gjson.Get(bodyJSON, "sprint_id"); sprintID.Exists() {
		if sprintID.Type == gjson.Null || sprintID.Int() == 0 {
			update.ClearSprint = true
		} else {
			id := int32(sprintID.Int())
			update.SprintID = &id
		}
	}

	updated, err := s.store.UpdateTask(ctx, update)
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Task update failed: %v", err))
	}
	return &Envelope{StatusCode: 200, Body: taskBody(updated)}
}

// CreateSprint creates a sprint in a project attributed to actingUserID.
func (s *Service) CreateSprint(ctx context.Context, bodyJSON string, projectID int32, actingUserID int32) *Envelope {
	name := gjson.Get(bodyJSON, "name").String()
	if name == "" {
		return errorEnvelope(400, "Sprint name is required")
	}

	project, err := s.store.GetProject(ctx, &store.FindProject{ID: &projectID})
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Failed to load project: %v", err))
	}
	if project == nil {
		return errorEnvelope(404, "Project not found")
	}
	if !s.isProjectMember(ctx, project, actingUserID) {
		return errorEnvelope(403, "You are not a member of this project")
	}

	now := time.Now().Unix()
	startTs := now
	endTs := now + 14*24*3600 // default two-week sprint
	if start := gjson.Get(bodyJSON, "start_date").String(); start != "" {
		if parsed, err := time.Parse("2006-01-02", start); err == nil {
			startTs = parsed.Unix()
		}
	}
	if end := gjson.Get(bodyJSON, "end_date").String(); end != "" {
		if parsed, err := time.Parse("2006-01-02", end); err == nil {
			endTs = parsed.Unix()
		}
	}

	sprint := &store.Sprint{
		Name:      name,
		Goal:      gjson.Get(bodyJSON, "goal").String(),
		Status:    store.SprintStatusPlanning,
		StartTs:   startTs,
		EndTs:     endTs,
		ProjectID: projectID,
		CreatedTs: now,
	}
	created, err := s.store.CreateSprint(ctx, sprint)
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Sprint creation failed: %v", err))
	}
	return &Envelope{StatusCode: 200, Body: sprintBody(created)}
}

// UpdateSprintStatus moves a sprint through its lifecycle.
func (s *Service) UpdateSprintStatus(ctx context.Context, sprintID int32, status store.SprintStatus) *Envelope {
	updated, err := s.store.UpdateSprint(ctx, &store.UpdateSprint{ID: sprintID, Status: &status})
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Sprint update failed: %v", err))
	}
	return &Envelope{StatusCode: 200, Body: sprintBody(updated)}
}

// CreateProject creates a project owned by actingUserID.
func (s *Service) CreateProject(ctx context.Context, bodyJSON string, actingUserID int32) *Envelope {
	name := gjson.Get(bodyJSON, "name").String()
	if name == "" {
		return errorEnvelope(400, "Project name is required")
	}

	now := time.Now().Unix()
	project := &store.Project{
		Name:         name,
		Description:  gjson.Get(bodyJSON, "description").String(),
		TicketPrefix: ticketPrefix(name, gjson.Get(bodyJSON, "ticket_prefix").String()),
		Status:       store.ProjectStatusActive,
		OwnerID:      actingUserID,
		CreatedTs:    now,
		UpdatedTs:    now,
	}
	created, err := s.store.CreateProject(ctx, project)
	if err != nil {
		return errorEnvelope(500, fmt.Sprintf("Project creation failed: %v", err))
	}
	return &Envelope{StatusCode: 200, Body: map[string]any{
		"id":            created.ID,
		"name":          created.Name,
		"ticket_prefix": created.TicketPrefix,
		"status":        string(created.Status),
	}}
}

// AddMember attaches a user to a project with the given project role.
func (s *Service) AddMember(ctx context.Context, projectID, userID int32, role string) error {
	return s.store.AddProjectMember(ctx, &store.ProjectMember{ProjectID: projectID, UserID: userID, Role: role})
}

// RemoveMember detaches a user from a project.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID int32) error {
	return s.store.RemoveProjectMember(ctx, &store.ProjectMember{ProjectID: projectID, UserID: userID})
}

func (s *Service) isProjectMember(ctx context.Context, project *store.Project, userID int32) bool {
	if project.OwnerID == userID {
		return true
	}
	members, err := s.store.ListProjectMembers(ctx, &store.FindProjectMember{ProjectID: &project.ID, UserID: &userID})
	if err != nil {
		return false
	}
	return len(members) > 0
}

func (s *Service) nextTicketID(ctx context.Context, project *store.Project) (string, error) {
	tasks, err := s.store.ListTasks(ctx, &store.FindTask{ProjectID: &project.ID})
	if err != nil {
		return "", err
	}
	prefix := project.TicketPrefix
	if prefix == "" {
		prefix = ticketPrefix(project.Name, "")
	}
	return fmt.Sprintf("%s-%03d", prefix, len(tasks)+1), nil
}

func taskPriority(raw string) store.TaskPriority {
	switch store.TaskPriority(raw) {
	case store.TaskPriorityCritical, store.TaskPriorityHigh, store.TaskPriorityMedium, store.TaskPriorityLow:
		return store.TaskPriority(raw)
	default:
		return store.TaskPriorityMedium
	}
}

func issueType(raw string) string {
	switch raw {
	case "task", "bug", "story":
		return raw
	default:
		return "task"
	}
}

// ticketPrefix derives an uppercase prefix from the project name when none
// is configured explicitly.
func ticketPrefix(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	prefix := ""
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			prefix += string(r)
		}
		if len(prefix) == 3 {
			break
		}
	}
	if prefix == "" {
		prefix = "TSK"
	}
	return strings.ToUpper(prefix)
}

func taskBody(task *store.Task) map[string]any {
	body := map[string]any{
		"id":        task.ID,
		"ticket_id": task.TicketID,
		"title":     task.Title,
		"status":    string(task.Status),
		"priority":  string(task.Priority),
	}
	if task.AssigneeID != nil {
		body["assignee_id"] = *task.AssigneeID
	}
	if task.SprintID != nil {
		body["sprint_id"] = *task.SprintID
	}
	return body
}

func sprintBody(sprint *store.Sprint) map[string]any {
	return map[string]any{
		"id":         sprint.ID,
		"name":       sprint.Name,
		"status":     string(sprint.Status),
		"project_id": sprint.ProjectID,
	}
}
