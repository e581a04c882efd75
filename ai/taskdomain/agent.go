package taskdomain

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/doitpm/assist/internal/apierror"
	"github.com/doitpm/assist/store"
)

// The agent operations implement the two-step identity pattern: the service
// credential only authenticates the HTTP channel, while the human user is
// re-identified here by email and every mutation is attributed to them.

var agentTicketPattern = regexp.MustCompile(`^[A-Z]{2,5}-\d+$`)

// AgentCreateTaskRequest carries the agent-friendly creation parameters.
type AgentCreateTaskRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	ProjectID     int32    `json:"project_id"`
	AssigneeEmail string   `json:"assignee_email,omitempty"`
	AssigneeName  string   `json:"assignee_name,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	IssueType     string   `json:"issue_type,omitempty"`
	DueDate       string   `json:"due_date,omitempty"`
	Labels        []string `json:"labels,omitempty"`
}

// AgentCreateTask creates a task on behalf of the human identified by
// requestingUser (an email). Requires role admin, super-admin, or member.
func (s *Service) AgentCreateTask(ctx context.Context, requestingUser string, req *AgentCreateTaskRequest) (*Result, error) {
	actual, err := s.requireUser(ctx, requestingUser)
	if err != nil {
		return nil, err
	}
	if !canMutateTasks(actual.Role) {
		return nil, apierror.Forbidden("Only Admin and Member users can create tasks. Your role is '%s'", actual.Role)
	}

	body := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"project_id":  req.ProjectID,
		"priority":    req.Priority,
		"issue_type":  req.IssueType,
		"due_date":    req.DueDate,
		"labels":      req.Labels,
	}

	if req.AssigneeEmail != "" {
		assignee, err := s.store.GetUser(ctx, &store.FindUser{Email: &req.AssigneeEmail})
		if err != nil {
			return nil, apierror.Upstream("Failed to look up assignee: %v", err)
		}
		if assignee == nil {
			return nil, apierror.NotFound("User with email '%s' not found", req.AssigneeEmail)
		}
		body["assignee_id"] = assignee.ID
	} else if req.AssigneeName != "" {
		assignee, err := s.store.GetUser(ctx, &store.FindUser{Name: &req.AssigneeName})
		if err != nil {
			return nil, apierror.Upstream("Failed to look up assignee: %v", err)
		}
		if assignee == nil {
			return nil, apierror.NotFound("User '%s' not found", req.AssigneeName)
		}
		project, err := s.store.GetProject(ctx, &store.FindProject{ID: &req.ProjectID})
		if err != nil || project == nil {
			return nil, apierror.NotFound("Project not found")
		}
		if !s.isProjectMember(ctx, project, assignee.ID) {
			return nil, apierror.Forbidden("User '%s' is not a member of this project", req.AssigneeName)
		}
		body["assignee_id"] = assignee.ID
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, apierror.Upstream("Failed to encode task body: %v", err)
	}

	result := Normalize(s.CreateTask(ctx, string(encoded), actual.ID))
	return result, resultError(result, "Task creation failed")
}

// AgentAssignTask assigns a task identified by row id or ticket id to a user
// identified by email or name, attributed to the requesting human.
func (s *Service) AgentAssignTask(ctx context.Context, requestingUser, taskIdentifier, assigneeIdentifier string) (*Result, error) {
	actual, err := s.requireUser(ctx, requestingUser)
	if err != nil {
		return nil, err
	}
	if !canMutateTasks(actual.Role) {
		return nil, apierror.Forbidden("Only Admin and Member users can assign tasks. Your role is '%s'", actual.Role)
	}

	assignee, err := s.store.GetUser(ctx, &store.FindUser{Email: &assigneeIdentifier})
	if err != nil {
		return nil, apierror.Upstream("Failed to look up assignee: %v", err)
	}
	if assignee == nil {
		assignee, err = s.store.GetUser(ctx, &store.FindUser{Name: &assigneeIdentifier})
		if err != nil {
			return nil, apierror.Upstream("Failed to look up assignee: %v", err)
		}
	}
	if assignee == nil {
		return nil, apierror.NotFound("User '%s' not found", assigneeIdentifier)
	}

	task, err := s.findTaskByIdentifier(ctx, taskIdentifier)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apierror.NotFound("Task '%s' not found", taskIdentifier)
	}

	body, _ := json.Marshal(map[string]any{"assignee_id": assignee.ID})
	result := Normalize(s.UpdateTask(ctx, string(body), task.ID, actual.ID))
	return result, resultError(result, "Task assignment failed")
}

// AgentCreateSprintRequest carries the agent-friendly sprint parameters.
type AgentCreateSprintRequest struct {
	Name      string `json:"name"`
	Goal      string `json:"goal,omitempty"`
	ProjectID int32  `json:"project_id"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// AgentCreateSprint creates a sprint on behalf of the requesting human.
// Requires an admin role.
func (s *Service) AgentCreateSprint(ctx context.Context, requestingUser string, req *AgentCreateSprintRequest) (*Result, error) {
	actual, err := s.requireUser(ctx, requestingUser)
	if err != nil {
		return nil, err
	}
	if !actual.Role.IsAdmin() {
		return nil, apierror.Forbidden("Only Admin users can create sprints. Your role is '%s'", actual.Role)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apierror.Upstream("Failed to encode sprint body: %v", err)
	}

	result := Normalize(s.CreateSprint(ctx, string(body), req.ProjectID, actual.ID))
	return result, resultError(result, "Sprint creation failed")
}

func (s *Service) requireUser(ctx context.Context, email string) (*store.User, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{Email: &email})
	if err != nil {
		return nil, apierror.Upstream("Failed to look up user: %v", err)
	}
	if user == nil {
		return nil, apierror.NotFound("User with email '%s' not found", email)
	}
	return user, nil
}

// findTaskByIdentifier prefers the ticket-id path for ticket-shaped
// identifiers and falls back to the numeric row id.
func (s *Service) findTaskByIdentifier(ctx context.Context, identifier string) (*store.Task, error) {
	normalized := strings.ToUpper(strings.TrimSpace(identifier))
	if agentTicketPattern.MatchString(normalized) {
		task, err := s.store.GetTask(ctx, &store.FindTask{TicketID: &normalized})
		if err != nil {
			return nil, apierror.Upstream("Failed to look up task: %v", err)
		}
		return task, nil
	}

	id, err := strconv.ParseInt(identifier, 10, 32)
	if err != nil {
		return nil, nil
	}
	id32 := int32(id)
	task, err := s.store.GetTask(ctx, &store.FindTask{ID: &id32})
	if err != nil {
		return nil, apierror.Upstream("Failed to look up task: %v", err)
	}
	return task, nil
}

func canMutateTasks(role store.Role) bool {
	return role == store.RoleMember || role.IsAdmin()
}

// resultError converts a failed normalized result into the matching typed
// error so HTTP callers map it to the right status.
func resultError(result *Result, fallback string) error {
	if result.OK {
		return nil
	}
	message := result.Message
	if message == "" {
		message = fallback
	}
	switch result.Code {
	case 403:
		return apierror.Forbidden("%s", message)
	case 404:
		return apierror.NotFound("%s", message)
	case 400:
		return apierror.Validation("%s", message)
	default:
		return apierror.Upstream("%s", message)
	}
}
