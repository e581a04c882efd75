package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doitpm/assist/ai/taskdomain"
	"github.com/doitpm/assist/store"
)

// Agent endpoints serve the hosted agent's integration channel. Reads are
// unscoped snapshots of the workspace; mutations carry a requesting_user
// email and are authorized and attributed as that human user.

// requireAgentChannel guards the unscoped data reads: only the service
// channel or an admin user may see workspace-wide data.
func requireAgentChannel(c echo.Context) error {
	if isServiceChannel(c) {
		return nil
	}
	if user := currentUser(c); user != nil && user.Role.IsAdmin() {
		return nil
	}
	return echo.NewHTTPError(http.StatusForbidden, "Agent data access requires the service credential or an admin user")
}

type agentCreateTaskRequest struct {
	RequestingUser string `json:"requesting_user"`
	taskdomain.AgentCreateTaskRequest
}

type agentAssignTaskRequest struct {
	RequestingUser     string `json:"requesting_user"`
	AssigneeIdentifier string `json:"assignee_identifier"`
}

type agentCreateSprintRequest struct {
	RequestingUser string `json:"requesting_user"`
	taskdomain.AgentCreateSprintRequest
}

func (s *APIV1Service) AgentCreateTask(c echo.Context) error {
	request := &agentCreateTaskRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	if request.RequestingUser == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requesting_user is required")
	}
	result, err := s.Domain.AgentCreateTask(c.Request().Context(), request.RequestingUser, &request.AgentCreateTaskRequest)
	if err != nil {
		return httpError(err)
	}
	return c.JSONBlob(result.Code, []byte(result.Payload))
}

func (s *APIV1Service) AgentAssignTask(c echo.Context) error {
	request := &agentAssignTaskRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	if request.RequestingUser == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requesting_user is required")
	}
	result, err := s.Domain.AgentAssignTask(c.Request().Context(), request.RequestingUser, c.Param("id"), request.AssigneeIdentifier)
	if err != nil {
		return httpError(err)
	}
	return c.JSONBlob(result.Code, []byte(result.Payload))
}

func (s *APIV1Service) AgentCreateSprint(c echo.Context) error {
	request := &agentCreateSprintRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	if request.RequestingUser == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requesting_user is required")
	}
	result, err := s.Domain.AgentCreateSprint(c.Request().Context(), request.RequestingUser, &request.AgentCreateSprintRequest)
	if err != nil {
		return httpError(err)
	}
	return c.JSONBlob(result.Code, []byte(result.Payload))
}

// AgentAssignableUsers lists the members of a project, owner included.
func (s *APIV1Service) AgentAssignableUsers(c echo.Context) error {
	ctx := c.Request().Context()
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed project id")
	}
	id := int32(projectID)

	project, err := s.Store.GetProject(ctx, &store.FindProject{ID: &id})
	if err != nil {
		return httpError(err)
	}
	if project == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Project not found")
	}

	members, err := s.Store.ListProjectMembers(ctx, &store.FindProjectMember{ProjectID: &id})
	if err != nil {
		return httpError(err)
	}

	seen := map[int32]bool{}
	users := []map[string]any{}
	appendUser := func(userID int32, projectRole string) {
		if seen[userID] {
			return
		}
		seen[userID] = true
		user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &userID})
		if err != nil || user == nil {
			return
		}
		users = append(users, map[string]any{
			"id":           user.ID,
			"name":         user.Name,
			"email":        user.Email,
			"role":         user.Role,
			"project_role": projectRole,
		})
	}
	appendUser(project.OwnerID, "owner")
	for _, member := range members {
		appendUser(member.UserID, member.Role)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
}

func (s *APIV1Service) AgentListProjects(c echo.Context) error {
	if err := requireAgentChannel(c); err != nil {
		return err
	}
	projects, err := s.Store.ListProjects(c.Request().Context(), &store.FindProject{})
	if err != nil {
		return httpError(err)
	}
	response := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		response = append(response, map[string]any{
			"id":            project.ID,
			"name":          project.Name,
			"description":   project.Description,
			"status":        project.Status,
			"ticket_prefix": project.TicketPrefix,
			"owner_id":      project.OwnerID,
			"created_ts":    project.CreatedTs,
			"updated_ts":    project.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(response),
		"projects": response,
	})
}

func (s *APIV1Service) AgentListTasks(c echo.Context) error {
	if err := requireAgentChannel(c); err != nil {
		return err
	}
	find := &store.FindTask{Limit: 100}
	filters := map[string]any{}

	if raw := c.QueryParam("project_id"); raw != "" {
		projectID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed project_id")
		}
		id := int32(projectID)
		find.ProjectID = &id
		filters["project_id"] = id
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := store.TaskStatus(raw)
		find.Status = &status
		filters["status"] = raw
	}
	if raw := c.QueryParam("priority"); raw != "" {
		priority := store.TaskPriority(raw)
		find.Priority = &priority
		filters["priority"] = raw
	}
	if raw := c.QueryParam("assigned_to"); raw != "" {
		assigneeID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed assigned_to")
		}
		id := int32(assigneeID)
		find.AssigneeID = &id
		filters["assigned_to"] = id
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			find.Limit = limit
		}
	}

	tasks, err := s.Store.ListTasks(c.Request().Context(), find)
	if err != nil {
		return httpError(err)
	}
	response := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, map[string]any{
			"id":          task.ID,
			"ticket_id":   task.TicketID,
			"title":       task.Title,
			"description": task.Description,
			"status":      task.Status,
			"priority":    task.Priority,
			"issue_type":  task.IssueType,
			"labels":      task.Labels,
			"project_id":  task.ProjectID,
			"assignee_id": task.AssigneeID,
			"sprint_id":   task.SprintID,
			"due_ts":      task.DueTs,
			"created_ts":  task.CreatedTs,
			"updated_ts":  task.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"count":           len(response),
		"filters_applied": filters,
		"tasks":           response,
	})
}

func (s *APIV1Service) AgentListUsers(c echo.Context) error {
	if err := requireAgentChannel(c); err != nil {
		return err
	}
	users, err := s.Store.ListUsers(c.Request().Context(), &store.FindUser{})
	if err != nil {
		return httpError(err)
	}
	response := make([]map[string]any, 0, len(users))
	for _, user := range users {
		response = append(response, map[string]any{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"role":       user.Role,
			"created_ts": user.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"count":   len(response),
		"users":   response,
	})
}

func (s *APIV1Service) AgentListSprints(c echo.Context) error {
	if err := requireAgentChannel(c); err != nil {
		return err
	}
	find := &store.FindSprint{}
	filters := map[string]any{}

	if raw := c.QueryParam("project_id"); raw != "" {
		projectID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed project_id")
		}
		id := int32(projectID)
		find.ProjectID = &id
		filters["project_id"] = id
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := store.SprintStatus(raw)
		find.Status = &status
		filters["status"] = raw
	}

	sprints, err := s.Store.ListSprints(c.Request().Context(), find)
	if err != nil {
		return httpError(err)
	}
	response := make([]map[string]any, 0, len(sprints))
	for _, sprint := range sprints {
		response = append(response, map[string]any{
			"id":         sprint.ID,
			"name":       sprint.Name,
			"goal":       sprint.Goal,
			"status":     sprint.Status,
			"project_id": sprint.ProjectID,
			"start_ts":   sprint.StartTs,
			"end_ts":     sprint.EndTs,
			"created_ts": sprint.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"count":           len(response),
		"filters_applied": filters,
		"sprints":         response,
	})
}

// AgentStatistics summarizes the workspace for the hosted agent.
func (s *APIV1Service) AgentStatistics(c echo.Context) error {
	if err := requireAgentChannel(c); err != nil {
		return err
	}
	ctx := c.Request().Context()

	projects, err := s.Store.ListProjects(ctx, &store.FindProject{})
	if err != nil {
		return httpError(err)
	}
	tasks, err := s.Store.ListTasks(ctx, &store.FindTask{})
	if err != nil {
		return httpError(err)
	}
	users, err := s.Store.ListUsers(ctx, &store.FindUser{})
	if err != nil {
		return httpError(err)
	}
	sprints, err := s.Store.ListSprints(ctx, &store.FindSprint{})
	if err != nil {
		return httpError(err)
	}

	tasksByStatus := map[store.TaskStatus]int{}
	tasksByPriority := map[store.TaskPriority]int{}
	for _, task := range tasks {
		tasksByStatus[task.Status]++
		tasksByPriority[task.Priority]++
	}
	usersByRole := map[store.Role]int{}
	for _, user := range users {
		usersByRole[user.Role]++
	}
	projectsByStatus := map[store.ProjectStatus]int{}
	for _, project := range projects {
		projectsByStatus[project.Status]++
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"statistics": map[string]any{
			"total_projects":     len(projects),
			"total_tasks":        len(tasks),
			"total_users":        len(users),
			"total_sprints":      len(sprints),
			"tasks_by_status":    tasksByStatus,
			"tasks_by_priority":  tasksByPriority,
			"users_by_role":      usersByRole,
			"projects_by_status": projectsByStatus,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
