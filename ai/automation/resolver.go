package automation

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/doitpm/assist/store"
)

// ResolverStore is the read-only slice of the store the resolver needs.
type ResolverStore interface {
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error)
	GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error)
	GetSprint(ctx context.Context, find *store.FindSprint) (*store.Sprint, error)
}

// ticketIDPattern matches human-readable ticket identifiers like FTP-005.
var ticketIDPattern = regexp.MustCompile(`^[A-Z]{2,5}-\d+$`)

// Resolver fuzzy-matches names and identifiers to canonical records, scoped
// to the projects the requesting user owns or is a member of. Every method
// is a pure read and returns nil on no match, never an error the caller has
// to branch on.
type Resolver struct {
	store ResolverStore
}

func NewResolver(s ResolverStore) *Resolver {
	return &Resolver{store: s}
}

// AccessibleProjects lists the user's owned-or-member projects.
func (r *Resolver) AccessibleProjects(ctx context.Context, userID int32) []*store.Project {
	projects, err := r.store.ListProjects(ctx, &store.FindProject{MemberID: &userID})
	if err != nil {
		slog.Error("failed to list accessible projects", "user_id", userID, "error", err)
		return nil
	}
	return projects
}

// AccessibleProjectIDs returns the id set for task and sprint scoping. The
// slice is non-nil even when empty so downstream queries treat "no projects"
// as an empty result, not an unscoped one.
func (r *Resolver) AccessibleProjectIDs(ctx context.Context, userID int32) []int32 {
	projects := r.AccessibleProjects(ctx, userID)
	ids := make([]int32, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}

// normalizeProjectName lowercases and strips a trailing " project" suffix,
// so "the CDW Project" and "cdw" compare equal.
func normalizeProjectName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(name), " project", ""))
}

// ResolveProject accepts a literal id or a free-text name. Name resolution
// tries exact normalized match first, then substring match in either
// direction. First match wins on ambiguity.
func (r *Resolver) ResolveProject(ctx context.Context, userID int32, projectID, projectName string) *store.Project {
	projects := r.AccessibleProjects(ctx, userID)

	if projectID != "" {
		if id, err := strconv.ParseInt(projectID, 10, 32); err == nil {
			for _, p := range projects {
				if p.ID == int32(id) {
					return p
				}
			}
		}
	}

	if projectName == "" {
		return nil
	}
	normInput := normalizeProjectName(projectName)

	for _, p := range projects {
		if normalizeProjectName(p.Name) == normInput {
			return p
		}
	}
	for _, p := range projects {
		pname := normalizeProjectName(p.Name)
		if strings.Contains(pname, normInput) || strings.Contains(normInput, pname) {
			return p
		}
	}

	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	slog.Warn("project not resolved", "input", projectName, "user_id", userID, "available", names)
	return nil
}

// ResolveTask accepts a row id, a ticket identifier, or a title fragment,
// tried in that priority order, always filtered to the caller's project set.
func (r *Resolver) ResolveTask(ctx context.Context, userID int32, taskID, ticketID, taskTitle string) *store.Task {
	projectIDs := r.AccessibleProjectIDs(ctx, userID)

	if taskID != "" {
		if id, err := strconv.ParseInt(taskID, 10, 32); err == nil {
			id32 := int32(id)
			task, err := r.store.GetTask(ctx, &store.FindTask{ID: &id32, ProjectIDs: projectIDs})
			if err == nil && task != nil {
				return task
			}
		}
	}

	if ticketID != "" {
		normalized := strings.ToUpper(strings.TrimSpace(ticketID))
		if ticketIDPattern.MatchString(normalized) {
			task, err := r.store.GetTask(ctx, &store.FindTask{TicketID: &normalized, ProjectIDs: projectIDs})
			if err == nil && task != nil {
				return task
			}
		}
	}

	if taskTitle != "" {
		task, err := r.store.GetTask(ctx, &store.FindTask{TitleSubstring: &taskTitle, ProjectIDs: projectIDs})
		if err == nil && task != nil {
			return task
		}
	}

	return nil
}

// ResolveSprint accepts an id or a name, scoped to one project when given or
// to all of the user's projects otherwise. The name "active" means the
// currently active sprint in scope rather than a literal name.
func (r *Resolver) ResolveSprint(ctx context.Context, userID int32, projectID *int32, sprintID, sprintName string) *store.Sprint {
	find := &store.FindSprint{}
	if projectID != nil {
		find.ProjectID = projectID
	} else {
		find.ProjectIDs = r.AccessibleProjectIDs(ctx, userID)
	}

	if sprintID != "" {
		if id, err := strconv.ParseInt(sprintID, 10, 32); err == nil {
			id32 := int32(id)
			scoped := *find
			scoped.ID = &id32
			sprint, err := r.store.GetSprint(ctx, &scoped)
			if err == nil && sprint != nil {
				return sprint
			}
		}
	}

	if sprintName != "" {
		scoped := *find
		if strings.EqualFold(sprintName, "active") {
			status := store.SprintStatusActive
			scoped.Status = &status
		} else {
			scoped.Name = &sprintName
		}
		sprint, err := r.store.GetSprint(ctx, &scoped)
		if err == nil && sprint != nil {
			return sprint
		}
	}

	return nil
}

// ResolveUser accepts an email (exact) or a name (case-insensitive exact),
// email tried first.
func (r *Resolver) ResolveUser(ctx context.Context, identifier string) *store.User {
	if identifier == "" {
		return nil
	}

	user, err := r.store.GetUser(ctx, &store.FindUser{Email: &identifier})
	if err == nil && user != nil {
		return user
	}

	user, err = r.store.GetUser(ctx, &store.FindUser{Name: &identifier})
	if err == nil && user != nil {
		return user
	}

	return nil
}
