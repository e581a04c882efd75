package automation

import (
	"context"
	"strings"

	"github.com/doitpm/assist/store"
)

// fakeStore is an in-memory store slice backing resolver, gate, and
// dispatcher tests.
type fakeStore struct {
	users    []*store.User
	projects []*store.Project
	tasks    []*store.Task
	sprints  []*store.Sprint
	members  []*store.ProjectMember
}

func (f *fakeStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	for _, u := range f.users {
		if find.ID != nil && u.ID == *find.ID {
			return u, nil
		}
		if find.Email != nil && u.Email == *find.Email {
			return u, nil
		}
		if find.Name != nil && strings.EqualFold(u.Name, *find.Name) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListProjects(_ context.Context, find *store.FindProject) ([]*store.Project, error) {
	result := []*store.Project{}
	for _, p := range f.projects {
		if find.MemberID != nil && !f.isMember(p, *find.MemberID) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeStore) isMember(p *store.Project, userID int32) bool {
	if p.OwnerID == userID {
		return true
	}
	for _, m := range f.members {
		if m.ProjectID == p.ID && m.UserID == userID {
			return true
		}
	}
	return false
}

func inProjectScope(projectIDs []int32, projectID int32) bool {
	if projectIDs == nil {
		return true
	}
	for _, id := range projectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

func (f *fakeStore) GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error) {
	tasks, err := f.ListTasks(ctx, find)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return tasks[0], nil
}

func (f *fakeStore) ListTasks(_ context.Context, find *store.FindTask) ([]*store.Task, error) {
	result := []*store.Task{}
	for _, t := range f.tasks {
		if !inProjectScope(find.ProjectIDs, t.ProjectID) {
			continue
		}
		if find.ID != nil && t.ID != *find.ID {
			continue
		}
		if find.TicketID != nil && !strings.EqualFold(t.TicketID, *find.TicketID) {
			continue
		}
		if find.TitleSubstring != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*find.TitleSubstring)) {
			continue
		}
		if find.ProjectID != nil && t.ProjectID != *find.ProjectID {
			continue
		}
		if find.Status != nil && t.Status != *find.Status {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (f *fakeStore) GetSprint(ctx context.Context, find *store.FindSprint) (*store.Sprint, error) {
	sprints, err := f.ListSprints(ctx, find)
	if err != nil || len(sprints) == 0 {
		return nil, err
	}
	return sprints[0], nil
}

func (f *fakeStore) ListSprints(_ context.Context, find *store.FindSprint) ([]*store.Sprint, error) {
	result := []*store.Sprint{}
	for _, s := range f.sprints {
		if !inProjectScope(find.ProjectIDs, s.ProjectID) {
			continue
		}
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.Name != nil && !strings.EqualFold(s.Name, *find.Name) {
			continue
		}
		if find.ProjectID != nil && s.ProjectID != *find.ProjectID {
			continue
		}
		if find.Status != nil && s.Status != *find.Status {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (f *fakeStore) ListProjectMembers(_ context.Context, find *store.FindProjectMember) ([]*store.ProjectMember, error) {
	result := []*store.ProjectMember{}
	for _, m := range f.members {
		if find.ProjectID != nil && m.ProjectID != *find.ProjectID {
			continue
		}
		if find.UserID != nil && m.UserID != *find.UserID {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}
