package taskdomain

import (
	"context"
	"strings"

	"github.com/doitpm/assist/store"
)

// fakeDomainStore is an in-memory Store for exercising mutations without a
// database.
type fakeDomainStore struct {
	users    []*store.User
	projects []*store.Project
	tasks    []*store.Task
	sprints  []*store.Sprint
	members  []*store.ProjectMember

	nextTaskID   int32
	nextSprintID int32
}

func newFakeDomainStore() *fakeDomainStore {
	return &fakeDomainStore{nextTaskID: 1000, nextSprintID: 2000}
}

func (f *fakeDomainStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	for _, u := range f.users {
		if find.ID != nil && u.ID == *find.ID {
			return u, nil
		}
		if find.Email != nil && strings.EqualFold(u.Email, *find.Email) {
			return u, nil
		}
		if find.Name != nil && strings.EqualFold(u.Name, *find.Name) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeDomainStore) GetProject(_ context.Context, find *store.FindProject) (*store.Project, error) {
	for _, p := range f.projects {
		if find.ID != nil && p.ID == *find.ID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeDomainStore) ListProjectMembers(_ context.Context, find *store.FindProjectMember) ([]*store.ProjectMember, error) {
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

func (f *fakeDomainStore) CreateTask(_ context.Context, create *store.Task) (*store.Task, error) {
	create.ID = f.nextTaskID
	f.nextTaskID++
	f.tasks = append(f.tasks, create)
	return create, nil
}

func (f *fakeDomainStore) GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error) {
	tasks, err := f.ListTasks(ctx, find)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return tasks[0], nil
}

func (f *fakeDomainStore) ListTasks(_ context.Context, find *store.FindTask) ([]*store.Task, error) {
	result := []*store.Task{}
	for _, t := range f.tasks {
		if find.ID != nil && t.ID != *find.ID {
			continue
		}
		if find.TicketID != nil && !strings.EqualFold(t.TicketID, *find.TicketID) {
			continue
		}
		if find.ProjectID != nil && t.ProjectID != *find.ProjectID {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (f *fakeDomainStore) UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error) {
	task, err := f.GetTask(ctx, &store.FindTask{ID: &update.ID})
	if err != nil || task == nil {
		return nil, err
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.AssigneeID != nil {
		task.AssigneeID = update.AssigneeID
	}
	if update.ClearSprint {
		task.SprintID = nil
	} else if update.SprintID != nil {
		task.SprintID = update.SprintID
	}
	return task, nil
}

func (f *fakeDomainStore) CreateSprint(_ context.Context, create *store.Sprint) (*store.Sprint, error) {
	create.ID = f.nextSprintID
	f.nextSprintID++
	f.sprints = append(f.sprints, create)
	return create, nil
}

func (f *fakeDomainStore) UpdateSprint(_ context.Context, update *store.UpdateSprint) (*store.Sprint, error) {
	for _, s := range f.sprints {
		if s.ID != update.ID {
			continue
		}
		if update.Name != nil {
			s.Name = *update.Name
		}
		if update.Goal != nil {
			s.Goal = *update.Goal
		}
		if update.Status != nil {
			s.Status = *update.Status
		}
		return s, nil
	}
	return nil, nil
}

func (f *fakeDomainStore) CreateProject(_ context.Context, create *store.Project) (*store.Project, error) {
	create.ID = int32(len(f.projects) + 1)
	f.projects = append(f.projects, create)
	return create, nil
}

func (f *fakeDomainStore) AddProjectMember(_ context.Context, member *store.ProjectMember) error {
	f.members = append(f.members, member)
	return nil
}

func (f *fakeDomainStore) RemoveProjectMember(_ context.Context, member *store.ProjectMember) error {
	kept := f.members[:0]
	for _, m := range f.members {
		if m.ProjectID == member.ProjectID && m.UserID == member.UserID {
			continue
		}
		kept = append(kept, m)
	}
	f.members = kept
	return nil
}
