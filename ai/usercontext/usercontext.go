// Package usercontext computes the per-user activity snapshot that grounds
// agent replies, with a short-TTL cache in front of the aggregation queries.
package usercontext

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doitpm/assist/store"
	"github.com/doitpm/assist/store/cache"
)

const snapshotTTL = 60 * time.Second

// RecentTask is a compact task reference for prompt injection.
type RecentTask struct {
	Ticket string `json:"ticket"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Due    string `json:"due,omitempty"`
}

// Snapshot is the derived aggregate over a user's tasks, projects, and
// sprints. It is ephemeral: recomputed on cache miss, never persisted.
type Snapshot struct {
	UserName          string         `json:"user_name"`
	UserRole          string         `json:"user_role"`
	TasksTotal        int            `json:"tasks_total"`
	TasksOverdue      int            `json:"tasks_overdue"`
	TasksDueSoon      int            `json:"tasks_due_soon"`
	TasksDoneWeek     int            `json:"tasks_done_week"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
	PriorityBreakdown map[string]int `json:"priority_breakdown"`
	ProjectsTotal     int            `json:"projects_total"`
	SprintsActive     int            `json:"sprints_active"`
	Velocity30d       int            `json:"velocity_30d"`
	BlockedTasks      int            `json:"blocked_tasks"`
	RecentTasks       []RecentTask   `json:"recent_tasks"`
}

// Store is the read slice the analyzer needs.
type Store interface {
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error)
	ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error)
	ListSprints(ctx context.Context, find *store.FindSprint) ([]*store.Sprint, error)
}

// Analyzer computes and caches snapshots.
type Analyzer struct {
	store Store
	cache *cache.Cache
	now   func() time.Time
}

func NewAnalyzer(s Store) *Analyzer {
	return &Analyzer{
		store: s,
		cache: cache.New(snapshotTTL),
		now:   time.Now,
	}
}

// Get returns the cached snapshot when fresh, otherwise recomputes it. A
// cache hit returns exactly the cached value.
func (a *Analyzer) Get(ctx context.Context, userID int32) (*Snapshot, error) {
	key := cacheKey(userID)
	if cached := a.cache.Get(key); cached != nil {
		if snapshot, ok := cached.(*Snapshot); ok {
			return snapshot, nil
		}
	}

	snapshot, err := a.analyze(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.cache.Set(key, snapshot, 0)
	return snapshot, nil
}

// Invalidate drops the cached snapshot for one user, or everyone when
// userID is zero.
func (a *Analyzer) Invalidate(userID int32) {
	if userID == 0 {
		a.cache.Clear("")
		return
	}
	a.cache.Clear(cacheKey(userID))
}

func cacheKey(userID int32) string {
	return fmt.Sprintf("user-context/%d", userID)
}

func (a *Analyzer) analyze(ctx context.Context, userID int32) (*Snapshot, error) {
	user, err := a.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	projects, err := a.store.ListProjects(ctx, &store.FindProject{MemberID: &userID})
	if err != nil {
		return nil, err
	}
	projectIDs := make([]int32, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}

	tasks, err := a.store.ListTasks(ctx, &store.FindTask{ProjectIDs: projectIDs})
	if err != nil {
		return nil, err
	}

	activeStatus := store.SprintStatusActive
	activeSprints, err := a.store.ListSprints(ctx, &store.FindSprint{ProjectIDs: projectIDs, Status: &activeStatus})
	if err != nil {
		slog.Warn("failed to list active sprints for snapshot", "user_id", userID, "error", err)
		activeSprints = nil
	}

	now := a.now()
	nowTs := now.Unix()
	weekAgo := now.AddDate(0, 0, -7).Unix()
	monthAgo := now.AddDate(0, 0, -30).Unix()
	soonTs := now.AddDate(0, 0, 7).Unix()

	snapshot := &Snapshot{
		UserName:          user.Name,
		UserRole:          string(user.Role),
		TasksTotal:        len(tasks),
		StatusBreakdown:   map[string]int{},
		PriorityBreakdown: map[string]int{},
		ProjectsTotal:     len(projects),
		SprintsActive:     len(activeSprints),
		RecentTasks:       []RecentTask{},
	}

	for _, t := range tasks {
		snapshot.StatusBreakdown[string(t.Status)]++
		snapshot.PriorityBreakdown[string(t.Priority)]++

		done := t.Status == store.TaskStatusDone
		if done {
			if t.UpdatedTs >= weekAgo {
				snapshot.TasksDoneWeek++
			}
			if t.UpdatedTs >= monthAgo {
				snapshot.Velocity30d++
			}
		}
		if t.Status == store.TaskStatusBlocked {
			snapshot.BlockedTasks++
		}
		if t.DueTs != nil && !done {
			if *t.DueTs < nowTs {
				snapshot.TasksOverdue++
			} else if *t.DueTs <= soonTs {
				snapshot.TasksDueSoon++
			}
		}
	}

	// Tasks arrive ordered by recency; the prompt gets the top 8.
	for _, t := range tasks {
		if len(snapshot.RecentTasks) == 8 {
			break
		}
		recent := RecentTask{
			Ticket: t.TicketID,
			Title:  t.Title,
			Status: string(t.Status),
		}
		if t.DueTs != nil {
			recent.Due = time.Unix(*t.DueTs, 0).UTC().Format("2006-01-02")
		}
		snapshot.RecentTasks = append(snapshot.RecentTasks, recent)
	}

	return snapshot, nil
}
