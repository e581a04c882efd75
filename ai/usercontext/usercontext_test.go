package usercontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitpm/assist/store"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// countingStore records how often tasks are listed so cache behavior is
// observable.
type countingStore struct {
	user      *store.User
	projects  []*store.Project
	tasks     []*store.Task
	sprints   []*store.Sprint
	taskCalls int
}

func (c *countingStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	if c.user != nil && find.ID != nil && c.user.ID == *find.ID {
		return c.user, nil
	}
	return nil, nil
}

func (c *countingStore) ListProjects(_ context.Context, _ *store.FindProject) ([]*store.Project, error) {
	return c.projects, nil
}

func (c *countingStore) ListTasks(_ context.Context, _ *store.FindTask) ([]*store.Task, error) {
	c.taskCalls++
	return c.tasks, nil
}

func (c *countingStore) ListSprints(_ context.Context, _ *store.FindSprint) ([]*store.Sprint, error) {
	return c.sprints, nil
}

func ts(t time.Time) int64 { return t.Unix() }

func tsp(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

func newAnalyzerFixture() (*Analyzer, *countingStore) {
	s := &countingStore{
		user: &store.User{ID: 7, Name: "Mel Member", Role: store.RoleMember},
		projects: []*store.Project{
			{ID: 10, Name: "CDW Platform"},
		},
		tasks: []*store.Task{
			{TicketID: "CDW-001", Title: "Overdue fix", Status: store.TaskStatusInProgress, Priority: store.TaskPriorityHigh, DueTs: tsp(fixedNow.AddDate(0, 0, -2))},
			{TicketID: "CDW-002", Title: "Due soon", Status: store.TaskStatusToDo, Priority: store.TaskPriorityMedium, DueTs: tsp(fixedNow.AddDate(0, 0, 3))},
			{TicketID: "CDW-003", Title: "Done recently", Status: store.TaskStatusDone, Priority: store.TaskPriorityLow, UpdatedTs: ts(fixedNow.AddDate(0, 0, -3))},
			{TicketID: "CDW-004", Title: "Done last month", Status: store.TaskStatusDone, Priority: store.TaskPriorityLow, UpdatedTs: ts(fixedNow.AddDate(0, 0, -20))},
			{TicketID: "CDW-005", Title: "Stuck", Status: store.TaskStatusBlocked, Priority: store.TaskPriorityCritical},
			// Done and past due must not count as overdue.
			{TicketID: "CDW-006", Title: "Closed late", Status: store.TaskStatusDone, Priority: store.TaskPriorityMedium, UpdatedTs: ts(fixedNow.AddDate(0, 0, -40)), DueTs: tsp(fixedNow.AddDate(0, 0, -10))},
		},
		sprints: []*store.Sprint{
			{ID: 200, Name: "Sprint 7", ProjectID: 10, Status: store.SprintStatusActive},
		},
	}
	analyzer := NewAnalyzer(s)
	analyzer.now = func() time.Time { return fixedNow }
	return analyzer, s
}

func TestSnapshotAggregates(t *testing.T) {
	analyzer, _ := newAnalyzerFixture()

	snapshot, err := analyzer.Get(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "Mel Member", snapshot.UserName)
	assert.Equal(t, "member", snapshot.UserRole)
	assert.Equal(t, 6, snapshot.TasksTotal)
	assert.Equal(t, 1, snapshot.TasksOverdue)
	assert.Equal(t, 1, snapshot.TasksDueSoon)
	assert.Equal(t, 1, snapshot.TasksDoneWeek)
	assert.Equal(t, 2, snapshot.Velocity30d)
	assert.Equal(t, 1, snapshot.BlockedTasks)
	assert.Equal(t, 1, snapshot.ProjectsTotal)
	assert.Equal(t, 1, snapshot.SprintsActive)
	assert.Equal(t, 3, snapshot.StatusBreakdown[string(store.TaskStatusDone)])
	assert.Equal(t, 1, snapshot.PriorityBreakdown[string(store.TaskPriorityCritical)])
	require.Len(t, snapshot.RecentTasks, 6)
	assert.Equal(t, "CDW-001", snapshot.RecentTasks[0].Ticket)
	assert.Equal(t, fixedNow.AddDate(0, 0, 3).Format("2006-01-02"), snapshot.RecentTasks[1].Due)
}

func TestSnapshotCapsRecentTasks(t *testing.T) {
	analyzer, s := newAnalyzerFixture()
	for i := 0; i < 10; i++ {
		s.tasks = append(s.tasks, &store.Task{TicketID: "CDW-100", Title: "Filler", Status: store.TaskStatusToDo})
	}

	snapshot, err := analyzer.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, snapshot.RecentTasks, 8)
}

func TestSnapshotCacheHit(t *testing.T) {
	analyzer, s := newAnalyzerFixture()
	ctx := context.Background()

	first, err := analyzer.Get(ctx, 7)
	require.NoError(t, err)
	second, err := analyzer.Get(ctx, 7)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, s.taskCalls)
}

func TestSnapshotInvalidate(t *testing.T) {
	analyzer, s := newAnalyzerFixture()
	ctx := context.Background()

	_, err := analyzer.Get(ctx, 7)
	require.NoError(t, err)
	analyzer.Invalidate(7)
	_, err = analyzer.Get(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 2, s.taskCalls)
}

func TestSnapshotUnknownUser(t *testing.T) {
	analyzer, _ := newAnalyzerFixture()

	_, err := analyzer.Get(context.Background(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user 99 not found")
}
