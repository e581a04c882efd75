package store

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusToDo        TaskStatus = "To Do"
	TaskStatusInProgress  TaskStatus = "In Progress"
	TaskStatusDevComplete TaskStatus = "Dev Complete"
	TaskStatusTesting     TaskStatus = "Testing"
	TaskStatusDone        TaskStatus = "Done"
	TaskStatusBlocked     TaskStatus = "Blocked"
)

// TaskPriority is the urgency of a task.
type TaskPriority string

const (
	TaskPriorityCritical TaskPriority = "Critical"
	TaskPriorityHigh     TaskPriority = "High"
	TaskPriorityMedium   TaskPriority = "Medium"
	TaskPriorityLow      TaskPriority = "Low"
)

type Task struct {
	// TicketID is the human-readable identifier with the project's ticket
	// prefix, e.g. "FTP-005". Distinct from the internal row id.
	TicketID    string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	IssueType   string // task, bug, story
	Labels      []string
	CreatedTs   int64
	UpdatedTs   int64
	DueTs       *int64
	AssigneeID  *int32
	SprintID    *int32
	ID          int32
	ProjectID   int32
	CreatorID   int32
}

type FindTask struct {
	ID       *int32
	TicketID *string
	// TitleSubstring matches case-insensitively anywhere in the title.
	TitleSubstring *string
	ProjectID      *int32
	// ProjectIDs filters to a set of projects (the caller's accessible set).
	ProjectIDs []int32
	SprintID   *int32
	AssigneeID *int32
	Status     *TaskStatus
	Priority   *TaskPriority
	Limit      int
}

type UpdateTask struct {
	Title      *string
	Status     *TaskStatus
	Priority   *TaskPriority
	AssigneeID *int32
	SprintID   *int32
	// ClearSprint removes the sprint association when true.
	ClearSprint bool
	DueTs       *int64
	UpdatedTs   *int64
	ID          int32
}

type DeleteTask struct {
	ID int32
}
