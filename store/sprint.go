package store

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintStatusPlanning  SprintStatus = "Planning"
	SprintStatusActive    SprintStatus = "Active"
	SprintStatusCompleted SprintStatus = "Completed"
)

type Sprint struct {
	Name      string
	Goal      string
	Status    SprintStatus
	StartTs   int64
	EndTs     int64
	CreatedTs int64
	ID        int32
	ProjectID int32
}

type FindSprint struct {
	ID *int32
	// Name matches case-insensitively when set.
	Name      *string
	ProjectID *int32
	// ProjectIDs filters to a set of projects (the caller's accessible set).
	ProjectIDs []int32
	Status     *SprintStatus
}

type UpdateSprint struct {
	Name   *string
	Goal   *string
	Status *SprintStatus
	ID     int32
}

type DeleteSprint struct {
	ID int32
}
