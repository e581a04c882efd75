package store

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "Active"
	ProjectStatusOnHold    ProjectStatus = "On Hold"
	ProjectStatusCompleted ProjectStatus = "Completed"
)

type Project struct {
	Name         string
	Description  string
	TicketPrefix string // Prefix used for human-readable ticket ids (e.g. "FTP").
	Status       ProjectStatus
	CreatedTs    int64
	UpdatedTs    int64
	ID           int32
	OwnerID      int32
}

// ProjectMember links a user to a project with a project-scoped role.
type ProjectMember struct {
	Role      string
	ProjectID int32
	UserID    int32
}

type FindProject struct {
	ID   *int32
	Name *string
	// MemberID filters to projects the user owns or is a member of.
	MemberID *int32
	Status   *ProjectStatus
}

type UpdateProject struct {
	Name        *string
	Description *string
	Status      *ProjectStatus
	UpdatedTs   *int64
	ID          int32
}

type DeleteProject struct {
	ID int32
}

type FindProjectMember struct {
	ProjectID *int32
	UserID    *int32
}
