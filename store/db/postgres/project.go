package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/doitpm/assist/store"
)

func (d *DB) CreateProject(ctx context.Context, create *store.Project) (*store.Project, error) {
	stmt := `INSERT INTO project (name, description, ticket_prefix, status, owner_id, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Name, create.Description, create.TicketPrefix, create.Status,
		create.OwnerID, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}
	return create, nil
}

func (d *DB) GetProject(ctx context.Context, find *store.FindProject) (*store.Project, error) {
	list, err := d.ListProjects(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "p.id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "LOWER(p.name) = LOWER("+placeholder(len(args)+1)+")"), append(args, *find.Name)
	}
	if find.Status != nil {
		where, args = append(where, "p.status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}
	if find.MemberID != nil {
		// Projects the user owns or is a member of.
		p1, p2 := placeholder(len(args)+1), placeholder(len(args)+2)
		where = append(where, "(p.owner_id = "+p1+" OR EXISTS (SELECT 1 FROM project_member m WHERE m.project_id = p.id AND m.user_id = "+p2+"))")
		args = append(args, *find.MemberID, *find.MemberID)
	}

	query := `SELECT p.id, p.name, p.description, p.ticket_prefix, p.status, p.owner_id, p.created_ts, p.updated_ts
		FROM project p
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.name, p.id`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}
	defer rows.Close()

	list := make([]*store.Project, 0)
	for rows.Next() {
		p := &store.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.TicketPrefix, &p.Status, &p.OwnerID, &p.CreatedTs, &p.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan project")
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate projects")
	}
	return list, nil
}

func (d *DB) UpdateProject(ctx context.Context, update *store.UpdateProject) (*store.Project, error) {
	set, args := []string{}, []any{}

	if update.Name != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *update.Name)
	}
	if update.Description != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *update.Description)
	}
	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE project SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, name, description, ticket_prefix, status, owner_id, created_ts, updated_ts`
	p := &store.Project{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&p.ID, &p.Name, &p.Description, &p.TicketPrefix, &p.Status, &p.OwnerID, &p.CreatedTs, &p.UpdatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("project not found")
		}
		return nil, errors.Wrap(err, "failed to update project")
	}
	return p, nil
}

func (d *DB) DeleteProject(ctx context.Context, delete *store.DeleteProject) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM project_member WHERE project_id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete project members")
	}
	result, err := d.db.ExecContext(ctx, `DELETE FROM project WHERE id = $1`, delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete project")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.New("project not found")
	}
	return nil
}

func (d *DB) AddProjectMember(ctx context.Context, member *store.ProjectMember) error {
	stmt := `INSERT INTO project_member (project_id, user_id, role)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := d.db.ExecContext(ctx, stmt, member.ProjectID, member.UserID, member.Role); err != nil {
		return errors.Wrap(err, "failed to add project member")
	}
	return nil
}

func (d *DB) RemoveProjectMember(ctx context.Context, member *store.ProjectMember) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM project_member WHERE project_id = $1 AND user_id = $2`,
		member.ProjectID, member.UserID,
	); err != nil {
		return errors.Wrap(err, "failed to remove project member")
	}
	return nil
}

func (d *DB) ListProjectMembers(ctx context.Context, find *store.FindProjectMember) ([]*store.ProjectMember, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ProjectID != nil {
		where, args = append(where, "project_id = "+placeholder(len(args)+1)), append(args, *find.ProjectID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT project_id, user_id, role FROM project_member
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY project_id, user_id`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list project members")
	}
	defer rows.Close()

	list := make([]*store.ProjectMember, 0)
	for rows.Next() {
		m := &store.ProjectMember{}
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role); err != nil {
			return nil, errors.Wrap(err, "failed to scan project member")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate project members")
	}
	return list, nil
}
