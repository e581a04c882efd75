package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/doitpm/assist/store"
)

func (d *DB) CreateSprint(ctx context.Context, create *store.Sprint) (*store.Sprint, error) {
	stmt := `INSERT INTO sprint (name, goal, status, start_ts, end_ts, project_id, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Name, create.Goal, create.Status, create.StartTs, create.EndTs,
		create.ProjectID, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create sprint")
	}
	return create, nil
}

func (d *DB) GetSprint(ctx context.Context, find *store.FindSprint) (*store.Sprint, error) {
	list, err := d.ListSprints(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListSprints(ctx context.Context, find *store.FindSprint) ([]*store.Sprint, error) {
	if find.ProjectIDs != nil && len(find.ProjectIDs) == 0 {
		return []*store.Sprint{}, nil
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "LOWER(name) = LOWER(?)"), append(args, *find.Name)
	}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = ?"), append(args, *find.ProjectID)
	}
	if len(find.ProjectIDs) > 0 {
		holders := make([]string, 0, len(find.ProjectIDs))
		for _, id := range find.ProjectIDs {
			holders = append(holders, "?")
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("project_id IN (%s)", strings.Join(holders, ", ")))
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `SELECT id, name, goal, status, start_ts, end_ts, project_id, created_ts
		FROM sprint
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_ts DESC, id DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sprints")
	}
	defer rows.Close()

	list := make([]*store.Sprint, 0)
	for rows.Next() {
		s := &store.Sprint{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Goal, &s.Status, &s.StartTs, &s.EndTs, &s.ProjectID, &s.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan sprint")
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sprints")
	}
	return list, nil
}

func (d *DB) UpdateSprint(ctx context.Context, update *store.UpdateSprint) (*store.Sprint, error) {
	set, args := []string{}, []any{}

	if update.Name != nil {
		set, args = append(set, "name = ?"), append(args, *update.Name)
	}
	if update.Goal != nil {
		set, args = append(set, "goal = ?"), append(args, *update.Goal)
	}
	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE sprint SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, name, goal, status, start_ts, end_ts, project_id, created_ts`
	s := &store.Sprint{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&s.ID, &s.Name, &s.Goal, &s.Status, &s.StartTs, &s.EndTs, &s.ProjectID, &s.CreatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("sprint not found")
		}
		return nil, errors.Wrap(err, "failed to update sprint")
	}
	return s, nil
}
