package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/doitpm/assist/store"
)

func (d *DB) CreateTask(ctx context.Context, create *store.Task) (*store.Task, error) {
	labels, err := json.Marshal(create.Labels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal labels")
	}
	stmt := `INSERT INTO task (ticket_id, title, description, status, priority, issue_type, labels, due_ts, assignee_id, sprint_id, project_id, creator_id, created_ts, updated_ts)
		VALUES (` + placeholders(14) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.TicketID, create.Title, create.Description, create.Status, create.Priority,
		create.IssueType, string(labels), create.DueTs, create.AssigneeID, create.SprintID,
		create.ProjectID, create.CreatorID, create.CreatedTs, create.UpdatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create task")
	}
	return create, nil
}

func (d *DB) GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error) {
	list, err := d.ListTasks(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error) {
	// An empty but non-nil project set means the caller has access to no
	// projects at all, so there is nothing to query.
	if find.ProjectIDs != nil && len(find.ProjectIDs) == 0 {
		return []*store.Task{}, nil
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.TicketID != nil {
		where, args = append(where, "UPPER(ticket_id) = UPPER("+placeholder(len(args)+1)+")"), append(args, *find.TicketID)
	}
	if find.TitleSubstring != nil {
		where, args = append(where, "title ILIKE "+placeholder(len(args)+1)), append(args, "%"+*find.TitleSubstring+"%")
	}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = "+placeholder(len(args)+1)), append(args, *find.ProjectID)
	}
	if len(find.ProjectIDs) > 0 {
		holders := make([]string, 0, len(find.ProjectIDs))
		for _, id := range find.ProjectIDs {
			holders = append(holders, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("project_id IN (%s)", strings.Join(holders, ", ")))
	}
	if find.SprintID != nil {
		where, args = append(where, "sprint_id = "+placeholder(len(args)+1)), append(args, *find.SprintID)
	}
	if find.AssigneeID != nil {
		where, args = append(where, "assignee_id = "+placeholder(len(args)+1)), append(args, *find.AssigneeID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}
	if find.Priority != nil {
		where, args = append(where, "priority = "+placeholder(len(args)+1)), append(args, *find.Priority)
	}

	query := `SELECT id, ticket_id, title, description, status, priority, issue_type, labels, due_ts, assignee_id, sprint_id, project_id, creator_id, created_ts, updated_ts
		FROM task
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	list := make([]*store.Task, 0)
	for rows.Next() {
		task := &store.Task{}
		var labels string
		if err := rows.Scan(
			&task.ID, &task.TicketID, &task.Title, &task.Description, &task.Status,
			&task.Priority, &task.IssueType, &labels, &task.DueTs, &task.AssigneeID,
			&task.SprintID, &task.ProjectID, &task.CreatorID, &task.CreatedTs, &task.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		if labels != "" {
			if err := json.Unmarshal([]byte(labels), &task.Labels); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal labels")
			}
		}
		list = append(list, task)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate tasks")
	}
	return list, nil
}

func (d *DB) UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if update.Priority != nil {
		set, args = append(set, "priority = "+placeholder(len(args)+1)), append(args, *update.Priority)
	}
	if update.AssigneeID != nil {
		set, args = append(set, "assignee_id = "+placeholder(len(args)+1)), append(args, *update.AssigneeID)
	}
	if update.ClearSprint {
		set = append(set, "sprint_id = NULL")
	} else if update.SprintID != nil {
		set, args = append(set, "sprint_id = "+placeholder(len(args)+1)), append(args, *update.SprintID)
	}
	if update.DueTs != nil {
		set, args = append(set, "due_ts = "+placeholder(len(args)+1)), append(args, *update.DueTs)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE task SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, ticket_id, title, description, status, priority, issue_type, labels, due_ts, assignee_id, sprint_id, project_id, creator_id, created_ts, updated_ts`
	task := &store.Task{}
	var labels string
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&task.ID, &task.TicketID, &task.Title, &task.Description, &task.Status,
		&task.Priority, &task.IssueType, &labels, &task.DueTs, &task.AssigneeID,
		&task.SprintID, &task.ProjectID, &task.CreatorID, &task.CreatedTs, &task.UpdatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("task not found")
		}
		return nil, errors.Wrap(err, "failed to update task")
	}
	if labels != "" {
		if err := json.Unmarshal([]byte(labels), &task.Labels); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal labels")
		}
	}
	return task, nil
}

func (d *DB) DeleteTask(ctx context.Context, delete *store.DeleteTask) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete task")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.New("task not found")
	}
	return nil
}
