package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"ems/internal/apperror"
	"ems/internal/domain/authz"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func storeError(err error, notFoundMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeUnavailable, "store timed out", err)
	}
	return apperror.Wrap(apperror.CodeUnavailable, "store operation failed", err)
}

const taskColumns = `
  t.id, t.title, COALESCE(t.description, ''), t.deadline,
  t.assigned_to::text, e.employee_no, e.name, t.assigned_by::text,
  t.status, t.created_at, t.updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Deadline,
		&t.AssignedTo, &t.AssigneeNo, &t.Assignee, &t.AssignedBy,
		&t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type NewTask struct {
	Title       string
	Description string
	Deadline    *time.Time
	AssignedTo  string
	AssignedBy  string
}

func (s *Store) Create(ctx context.Context, in NewTask) (Task, error) {
	row := s.DB.QueryRow(ctx, `
    WITH inserted AS (
      INSERT INTO tasks (title, description, deadline, assigned_to, assigned_by, status)
      VALUES ($1, NULLIF($2, ''), $3, $4, $5, 'Pending')
      RETURNING *
    )
    SELECT`+taskColumns+`
    FROM inserted t
    JOIN employees e ON t.assigned_to = e.id
  `, in.Title, in.Description, in.Deadline, in.AssignedTo, in.AssignedBy)
	task, err := scanTask(row)
	if err != nil {
		return Task{}, storeError(err, "employee not found")
	}
	return task, nil
}

// Get returns the task with its comments and attachments loaded.
func (s *Store) Get(ctx context.Context, id string) (Task, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+taskColumns+`
    FROM tasks t
    JOIN employees e ON t.assigned_to = e.id
    WHERE t.id = $1
  `, id)
	task, err := scanTask(row)
	if err != nil {
		return Task{}, storeError(err, "task not found")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		task.Comments, err = s.comments(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		task.Attachments, err = s.attachments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Task{}, err
	}
	return task, nil
}

// List returns tasks visible under scope. A department admin sees tasks whose
// assignee is in their department plus any task they created themselves, even
// when the assignee has since moved out of the department.
func (s *Store) List(ctx context.Context, scope authz.Scope, actorID, status string) ([]Task, error) {
	query := `
    SELECT` + taskColumns + `
    FROM tasks t
    JOIN employees e ON t.assigned_to = e.id`
	var args []any
	where := func(cond string, values ...any) {
		start := len(args)
		args = append(args, values...)
		if start == 0 {
			query += " WHERE "
		} else {
			query += " AND "
		}
		placeholders := make([]any, len(values))
		for i := range values {
			placeholders[i] = start + i + 1
		}
		query += fmt.Sprintf(cond, placeholders...)
	}
	switch {
	case scope.All:
	case scope.DepartmentID != "":
		where("(e.department_id = $%d OR t.assigned_by = $%d)", scope.DepartmentID, actorID)
	default:
		where("t.assigned_to = $%d", scope.EmployeeID)
	}
	if status != "" {
		where("t.status = $%d", status)
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

type Update struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	AssignedTo  *string
	Status      *string
}

func (s *Store) Update(ctx context.Context, id string, upd Update) (Task, error) {
	var sets []string
	var args []any
	set := func(col string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Deadline != nil {
		set("deadline", *upd.Deadline)
	}
	if upd.AssignedTo != nil {
		set("assigned_to", *upd.AssignedTo)
	}
	if upd.Status != nil {
		if !ValidStatus(*upd.Status) {
			return Task{}, apperror.InvalidInput("invalid task status")
		}
		set("status", *upd.Status)
	}
	if len(sets) == 0 {
		return Task{}, apperror.InvalidInput("nothing to update")
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	tag, err := s.DB.Exec(ctx,
		fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return Task{}, storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return Task{}, apperror.NotFound("task not found")
	}
	return s.Get(ctx, id)
}

// UpdateStatus is the assignee path: status is the only field an employee may
// change on their own task.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (Task, error) {
	if !ValidStatus(status) {
		return Task{}, apperror.InvalidInput("invalid task status")
	}
	return s.Update(ctx, id, Update{Status: &status})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("task not found")
	}
	return nil
}

func (s *Store) AddComment(ctx context.Context, taskID, text, postedBy, author string) (Comment, error) {
	var c Comment
	err := s.DB.QueryRow(ctx, `
    INSERT INTO task_comments (task_id, text, posted_by, author)
    VALUES ($1, $2, $3, $4)
    RETURNING id, text, posted_by::text, author, posted_at
  `, taskID, text, postedBy, author).Scan(&c.ID, &c.Text, &c.PostedBy, &c.Author, &c.PostedAt)
	if err != nil {
		return Comment{}, storeError(err, "task not found")
	}
	return c, nil
}

func (s *Store) AddAttachment(ctx context.Context, taskID, fileName, fileURL string) (Attachment, error) {
	var a Attachment
	err := s.DB.QueryRow(ctx, `
    INSERT INTO task_attachments (task_id, file_name, file_url)
    VALUES ($1, $2, $3)
    RETURNING id, file_name, file_url, uploaded_at
  `, taskID, fileName, fileURL).Scan(&a.ID, &a.FileName, &a.FileURL, &a.UploadedAt)
	if err != nil {
		return Attachment{}, storeError(err, "task not found")
	}
	return a, nil
}

func (s *Store) comments(ctx context.Context, taskID string) ([]Comment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, text, posted_by::text, author, posted_at
    FROM task_comments WHERE task_id = $1 ORDER BY posted_at
  `, taskID)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.PostedBy, &c.Author, &c.PostedAt); err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) attachments(ctx context.Context, taskID string) ([]Attachment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, file_name, file_url, uploaded_at
    FROM task_attachments WHERE task_id = $1 ORDER BY uploaded_at
  `, taskID)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Attachment{}
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.FileName, &a.FileURL, &a.UploadedAt); err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
