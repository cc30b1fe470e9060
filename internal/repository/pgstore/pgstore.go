// Package pgstore is the PostgreSQL persistence gateway. It keeps the same
// two record sets as the document store, as tables.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskhub/internal/models"
	"taskhub/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    password VARCHAR(255) NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT users_email_key UNIQUE (email),
    CONSTRAINT users_username_key UNIQUE (username)
);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL,
    due_date TIMESTAMPTZ NOT NULL,
    priority VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL,
    created_by TEXT NOT NULL REFERENCES users (id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS tasks_created_by_created_at_idx ON tasks (created_by, created_at DESC);
`

const uniqueViolation = "23505"

const taskColumns = "id, title, description, due_date, priority, status, created_by, created_at, updated_at"

type Store struct {
	db  *sql.DB
	seq func() string
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, seq: uuid.NewString, now: time.Now}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

// CreateTablesIfNotExists prepares the schema.
func (s *Store) CreateTablesIfNotExists(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// DropTables removes both tables. Used by tests.
func (s *Store) DropTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
    DROP TABLE IF EXISTS tasks;
    DROP TABLE IF EXISTS users;
    `)
	return err
}

// timestamp is truncated to the microsecond precision Postgres keeps.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	id := r.s.seq()
	now := r.s.timestamp()
	_, err := r.s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		id, user.Username, user.Email, user.Password, user.IsActive, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			field := "email"
			if pqErr.Constraint == "users_username_key" {
				field = "username"
			}
			return &repository.DuplicateKeyError{Field: field, Err: err}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	return nil
}

func (r userRepo) scanOne(row *sql.Row, withPassword bool) (*models.User, error) {
	var u models.User
	dest := []any{&u.ID, &u.Username, &u.Email, &u.IsActive, &u.CreatedAt}
	if withPassword {
		dest = append(dest, &u.Password)
	}
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r userRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	row := r.s.db.QueryRowContext(ctx,
		"SELECT id, username, email, is_active, created_at FROM users WHERE email = $1 OR username = $2 LIMIT 1",
		email, username)
	return r.scanOne(row, false)
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.s.db.QueryRowContext(ctx,
		"SELECT id, username, email, is_active, created_at, password FROM users WHERE email = $1",
		email)
	return r.scanOne(row, true)
}

func (r userRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.s.db.QueryRowContext(ctx,
		"SELECT id, username, email, is_active, created_at FROM users WHERE id = $1",
		id)
	return r.scanOne(row, false)
}

type taskRepo struct{ s *Store }

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	var priority, status string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &priority, &status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority)
	t.Status = models.Status(status)
	t.DueDate = t.DueDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func scanOwned(row *sql.Row, op string) (*models.Task, error) {
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s task: %w", op, err)
	}
	return t, nil
}

func (r taskRepo) Create(ctx context.Context, task *models.Task) error {
	id := r.s.seq()
	now := r.s.timestamp()
	_, err := r.s.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		id, task.Title, task.Description, task.DueDate, string(task.Priority), string(task.Status), task.CreatedBy, now, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &repository.DuplicateKeyError{Field: "task", Err: err}
		}
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (r taskRepo) ListByOwner(ctx context.Context, owner string) ([]models.Task, error) {
	rows, err := r.s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE created_by = $1 ORDER BY created_at DESC, id DESC",
		owner)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (r taskRepo) FindOwned(ctx context.Context, id, owner string) (*models.Task, error) {
	row := r.s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND created_by = $2",
		id, owner)
	return scanOwned(row, "find")
}

func (r taskRepo) UpdateOwned(ctx context.Context, id, owner string, upd models.TaskUpdate) (*models.Task, error) {
	var priority, status *string
	if upd.Priority != nil {
		p := string(*upd.Priority)
		priority = &p
	}
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}
	// NULL parameters keep the stored value.
	row := r.s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = COALESCE($1, title),
			description = COALESCE($2, description),
			due_date = COALESCE($3, due_date),
			priority = COALESCE($4, priority),
			status = COALESCE($5, status),
			updated_at = $6
		WHERE id = $7 AND created_by = $8
		RETURNING `+taskColumns,
		upd.Title, upd.Description, upd.DueDate, priority, status, r.s.timestamp(), id, owner,
	)
	return scanOwned(row, "update")
}

func (r taskRepo) DeleteOwned(ctx context.Context, id, owner string) (*models.Task, error) {
	row := r.s.db.QueryRowContext(ctx,
		"DELETE FROM tasks WHERE id = $1 AND created_by = $2 RETURNING "+taskColumns,
		id, owner)
	return scanOwned(row, "delete")
}
