package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/domain"
)

var (
	// ErrTaskNotFound is returned when no row matches the requested id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoFields is returned when an update carries no defined fields.
	ErrNoFields = errors.New("no fields to update")
)

// Storage provides access to the tasks table through parameterized queries.
type Storage struct {
	pool *pgxpool.Pool
}

// New connects to Postgres using the given connection string.
func New(ctx context.Context, connStr string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Storage{pool: pool}, nil
}

// EnsureSchema creates the tasks table if it does not exist.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

// Close releases the connection pool.
func (s *Storage) Close() {
	s.pool.Close()
}

const taskColumns = "id, title, description, status, created_at"

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt)
	return t, err
}

// Create inserts a task and returns the stored row.
func (s *Storage) Create(ctx context.Context, title, description, status string) (domain.Task, error) {
	if status == "" {
		status = domain.StatusPending
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status) VALUES ($1, $2, $3) RETURNING `+taskColumns,
		title, description, status)
	return scanTask(row)
}

// FindAll lists tasks newest first, optionally filtered by status.
func (s *Storage) FindAll(ctx context.Context, status string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// FindByID returns the task or ErrTaskNotFound.
func (s *Storage) FindByID(ctx context.Context, id int64) (domain.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, err
}

// buildUpdate assembles the SET clause from defined fields only.
func buildUpdate(id int64, fields domain.TaskFields) (string, []any, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	add := func(column string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("title", fields.Title)
	add("description", fields.Description)
	add("status", fields.Status)
	if len(sets) == 0 {
		return "", nil, ErrNoFields
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), taskColumns)
	return query, args, nil
}

// Update applies the defined fields and returns the updated row.
func (s *Storage) Update(ctx context.Context, id int64, fields domain.TaskFields) (domain.Task, error) {
	query, args, err := buildUpdate(id, fields)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, err
}

// Delete removes the task and returns the deleted row.
func (s *Storage) Delete(ctx context.Context, id int64) (domain.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, err
}
