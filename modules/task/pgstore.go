package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/neardoer/domain/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	category    TEXT NOT NULL,
	price       TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'Open',
	posted_by   TEXT NOT NULL,
	accepted_by TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_browse ON tasks (status, zip, category);
CREATE INDEX IF NOT EXISTS idx_tasks_posted_by ON tasks (posted_by);
CREATE INDEX IF NOT EXISTS idx_tasks_accepted_by ON tasks (accepted_by);
`

const pgColumns = `id, title, description, category, price, zip, status, posted_by, accepted_by, created_at, updated_at`

// PostgresStore keeps tasks in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*PostgresStore)(nil)

// NewPostgresStore creates the schema when missing and returns a store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("failed to create tasks schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, t *domain.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+pgColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Title, t.Description, string(t.Category), t.Price, t.Zip,
		string(t.Status), t.PostedBy, t.AcceptedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if filter.Zip != "" {
		add("zip", filter.Zip)
	}
	if filter.Category != "" && filter.Category != domain.CategoryAll {
		add("category", string(filter.Category))
	}
	if filter.PostedBy != "" {
		add("posted_by", filter.PostedBy)
	}
	if filter.AcceptedBy != "" {
		add("accepted_by", filter.AcceptedBy)
	}

	query := `SELECT ` + pgColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Transition is a single conditional UPDATE; the row lock taken by
// PostgreSQL serializes racing writers.
func (s *PostgresStore) Transition(ctx context.Context, id string, from, to domain.Status, acceptedBy string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks
		 SET status = $1,
		     accepted_by = CASE WHEN $2 = '' THEN accepted_by ELSE $2 END,
		     updated_at = $3
		 WHERE id = $4 AND status = $5`,
		string(to), acceptedBy, at, id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update task status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t                    domain.Task
		category, status     string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &category, &t.Price, &t.Zip,
		&status, &t.PostedBy, &t.AcceptedBy, &createdAt, &updatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.Category = domain.Category(category)
	t.Status = domain.Status(status)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}

// isPgDuplicateKeyError checks for a unique_violation.
func isPgDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
