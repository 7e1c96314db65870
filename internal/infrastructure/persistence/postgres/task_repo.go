// Package postgres implements the PostgreSQL persistence layer for the
// rector task bot.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/task"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TaskRepository implements task.Repository for PostgreSQL.
// Mutations run in a transaction with the task row locked FOR UPDATE,
// so concurrent accept/complete/edit calls on one task serialize cleanly.
type TaskRepository struct {
	conn *Connection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(conn *Connection) *TaskRepository {
	return &TaskRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create persists a new task together with its assignments.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO tasks (id, title, description, deadline, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, query,
			t.ID.String(),
			t.Title,
			t.Description,
			t.Deadline,
			t.CreatorID.Int64(),
			t.CreatedAt,
			t.UpdatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return shared.ErrAssigneeNotStaff
			}
			return fmt.Errorf("failed to create task: %w", err)
		}

		return r.insertAssignments(ctx, tx, t)
	})
}

// GetByID returns a task with its assignments and comments.
func (r *TaskRepository) GetByID(ctx context.Context, id shared.TaskID) (*task.Task, error) {
	t, err := r.getTask(ctx, r.conn.Pool(), id, false)
	if err != nil {
		return nil, err
	}

	if err := r.loadAssignments(ctx, r.conn.Pool(), []*task.Task{t}); err != nil {
		return nil, err
	}
	if err := r.loadComments(ctx, r.conn.Pool(), t); err != nil {
		return nil, err
	}

	return t, nil
}

// Update rewrites the task's fields and assignments in one transaction.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return r.updateInTx(ctx, tx, t)
	})
}

// Mutate atomically loads the task under a row lock, applies fn and
// persists the result. Returns the mutated task.
func (r *TaskRepository) Mutate(ctx context.Context, id shared.TaskID, fn func(*task.Task) error) (*task.Task, error) {
	var mutated *task.Task

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		t, err := r.getTask(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := r.loadAssignments(ctx, tx, []*task.Task{t}); err != nil {
			return err
		}
		if err := r.loadComments(ctx, tx, t); err != nil {
			return err
		}

		if err := fn(t); err != nil {
			return err
		}

		if err := r.updateInTx(ctx, tx, t); err != nil {
			return err
		}

		mutated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return mutated, nil
}

// Delete removes a task with its assignments and comments (FK cascade).
func (r *TaskRepository) Delete(ctx context.Context, id shared.TaskID) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing
// ─────────────────────────────────────────────────────────────────────────────

const taskColumns = `id, title, description, deadline, creator_id, created_at, updated_at`

// ListByCreator returns the creator's tasks ordered by deadline.
func (r *TaskRepository) ListByCreator(ctx context.Context, creatorID shared.TelegramID) ([]*task.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE creator_id = $1
		ORDER BY deadline
	`, taskColumns)

	return r.queryTasks(ctx, query, creatorID.Int64())
}

// ListByAssignee returns tasks assigned to the user ordered by deadline.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID shared.TelegramID) ([]*task.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE id IN (SELECT task_id FROM task_assignments WHERE user_id = $1)
		ORDER BY deadline
	`, taskColumns)

	return r.queryTasks(ctx, query, userID.Int64())
}

// ListAll returns all tasks ordered by deadline.
func (r *TaskRepository) ListAll(ctx context.Context) ([]*task.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		ORDER BY deadline
	`, taskColumns)

	return r.queryTasks(ctx, query)
}

// ListDueWithin returns incomplete tasks whose deadline falls in
// (now, now+lookahead]. Used by the reminder job.
func (r *TaskRepository) ListDueWithin(ctx context.Context, now time.Time, lookahead time.Duration) ([]*task.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks t
		WHERE t.deadline > $1 AND t.deadline <= $2
		  AND EXISTS (
			SELECT 1 FROM task_assignments a
			WHERE a.task_id = t.id AND a.status <> 'completed'
		  )
		ORDER BY t.deadline
	`, taskColumns)

	return r.queryTasks(ctx, query, now.UTC(), now.Add(lookahead).UTC())
}

// ─────────────────────────────────────────────────────────────────────────────
// Comments
// ─────────────────────────────────────────────────────────────────────────────

// AddComment persists a comment.
func (r *TaskRepository) AddComment(ctx context.Context, c *task.Comment) error {
	query := `
		INSERT INTO task_comments (id, task_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		c.TaskID.String(),
		c.AuthorID.Int64(),
		c.Text,
		c.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrTaskNotFound
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *TaskRepository) getTask(ctx context.Context, q Querier, id shared.TaskID, forUpdate bool) (*task.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	if forUpdate {
		query += ` FOR UPDATE`
	}

	row := q.QueryRow(ctx, query, id.String())
	return r.scanTask(row)
}

func (r *TaskRepository) updateInTx(ctx context.Context, tx pgx.Tx, t *task.Task) error {
	query := `
		UPDATE tasks SET
			title = $1,
			description = $2,
			deadline = $3,
			updated_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(ctx, query,
		t.Title,
		t.Description,
		t.Deadline,
		t.UpdatedAt,
		t.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}

	// Assignments are rewritten wholesale: the domain model owns the set.
	if _, err := tx.Exec(ctx, `DELETE FROM task_assignments WHERE task_id = $1`, t.ID.String()); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	return r.insertAssignments(ctx, tx, t)
}

func (r *TaskRepository) insertAssignments(ctx context.Context, tx pgx.Tx, t *task.Task) error {
	query := `
		INSERT INTO task_assignments (task_id, user_id, status, accepted_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, a := range t.Assignments {
		_, err := tx.Exec(ctx, query,
			t.ID.String(),
			a.UserID.Int64(),
			a.Status.String(),
			a.AcceptedAt,
			a.CompletedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return shared.ErrAssigneeNotStaff
			}
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	return nil
}

func (r *TaskRepository) scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t         task.Task
		id        string
		creatorID int64
	)

	err := row.Scan(
		&id,
		&t.Title,
		&t.Description,
		&t.Deadline,
		&creatorID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.ID = shared.TaskID(id)
	t.CreatorID = shared.TelegramID(creatorID)

	return &t, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*task.Task, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadAssignments(ctx, r.conn.Pool(), tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// loadAssignments fills in the assignments for the given tasks in one query.
func (r *TaskRepository) loadAssignments(ctx context.Context, q Querier, tasks []*task.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	byID := make(map[shared.TaskID]*task.Task, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID.String()
		byID[t.ID] = t
		t.Assignments = nil
	}

	query := `
		SELECT task_id, user_id, status, accepted_at, completed_at
		FROM task_assignments
		WHERE task_id = ANY($1)
		ORDER BY task_id, user_id
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID      string
			userID      int64
			status      string
			acceptedAt  *time.Time
			completedAt *time.Time
		)
		if err := rows.Scan(&taskID, &userID, &status, &acceptedAt, &completedAt); err != nil {
			return fmt.Errorf("failed to scan assignment: %w", err)
		}

		t, ok := byID[shared.TaskID(taskID)]
		if !ok {
			continue
		}
		t.Assignments = append(t.Assignments, task.Assignment{
			UserID:      shared.TelegramID(userID),
			Status:      task.Status(status),
			AcceptedAt:  acceptedAt,
			CompletedAt: completedAt,
		})
	}

	return rows.Err()
}

// loadComments fills in the comments for one task in insertion order.
func (r *TaskRepository) loadComments(ctx context.Context, q Querier, t *task.Task) error {
	query := `
		SELECT id, task_id, author_id, body, created_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, t.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	t.Comments = nil
	for rows.Next() {
		var (
			c        task.Comment
			taskID   string
			authorID int64
		)
		if err := rows.Scan(&c.ID, &taskID, &authorID, &c.Text, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		c.TaskID = shared.TaskID(taskID)
		c.AuthorID = shared.TelegramID(authorID)
		t.Comments = append(t.Comments, &c)
	}

	return rows.Err()
}
