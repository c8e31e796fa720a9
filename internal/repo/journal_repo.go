package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/sweep/internal/domain"
)

// RunRecord — запись о запуске в журнале.
type RunRecord struct {
	ID         uuid.UUID  `json:"id"`
	Root       string     `json:"root"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Launched   int        `json:"launched"`
	Crashes    int        `json:"crashes"`
}

// JournalRepo — журнал запусков в Postgres.
//
// Журнал только для аудита: планировщик никогда не читает его,
// чтобы решить, какие шаги выполнены.
// Реализует orchestrator.Notifier.
type JournalRepo struct {
	pool *pgxpool.Pool
	root string
}

// NewJournalRepo создаёт JournalRepo. root записывается в sweep_runs.
func NewJournalRepo(pool *pgxpool.Pool, root string) *JournalRepo {
	return &JournalRepo{pool: pool, root: root}
}

// Notify записывает событие. run.started создаёт запись о запуске,
// run.finished её закрывает.
func (r *JournalRepo) Notify(ctx context.Context, event domain.Event) error {
	switch event.Type {
	case domain.EventRunStarted:
		if err := r.startRun(ctx, event); err != nil {
			return err
		}
	case domain.EventRunFinished:
		if err := r.finishRun(ctx, event); err != nil {
			return err
		}
	}
	return r.insertEvent(ctx, event)
}

func (r *JournalRepo) startRun(ctx context.Context, event domain.Event) error {
	query := `
		INSERT INTO sweep_runs (id, root, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, event.RunID, r.root, event.Timestamp); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *JournalRepo) finishRun(ctx context.Context, event domain.Event) error {
	query := `
		UPDATE sweep_runs
		SET finished_at = $2, error = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, event.RunID, event.Timestamp, nullString(event.Message))
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", event.RunID, ErrNotFound)
	}
	return nil
}

func (r *JournalRepo) insertEvent(ctx context.Context, event domain.Event) error {
	query := `
		INSERT INTO sweep_events (id, run_id, type, project, step_id, weight, pid, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.RunID,
		string(event.Type),
		event.Project,
		nullInt(event.StepID),
		nullFloat(event.Weight),
		nullInt(event.PID),
		nullString(event.Message),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListRuns возвращает последние запуски с числом запусков шагов и падений.
func (r *JournalRepo) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT r.id, r.root, r.started_at, r.finished_at, r.error,
		       count(e.id) FILTER (WHERE e.type = 'step.launched'),
		       count(e.id) FILTER (WHERE e.type = 'worker.crashed')
		FROM sweep_runs r
		LEFT JOIN sweep_events e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var errText *string
		if err := rows.Scan(&rec.ID, &rec.Root, &rec.StartedAt, &rec.FinishedAt, &errText, &rec.Launched, &rec.Crashes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if errText != nil {
			rec.Error = *errText
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun возвращает запуск по ID.
func (r *JournalRepo) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, root, started_at, finished_at, error
		FROM sweep_runs
		WHERE id = $1
	`
	var rec RunRecord
	var errText *string
	err := r.pool.QueryRow(ctx, query, id).Scan(&rec.ID, &rec.Root, &rec.StartedAt, &rec.FinishedAt, &errText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	if errText != nil {
		rec.Error = *errText
	}
	return &rec, nil
}

// ListEvents возвращает события запуска в порядке появления.
func (r *JournalRepo) ListEvents(ctx context.Context, runID uuid.UUID) ([]domain.Event, error) {
	query := `
		SELECT id, run_id, type, project, step_id, weight, pid, message, created_at
		FROM sweep_events
		WHERE run_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType string
		var stepID, pid *int32
		var weight *float64
		var message *string
		if err := rows.Scan(&e.ID, &e.RunID, &eventType, &e.Project, &stepID, &weight, &pid, &message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = domain.EventType(eventType)
		if stepID != nil {
			e.StepID = int(*stepID)
		}
		if pid != nil {
			e.PID = int(*pid)
		}
		if weight != nil {
			e.Weight = *weight
		}
		if message != nil {
			e.Message = *message
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
