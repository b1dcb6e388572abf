package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-depot-engine/internal/dispatch"
)

var jobColumns = []string{
	"id", "order_id", "deposit_id", "status", "driver_id",
	"assigned_at", "accepted_at", "started_at", "completed_at", "refused_at",
	"refused_by", "refusal_reason", "cancel_reason", "failure_reason",
	"snapshot", "version", "created_at", "updated_at",
}

// JobStore keeps delivery jobs in Postgres with optimistic versioning.
type JobStore struct{ DB *pgxpool.Pool }

var _ dispatch.JobStore = (*JobStore)(nil)

func (s *JobStore) Create(ctx context.Context, j dispatch.Job) error {
	snap, err := json.Marshal(j.Snapshot)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("delivery_jobs").Columns(jobColumns...).Values(
		j.ID, j.OrderID, j.DepositID, j.Status, j.DriverID,
		j.AssignedAt, j.AcceptedAt, j.StartedAt, j.CompletedAt, j.RefusedAt,
		j.RefusedBy, j.RefusalReason, j.CancelReason, j.FailureReason,
		snap, 1, j.CreatedAt, j.UpdatedAt,
	).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.DB.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return dispatch.ErrVersionConflict
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (dispatch.Job, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *JobStore) GetByOrder(ctx context.Context, orderID string) (dispatch.Job, error) {
	return s.getOne(ctx, sq.Eq{"order_id": orderID})
}

func (s *JobStore) getOne(ctx context.Context, where sq.Eq) (dispatch.Job, error) {
	query, args, err := psql.Select(jobColumns...).From("delivery_jobs").Where(where).ToSql()
	if err != nil {
		return dispatch.Job{}, err
	}
	j, err := scanJob(s.DB.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return dispatch.Job{}, dispatch.ErrJobNotFound
	}
	return j, err
}

// Save writes the job only when the stored version still matches.
func (s *JobStore) Save(ctx context.Context, j dispatch.Job) (dispatch.Job, error) {
	snap, err := json.Marshal(j.Snapshot)
	if err != nil {
		return dispatch.Job{}, err
	}
	query, args, err := psql.Update("delivery_jobs").
		Set("status", j.Status).
		Set("driver_id", j.DriverID).
		Set("assigned_at", j.AssignedAt).
		Set("accepted_at", j.AcceptedAt).
		Set("started_at", j.StartedAt).
		Set("completed_at", j.CompletedAt).
		Set("refused_at", j.RefusedAt).
		Set("refused_by", j.RefusedBy).
		Set("refusal_reason", j.RefusalReason).
		Set("cancel_reason", j.CancelReason).
		Set("failure_reason", j.FailureReason).
		Set("snapshot", snap).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", j.UpdatedAt).
		Where(sq.Eq{"id": j.ID, "version": j.Version}).
		ToSql()
	if err != nil {
		return dispatch.Job{}, err
	}
	ct, err := s.DB.Exec(ctx, query, args...)
	if err != nil {
		return dispatch.Job{}, fmt.Errorf("update job %s: %w", j.ID, err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := s.Get(ctx, j.ID); err != nil {
			return dispatch.Job{}, err
		}
		return dispatch.Job{}, dispatch.ErrVersionConflict
	}
	j.Version++
	return j, nil
}

func (s *JobStore) ListByStatus(ctx context.Context, statuses ...dispatch.Status) ([]dispatch.Job, error) {
	b := psql.Select(jobColumns...).From("delivery_jobs").OrderBy("created_at", "id")
	if len(statuses) > 0 {
		vals := make([]string, 0, len(statuses))
		for _, st := range statuses {
			vals = append(vals, string(st))
		}
		b = b.Where(sq.Eq{"status": vals})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []dispatch.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (dispatch.Job, error) {
	var (
		j    dispatch.Job
		snap []byte
	)
	err := row.Scan(
		&j.ID, &j.OrderID, &j.DepositID, &j.Status, &j.DriverID,
		&j.AssignedAt, &j.AcceptedAt, &j.StartedAt, &j.CompletedAt, &j.RefusedAt,
		&j.RefusedBy, &j.RefusalReason, &j.CancelReason, &j.FailureReason,
		&snap, &j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return dispatch.Job{}, err
	}
	if err := json.Unmarshal(snap, &j.Snapshot); err != nil {
		return dispatch.Job{}, fmt.Errorf("decode snapshot of %s: %w", j.ID, err)
	}
	return j, nil
}
