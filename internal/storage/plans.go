package storage

import (
	"context"
	"fmt"

	"financas/internal/core"
)

const planColumns = `id, user_id, target_cents, progress_cents, description, version, created_at, updated_at`

// ListPlans returns the plans of userID in insertion order.
func (r *SQLiteRepository) ListPlans(ctx context.Context, userID int64) ([]core.Plan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []core.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns plan id if it belongs to userID, core.ErrNotFound otherwise.
func (r *SQLiteRepository) GetPlan(ctx context.Context, userID, id int64) (core.Plan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPlan(row)
	if err != nil {
		return core.Plan{}, fmt.Errorf("get plan %d: %w", id, notFound(err))
	}
	return p, nil
}

// PlanOwner is an ownership probe: it reveals only who owns plan id.
func (r *SQLiteRepository) PlanOwner(ctx context.Context, id int64) (int64, error) {
	var owner int64
	if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM plans WHERE id = ?`, id).Scan(&owner); err != nil {
		return 0, fmt.Errorf("plan owner %d: %w", id, notFound(err))
	}
	return owner, nil
}

func (r *SQLiteRepository) CreatePlan(ctx context.Context, userID int64, v core.PlanValues) (core.Plan, error) {
	now := r.now().UTC().Unix()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (user_id, target_cents, progress_cents, description, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		userID, v.Target.Cents, v.Progress.Cents, v.Description, now, now)
	if err != nil {
		return core.Plan{}, fmt.Errorf("create plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Plan{}, fmt.Errorf("create plan: last insert id: %w", err)
	}
	return core.Plan{
		ID:          id,
		UserID:      userID,
		Target:      v.Target,
		Progress:    v.Progress,
		Description: v.Description,
		Version:     1,
		CreatedAt:   fromUnix(now),
		UpdatedAt:   fromUnix(now),
	}, nil
}

// UpdatePlan overwrites plan id of userID and bumps its version. A non-zero
// expectedVersion must match the stored one, otherwise core.ErrConflict.
func (r *SQLiteRepository) UpdatePlan(ctx context.Context, userID, id, expectedVersion int64, v core.PlanValues) (core.Plan, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE plans
		SET target_cents = ?, progress_cents = ?, description = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND (? = 0 OR version = ?)`,
		v.Target.Cents, v.Progress.Cents, v.Description, r.now().UTC().Unix(),
		id, userID, expectedVersion, expectedVersion)
	if err != nil {
		return core.Plan{}, fmt.Errorf("update plan %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Plan{}, fmt.Errorf("update plan %d: rows affected: %w", id, err)
	}
	if n == 0 {
		// Either gone or stale; tell the two apart for the caller.
		if _, err := r.GetPlan(ctx, userID, id); err != nil {
			return core.Plan{}, err
		}
		return core.Plan{}, fmt.Errorf("update plan %d: %w", id, core.ErrConflict)
	}
	return r.GetPlan(ctx, userID, id)
}

// DeletePlan removes plan id of userID. Deleting an absent plan returns
// core.ErrNotFound.
func (r *SQLiteRepository) DeletePlan(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete plan %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete plan %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanPlan(s scanner) (core.Plan, error) {
	var (
		p                core.Plan
		created, updated int64
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Target.Cents, &p.Progress.Cents, &p.Description,
		&p.Version, &created, &updated)
	if err != nil {
		return core.Plan{}, err
	}
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return p, nil
}
