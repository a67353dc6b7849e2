package storage

import (
	"context"
	"fmt"
	"time"

	"financas/internal/core"
)

// SyncClaimLease is how long a claimed row stays reserved for one exporter.
// After that the sweep treats it as pending again, which covers a worker
// that died between claiming and appending.
const SyncClaimLease = 5 * time.Minute

const transactionColumns = `id, user_id, amount_cents, description, is_income, created_at, sync_status, version`

// CreateTransaction appends a transaction for userID with the given sync
// status.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID int64, v core.TransactionValues, status core.SyncStatus) (core.Transaction, error) {
	now := r.now().UTC().Unix()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount_cents, description, is_income, created_at, sync_status, version)
		VALUES (?, ?, ?, ?, ?, ?, 1)`,
		userID, v.Amount.Cents, v.Description, v.IsIncome, now, string(status))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: last insert id: %w", err)
	}
	return core.Transaction{
		ID:          id,
		UserID:      userID,
		Amount:      v.Amount,
		Description: v.Description,
		IsIncome:    v.IsIncome,
		CreatedAt:   fromUnix(now),
		SyncStatus:  status,
		Version:     1,
	}, nil
}

// ListTransactions returns the transactions of userID, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// SumTransactions totals the income and expense amounts of userID in SQL.
func (r *SQLiteRepository) SumTransactions(ctx context.Context, userID int64) (income, expense core.Money, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_income = 1 THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN is_income = 0 THEN amount_cents END), 0)
		FROM transactions
		WHERE user_id = ?`, userID)
	if err := row.Scan(&income.Cents, &expense.Cents); err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return income, expense, nil
}

// GetTransactionForSync loads a transaction regardless of owner, together
// with the owner's username. Only the sync worker uses it.
func (r *SQLiteRepository) GetTransactionForSync(ctx context.Context, id int64) (core.Transaction, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.amount_cents, t.description, t.is_income, t.created_at, t.sync_status, t.version, u.username
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = ?`, id)

	var (
		t       core.Transaction
		created int64
		status  string
		owner   string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &t.Description, &t.IsIncome,
		&created, &status, &t.Version, &owner)
	if err != nil {
		return core.Transaction{}, "", fmt.Errorf("get transaction %d: %w", id, notFound(err))
	}
	t.CreatedAt = fromUnix(created)
	t.SyncStatus = core.SyncStatus(status)
	return t, owner, nil
}

// PendingSyncIDs lists up to limit transactions waiting for export, oldest
// first. Claims older than SyncClaimLease count as pending.
func (r *SQLiteRepository) PendingSyncIDs(ctx context.Context, limit int) ([]int64, error) {
	stale := r.now().Add(-SyncClaimLease).UTC().Unix()
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM transactions
		WHERE sync_status = ? OR (sync_status = ? AND sync_claimed_at < ?)
		ORDER BY id ASC LIMIT ?`,
		string(core.SyncPending), string(core.SyncClaimed), stale, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimForSync reserves transaction id for one exporter. It reports false
// when the row is already exported, disabled or held by a live claim, and
// core.ErrNotFound when the row does not exist.
func (r *SQLiteRepository) ClaimForSync(ctx context.Context, id int64) (bool, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = ?, sync_claimed_at = ?
		WHERE id = ? AND (
			sync_status IN (?, ?) OR (sync_status = ? AND sync_claimed_at < ?)
		)`,
		string(core.SyncClaimed), now.Unix(), id,
		string(core.SyncPending), string(core.SyncFailed),
		string(core.SyncClaimed), now.Add(-SyncClaimLease).Unix())
	if err != nil {
		return false, fmt.Errorf("claim transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim transaction %d: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("claim transaction %d: %w", id, notFound(err))
	}
	return false, nil
}

// SetSyncStatus records the export outcome of transaction id.
func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id int64, status core.SyncStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set sync status %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set sync status %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		created int64
		status  string
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &t.Description, &t.IsIncome,
		&created, &status, &t.Version)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = fromUnix(created)
	t.SyncStatus = core.SyncStatus(status)
	return t, nil
}
