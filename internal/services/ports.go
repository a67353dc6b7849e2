// Package services holds the per-user managers behind the web pages: plans
// and transactions. A manager is built for one authenticated user and every
// call it makes to storage is scoped to that user.
package services

import (
	"context"

	"financas/internal/core"
)

// PlanStore is the plan persistence a PlanManager needs.
type PlanStore interface {
	ListPlans(ctx context.Context, userID int64) ([]core.Plan, error)
	GetPlan(ctx context.Context, userID, id int64) (core.Plan, error)
	PlanOwner(ctx context.Context, id int64) (int64, error)
	CreatePlan(ctx context.Context, userID int64, v core.PlanValues) (core.Plan, error)
	UpdatePlan(ctx context.Context, userID, id, expectedVersion int64, v core.PlanValues) (core.Plan, error)
	DeletePlan(ctx context.Context, userID, id int64) error
}

// TransactionStore is the transaction persistence a TransactionManager needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, userID int64, v core.TransactionValues, status core.SyncStatus) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	SumTransactions(ctx context.Context, userID int64) (income, expense core.Money, err error)
}

// BalanceCache holds computed balances per user id. Delete must change the
// key's generation so that SetIfGeneration drops balances summed before it.
type BalanceCache interface {
	Get(userID int64) (core.Balance, bool)
	Generation(userID int64) uint64
	SetIfGeneration(userID int64, b core.Balance, gen uint64) bool
	Delete(userID int64)
}

// SyncPublisher announces new transactions to the export worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
}

// Recorder receives business events for metrics. All methods must be safe
// for concurrent use.
type Recorder interface {
	TransactionCreated(isIncome bool)
	PlanChanged(op string)
	PublishFailed()
}
