package services

import (
	"context"
	"fmt"

	"financas/internal/core"
	"financas/internal/log"
)

// TransactionDeps are the optional collaborators of a TransactionManager.
// Nil fields are skipped.
type TransactionDeps struct {
	Balances  BalanceCache
	Publisher SyncPublisher
	Recorder  Recorder
}

// TransactionManager records and summarizes the transactions of one user.
type TransactionManager struct {
	store TransactionStore
	user  core.User
	deps  TransactionDeps
}

func NewTransactionManager(store TransactionStore, user core.User, deps TransactionDeps) *TransactionManager {
	return &TransactionManager{store: store, user: user, deps: deps}
}

// ListTransactions returns the user's transactions, newest first.
func (m *TransactionManager) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := m.store.ListTransactions(ctx, m.user.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// ComputeBalance returns income, expense and their exact difference. A sum
// that raced with a CreateTransaction is returned but not cached.
func (m *TransactionManager) ComputeBalance(ctx context.Context) (core.Balance, error) {
	var gen uint64
	if m.deps.Balances != nil {
		if b, ok := m.deps.Balances.Get(m.user.ID); ok {
			return b, nil
		}
		gen = m.deps.Balances.Generation(m.user.ID)
	}
	income, expense, err := m.store.SumTransactions(ctx, m.user.ID)
	if err != nil {
		return core.Balance{}, fmt.Errorf("compute balance: %w", err)
	}
	b := core.NewBalance(income, expense)
	if m.deps.Balances != nil && !m.deps.Balances.SetIfGeneration(m.user.ID, b, gen) {
		log.FromContext(ctx).WithComponent(log.ComponentTransaction).DebugContext(ctx,
			"Stale balance not cached", log.FieldOperation, log.OpBalance, log.FieldUserID, m.user.ID)
	}
	return b, nil
}

// CreateTransaction validates and stores a transaction, drops the cached
// balance and announces the row to the export worker. A failed announcement
// is logged; the transaction stays stored.
func (m *TransactionManager) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	values, err := in.Validate()
	if err != nil {
		return core.Transaction{}, err
	}

	status := core.SyncDisabled
	if m.deps.Publisher != nil {
		status = core.SyncPending
	}
	t, err := m.store.CreateTransaction(ctx, m.user.ID, values, status)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if m.deps.Balances != nil {
		m.deps.Balances.Delete(m.user.ID)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentTransaction)
	log.NewStructuredLogger(logger).LogTransactionCreated(ctx, m.user.ID, t.ID, t.Amount.Cents, t.IsIncome)
	if m.deps.Recorder != nil {
		m.deps.Recorder.TransactionCreated(t.IsIncome)
	}

	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.PublishTransactionSync(ctx, t.ID, t.Version); err != nil {
			// The worker's sweep picks pending rows up later.
			logger.ErrorContext(ctx, "Failed to publish sync message",
				log.FieldOperation, log.OpPublish, log.FieldTransactionID, t.ID, log.FieldError, err)
			if m.deps.Recorder != nil {
				m.deps.Recorder.PublishFailed()
			}
		}
	}
	return t, nil
}
