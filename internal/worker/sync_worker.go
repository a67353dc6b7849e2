// Package worker exports stored transactions to a spreadsheet. It reacts to
// sync messages from the broker and sweeps the database for rows whose
// message was lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
)

// DefaultBatchSize bounds one sweep of pending transactions.
const DefaultBatchSize = 10

// Store is the transaction bookkeeping the worker needs.
type Store interface {
	ClaimForSync(ctx context.Context, id int64) (bool, error)
	GetTransactionForSync(ctx context.Context, id int64) (core.Transaction, string, error)
	PendingSyncIDs(ctx context.Context, limit int) ([]int64, error)
	SetSyncStatus(ctx context.Context, id int64, status core.SyncStatus) error
}

// Consumer delivers sync messages until ctx ends.
type Consumer interface {
	ConsumeTransactionSync(ctx context.Context, handler amqp.Handler) error
}

// SyncWorker handles synchronization of transactions from SQLite to the
// spreadsheet.
type SyncWorker struct {
	store     Store
	sheets    sheets.TransactionWriter
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store Store, writer sheets.TransactionWriter, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SyncWorker{
		store:     store,
		sheets:    writer,
		batchSize: batchSize,
		logger:    log.Or(logger, log.ComponentWorker),
	}
}

// HandleSyncMessage exports the transaction named by msg. Messages for rows
// that are gone are dropped. A row is claimed before it is appended, so a
// redelivered message racing the sweep never appends twice.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldTransactionID, msg.ID,
		log.FieldMessageID, msg.MessageID,
		"version", msg.Version)

	synced, err := w.syncOne(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Dropping sync message for missing transaction",
			log.FieldTransactionID, msg.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if !synced {
		w.logger.DebugContext(ctx, "Transaction already synced or claimed", log.FieldTransactionID, msg.ID)
	}
	return nil
}

// ProcessPending exports up to one batch of pending transactions. This is
// the backup path for lost messages. It returns how many rows were exported.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.sweep(ctx, w.batchSize)
}

// StartupSyncCheck sweeps a larger batch, covering worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.sweep(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", n)
	return nil
}

func (w *SyncWorker) sweep(ctx context.Context, limit int) (int, error) {
	ids, err := w.store.PendingSyncIDs(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(ids))

	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		synced, err := w.syncOne(ctx, id)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction",
				log.FieldTransactionID, id, log.FieldError, err)
			continue
		}
		if synced {
			done++
		}
	}
	return done, nil
}

// syncOne claims transaction id and appends it to the sheet. It reports
// false when another exporter holds the row or it is already synced.
func (w *SyncWorker) syncOne(ctx context.Context, id int64) (bool, error) {
	claimed, err := w.store.ClaimForSync(ctx, id)
	if err != nil || !claimed {
		return false, err
	}
	t, owner, err := w.store.GetTransactionForSync(ctx, id)
	if err != nil {
		return false, err
	}

	ref, err := w.sheets.AppendTransaction(ctx, sheets.RowFromTransaction(t, owner))
	if err != nil {
		if markErr := w.store.SetSyncStatus(ctx, id, core.SyncFailed); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldTransactionID, id, log.FieldError, markErr)
		}
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	// The row is in the sheet; a bookkeeping failure here is only logged.
	if err := w.store.SetSyncStatus(ctx, id, core.SyncDone); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldTransactionID, id, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced transaction",
		log.FieldOperation, log.OpSync,
		log.FieldTransactionID, id,
		log.FieldSheetsRef, ref,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldIsIncome, t.IsIncome)
	return true, nil
}

// Run performs the startup check, then consumes messages and sweeps every
// interval until ctx ends. A nil consumer leaves only the sweep running.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed startup sync check", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeTransactionSync(ctx, w.HandleSyncMessage)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.ProcessPending(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
