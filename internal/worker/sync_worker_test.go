package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
	"financas/internal/sheets/memory"
	"financas/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   *storage.SQLiteRepository
	sheet  *memory.Store
	worker *SyncWorker
	user   core.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(context.Background(), "ana", "", "x")
	require.NoError(t, err)

	sheet := memory.New()
	return &fixture{
		repo:   repo,
		sheet:  sheet,
		worker: NewSyncWorker(repo, sheet, 2, log.Discard()),
		user:   user,
	}
}

func (f *fixture) addTransaction(t *testing.T, cents int64, income bool) core.Transaction {
	t.Helper()
	tx, err := f.repo.CreateTransaction(context.Background(), f.user.ID,
		core.TransactionValues{Amount: core.Money{Cents: cents}, Description: "item", IsIncome: income},
		core.SyncPending)
	require.NoError(t, err)
	return tx
}

func (f *fixture) status(t *testing.T, id int64) core.SyncStatus {
	t.Helper()
	tx, _, err := f.repo.GetTransactionForSync(context.Background(), id)
	require.NoError(t, err)
	return tx.SyncStatus
}

func TestHandleSyncMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.addTransaction(t, 1250, true)

	msg := amqp.NewTransactionSyncMessage(tx.ID, tx.Version)
	require.NoError(t, f.worker.HandleSyncMessage(ctx, msg))

	rows := f.sheet.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, tx.ID, rows[0].TransactionID)
	assert.Equal(t, "ana", rows[0].Username)
	assert.Equal(t, int64(1250), rows[0].Amount.Cents)
	assert.True(t, rows[0].IsIncome)
	assert.Equal(t, core.SyncDone, f.status(t, tx.ID))

	// Redelivery does not append again.
	require.NoError(t, f.worker.HandleSyncMessage(ctx, msg))
	assert.Len(t, f.sheet.Rows(), 1)
}

func TestHandleSyncMessageMissingTransaction(t *testing.T) {
	f := newFixture(t)
	err := f.worker.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage(404, 1))
	assert.NoError(t, err)
	assert.Empty(t, f.sheet.Rows())
}

func TestHandleSyncMessageSheetFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.addTransaction(t, 300, false)

	f.sheet.FailWith(errors.New("quota exceeded"))
	err := f.worker.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, tx.Version))
	require.Error(t, err)
	assert.Equal(t, core.SyncFailed, f.status(t, tx.ID))

	// A retried message succeeds once the sheet recovers.
	f.sheet.FailWith(nil)
	require.NoError(t, f.worker.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, tx.Version)))
	assert.Equal(t, core.SyncDone, f.status(t, tx.ID))
}

// slowSheet holds every append long enough for a second exporter to run.
type slowSheet struct {
	*memory.Store
	delay time.Duration
}

func (s *slowSheet) AppendTransaction(ctx context.Context, row sheets.Row) (string, error) {
	time.Sleep(s.delay)
	return s.Store.AppendTransaction(ctx, row)
}

func TestMessageAndSweepAppendOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.addTransaction(t, 4200, true)
	w := NewSyncWorker(f.repo, &slowSheet{Store: f.sheet, delay: 100 * time.Millisecond}, 10, log.Discard())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, tx.Version)))
	}()
	go func() {
		defer wg.Done()
		_, err := w.ProcessPending(ctx)
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Len(t, f.sheet.Rows(), 1, "rows appended for one transaction")
	assert.Equal(t, core.SyncDone, f.status(t, tx.ID))
}

func TestProcessPendingHonoursBatchSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range 3 {
		f.addTransaction(t, int64(100*(i+1)), i%2 == 0)
	}

	n, err := f.worker.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.worker.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.worker.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.sheet.Rows(), 3)
}

func TestStartupSyncCheckUsesLargerBatch(t *testing.T) {
	f := newFixture(t)
	for range 7 {
		f.addTransaction(t, 100, false)
	}
	require.NoError(t, f.worker.StartupSyncCheck(context.Background()))
	assert.Len(t, f.sheet.Rows(), 7)
}

type stubConsumer struct {
	messages []*amqp.TransactionSyncMessage
	errs     chan error
}

func (c *stubConsumer) ConsumeTransactionSync(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.messages {
		c.errs <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	f := newFixture(t)
	tx := f.addTransaction(t, 500, true)

	// Failed rows are not swept, so only the consumer exports this one.
	require.NoError(t, f.repo.SetSyncStatus(context.Background(), tx.ID, core.SyncFailed))

	consumer := &stubConsumer{
		messages: []*amqp.TransactionSyncMessage{amqp.NewTransactionSyncMessage(tx.ID, tx.Version)},
		errs:     make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, consumer, time.Hour) }()

	select {
	case err := <-consumer.errs:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not handled")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, f.sheet.Rows(), 1)
	assert.Equal(t, core.SyncDone, f.status(t, tx.ID))
}
