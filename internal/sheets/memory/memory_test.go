package memory

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppend(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendTransaction(ctx, sheets.Row{TransactionID: 1, Amount: core.Money{Cents: 100}})
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	ref, err = s.AppendTransaction(ctx, sheets.Row{TransactionID: 2})
	require.NoError(t, err)
	assert.Equal(t, "mem:2", ref)

	rows := s.Rows()
	require.Len(t, rows, 2)
	rows[0].TransactionID = 99
	assert.Equal(t, int64(1), s.Rows()[0].TransactionID, "Rows returns a copy")
}

func TestStoreFailure(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.FailWith(boom)
	_, err := s.AppendTransaction(context.Background(), sheets.Row{})
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	_, err = s.AppendTransaction(context.Background(), sheets.Row{})
	assert.NoError(t, err)
	assert.Len(t, s.Rows(), 1)
}

func TestRowValues(t *testing.T) {
	income := sheets.RowFromTransaction(core.Transaction{
		ID: 3, Amount: core.Money{Cents: 5000}, Description: "Salário", IsIncome: true,
	}, "ana")
	v := income.Values()
	require.Len(t, v, len(sheets.Header))
	assert.Equal(t, "ana", v[2])
	assert.Equal(t, "Receita", v[4])
	assert.Equal(t, "50.00", v[5])
}
