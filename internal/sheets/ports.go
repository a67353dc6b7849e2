// Package sheets defines the spreadsheet export port. Adapters live in the
// google and memory subpackages.
package sheets

import (
	"context"
	"strconv"
	"time"

	"financas/internal/core"
)

// DateLayout is how dates are written to the sheet.
const DateLayout = "02/01/2006 15:04"

// Header is the first row of an export sheet.
var Header = []any{"ID", "Data", "Usuário", "Descrição", "Tipo", "Valor"}

// Row is one exported transaction.
type Row struct {
	TransactionID int64
	Date          time.Time
	Username      string
	Description   string
	IsIncome      bool
	Amount        core.Money
}

func RowFromTransaction(t core.Transaction, owner string) Row {
	return Row{
		TransactionID: t.ID,
		Date:          t.CreatedAt,
		Username:      owner,
		Description:   t.Description,
		IsIncome:      t.IsIncome,
		Amount:        t.Amount,
	}
}

// Values renders r in Header order. The amount is signed so a SUM over the
// column yields the balance. User supplied text is passed through
// EscapeText because rows are appended as USER_ENTERED.
func (r Row) Values() []any {
	kind := "Despesa"
	amount := core.Money{Cents: -r.Amount.Cents}
	if r.IsIncome {
		kind = "Receita"
		amount = r.Amount
	}
	return []any{
		strconv.FormatInt(r.TransactionID, 10),
		r.Date.Format(DateLayout),
		EscapeText(r.Username),
		EscapeText(r.Description),
		kind,
		amount.String(),
	}
}

// EscapeText keeps a cell that the spreadsheet would read as a formula as
// plain text by prefixing it with an apostrophe, which the sheet hides.
func EscapeText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '\'':
		return "'" + s
	}
	return s
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, row Row) (rowRef string, err error)
	}
)
