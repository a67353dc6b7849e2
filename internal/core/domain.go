package core

import (
	"time"
)

// Sync states of a transaction towards the spreadsheet export.
const (
	SyncPending SyncStatus = "pending"
	SyncClaimed SyncStatus = "syncing"
	SyncDone    SyncStatus = "synced"
	SyncFailed  SyncStatus = "error"
	// SyncDisabled marks rows written while no publisher was configured.
	SyncDisabled SyncStatus = "disabled"
)

type (
	SyncStatus string

	Money struct {
		Cents int64
	}

	User struct {
		ID        int64
		Username  string
		Email     string
		CreatedAt time.Time
	}

	// Plan is a savings goal: a target amount and how much of it was
	// already put aside.
	Plan struct {
		ID          int64
		UserID      int64
		Target      Money
		Progress    Money
		Description string
		Version     int64
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Amount      Money // always positive, direction is IsIncome
		Description string
		IsIncome    bool
		CreatedAt   time.Time
		SyncStatus  SyncStatus
		Version     int64
	}

	Balance struct {
		Net     Money
		Income  Money
		Expense Money
	}
)

// Percent is Progress/Target truncated to an integer in [0, 100].
func (p Plan) Percent() int {
	if p.Target.Cents <= 0 || p.Progress.Cents <= 0 {
		return 0
	}
	if p.Progress.Cents >= p.Target.Cents {
		return 100
	}
	// QuoRem at precision 0 truncates exactly; Div rounds first.
	q, _ := p.Progress.Decimal().Mul(hundred).QuoRem(p.Target.Decimal(), 0)
	return int(q.IntPart())
}

// BarSegments returns a sequence whose length is the plan percentage, the
// "barra" the plans page iterates over to draw the progress bar.
func (p Plan) BarSegments() []struct{} {
	return make([]struct{}, p.Percent())
}

// Signed returns the amount with the sign of its direction.
func (t Transaction) Signed() Money {
	if t.IsIncome {
		return t.Amount
	}
	return Money{Cents: -t.Amount.Cents}
}

func (t Transaction) Kind() string {
	if t.IsIncome {
		return "Receita"
	}
	return "Despesa"
}

// NewBalance builds a Balance from the two partial sums.
func NewBalance(income, expense Money) Balance {
	return Balance{
		Net:     income.Sub(expense),
		Income:  income,
		Expense: expense,
	}
}
