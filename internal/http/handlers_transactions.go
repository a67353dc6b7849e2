package http

import (
	"net/http"

	"financas/internal/auth"
	"financas/internal/core"
	"financas/internal/services"
)

const fieldKind = "ganhodespesa"

type transactionsData struct {
	Transactions []core.Transaction
	Balance      core.Balance
	Empty        bool
}

func (s *Server) transactionManager(r *http.Request) *services.TransactionManager {
	user, _ := auth.UserFromContext(r.Context())
	return services.NewTransactionManager(s.txs, user, services.TransactionDeps{
		Balances:  s.balances,
		Publisher: s.publisher,
		Recorder:  s.metrics,
	})
}

// handleListTransactions shows the movements, newest first, above the
// balance: net, income and expenses.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	mgr := s.transactionManager(r)
	txs, err := mgr.ListTransactions(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	balance, err := mgr.ComputeBalance(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	p := s.newPage(r)
	p.Data = transactionsData{Transactions: txs, Balance: balance, Empty: len(txs) == 0}
	s.render(w, r, http.StatusOK, "movimentacoes", p)
}

func (s *Server) handleNewTransactionForm(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r)
	p.Form[fieldKind] = "despesa"
	s.render(w, r, http.StatusOK, "movimentacao_form", p)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest)
		return
	}
	kind := field(r, fieldKind)
	in := core.TransactionInput{
		Amount:      field(r, core.FieldAmount),
		Description: field(r, core.FieldDescription),
		IsIncome:    kind == "ganho",
	}

	if _, err := s.transactionManager(r).CreateTransaction(r.Context(), in); err != nil {
		p := s.newPage(r)
		p.Form[core.FieldAmount] = in.Amount
		p.Form[core.FieldDescription] = in.Description
		p.Form[fieldKind] = kind
		s.renderForm(w, r, "movimentacao_form", p, err)
		return
	}
	http.Redirect(w, r, "/movimentacoes", http.StatusSeeOther)
}
