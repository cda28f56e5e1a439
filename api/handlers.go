package api

import (
	"net/http"
	"strconv"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// Handler serves the raffle HTTP API on top of the ledger
type Handler struct {
	ledger    Ledger
	validator *Validator
}

// NewHandler creates a new handler
func NewHandler(ledger Ledger) *Handler {
	return &Handler{
		ledger:    ledger,
		validator: NewValidator(),
	}
}

// bind decodes and validates a request body, writing the 400 itself on failure
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

// GetStats returns the raffle state, read fresh on every call
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.GetStats(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsResponse(stats))
}

func (h *Handler) UpdateTicketPrice(w http.ResponseWriter, r *http.Request) {
	var req UpdateTicketPriceRequest
	if !h.bind(w, r, &req) {
		return
	}

	stats, err := h.ledger.SetTicketPrice(r.Context(), req.Price)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsResponse(stats))
}

func (h *Handler) AutoDrawSettings(w http.ResponseWriter, r *http.Request) {
	var req AutoDrawSettingsRequest
	if !h.bind(w, r, &req) {
		return
	}

	stats, err := h.ledger.SetAutoDrawSchedule(r.Context(), *req.Days)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsResponse(stats))
}

func (h *Handler) MyTickets(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	tickets, err := h.ledger.ListUserTickets(r.Context(), account.ID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketResponse{ID: t.ID, CreatedAt: t.IssuedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// RequestTransaction files a deposit or withdrawal for admin review
func (h *Handler) RequestTransaction(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	var req TransactionRequest
	if !h.bind(w, r, &req) {
		return
	}

	var (
		tx  *entities.Transaction
		err error
	)
	switch entities.TransactionKind(req.Type) {
	case entities.TransactionKindWithdrawal:
		wr := interfaces.WithdrawalRequest{
			UserID: account.ID,
			Amount: req.Amount,
			Method: req.Method,
			Note:   req.Note,
		}
		if req.WithdrawInfo != nil {
			wr.Payout = entities.WithdrawalPayout{Name: req.WithdrawInfo.Name, Phone: req.WithdrawInfo.Phone}
		}
		tx, err = h.ledger.RequestWithdrawal(r.Context(), wr)
	default:
		tx, err = h.ledger.RequestDeposit(r.Context(), interfaces.DepositRequest{
			UserID:   account.ID,
			Amount:   req.Amount,
			Method:   req.Method,
			Note:     req.Note,
			ProofRef: req.ProofRef,
		})
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (h *Handler) PaymentToken(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	var req PaymentTokenRequest
	if !h.bind(w, r, &req) {
		return
	}

	result, err := h.ledger.CreatePaymentToken(r.Context(), account.ID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentTokenResponse(result))
}

// BuyTicketsBulk buys tickets at the server-side price; any client-sent price is ignored
func (h *Handler) BuyTicketsBulk(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	var req BuyTicketsRequest
	if !h.bind(w, r, &req) {
		return
	}

	result, err := h.ledger.BuyTickets(r.Context(), account.ID, req.Quantity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPurchaseResponse(result))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.ListTransactions(r.Context(), queryLimit(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponses(txs))
}

func (h *Handler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	txs, err := h.ledger.ListUserTransactions(r.Context(), account.ID, queryLimit(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponses(txs))
}

// ActionTransaction approves or rejects a pending transaction
func (h *Handler) ActionTransaction(w http.ResponseWriter, r *http.Request) {
	var req ActionTransactionRequest
	if !h.bind(w, r, &req) {
		return
	}

	action, err := entities.ParseDecisionAction(req.Action)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	result, err := h.ledger.ApproveOrReject(r.Context(), req.TxID, action, req.AdjustedAmount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	log.WithFields(log.Fields{
		"admin":  AccountFromContext(r.Context()).ID,
		"txID":   req.TxID,
		"status": result.Transaction.Status,
	}).Info("Transaction decided")

	writeJSON(w, http.StatusOK, newDecisionResponse(result))
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustBalanceRequest
	if !h.bind(w, r, &req) {
		return
	}

	account, err := h.ledger.AdjustBalance(r.Context(), req.UserID, req.Amount, interfaces.AdjustDirection(req.Type))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	txID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || txID <= 0 {
		writeError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	tx, err := h.ledger.DeleteTransaction(r.Context(), txID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	// The auth middleware already loaded a fresh copy of the account
	writeJSON(w, http.StatusOK, newAccountResponse(AccountFromContext(r.Context())))
}

func (h *Handler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	var req UpdateDisplayNameRequest
	if !h.bind(w, r, &req) {
		return
	}

	updated, err := h.ledger.UpdateDisplayName(r.Context(), account.ID, req.DisplayName)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(updated))
}

func (h *Handler) BalanceHistory(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	history, err := h.ledger.ListBalanceHistory(r.Context(), account.ID, queryLimit(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]BalanceHistoryResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, BalanceHistoryResponse{
			ID:              entry.ID,
			Bucket:          string(entry.Bucket),
			ChangeAmount:    money(entry.ChangeAmount),
			BalanceAfter:    money(entry.BalanceAfter),
			TransactionType: string(entry.TransactionType),
			Metadata:        entry.TransactionMetadata,
			CreatedAt:       entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DrawWinner(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.DrawWinners(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDrawResponse(result))
}

func (h *Handler) ClaimCommission(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	updated, claimed, err := h.ledger.ClaimCommission(r.Context(), account.ID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimCommissionResponse{
		Message: "Commission transferred to main balance",
		Claimed: money(claimed),
		Balance: money(updated.Balance),
	})
}
