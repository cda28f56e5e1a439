package api

import (
	"time"

	"raffle/application"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/shopspring/decimal"
)

// Requests

type UpdateTicketPriceRequest struct {
	Price decimal.Decimal `json:"price" validate:"required,gt=0"`
}

type WithdrawInfo struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"required,max=32"`
}

type TransactionRequest struct {
	Amount       decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Type         string          `json:"type" validate:"required,oneof=deposit withdrawal"`
	Method       string          `json:"method" validate:"omitempty,max=32"`
	Note         string          `json:"note" validate:"max=500"`
	ProofRef     *string         `json:"proofRef" validate:"omitempty,max=500"`
	WithdrawInfo *WithdrawInfo   `json:"withdrawInfo" validate:"omitempty"`
}

type PaymentTokenRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type BuyTicketsRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=10000"`
}

type ActionTransactionRequest struct {
	TxID           int64            `json:"txId" validate:"required,gt=0"`
	Action         string           `json:"action" validate:"required,oneof=approve approved reject rejected"`
	AdjustedAmount *decimal.Decimal `json:"adjustedAmount" validate:"omitempty,gt=0"`
}

type AdjustBalanceRequest struct {
	UserID int64           `json:"userId" validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Type   string          `json:"type" validate:"required,oneof=add subtract"`
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=255"`
}

type AutoDrawSettingsRequest struct {
	Days *int `json:"days" validate:"required,min=0,max=365"`
}

// Responses. Money is rendered with two fixed decimals.

func money(d decimal.Decimal) string {
	return d.StringFixed(entities.MoneyPlaces)
}

type WinnerSlotResponse struct {
	Name     *string `json:"name"`
	TicketID *int64  `json:"ticketId"`
	Prize    string  `json:"prize"`
}

type StatsResponse struct {
	TotalSold    int64                `json:"totalSold"`
	TicketPrice  string               `json:"ticketPrice"`
	GrossPool    string               `json:"grossPool"`
	Winners      []WinnerSlotResponse `json:"winners"`
	AutoDrawDays int                  `json:"autoDrawDays"`
	NextDrawTime *time.Time           `json:"nextDrawTime"`
	LastDrawAt   *time.Time           `json:"lastDrawAt"`
}

func newStatsResponse(s *entities.GlobalStats) StatsResponse {
	winners := make([]WinnerSlotResponse, 0, entities.WinnerSlots)
	for _, slot := range s.Winners {
		winners = append(winners, WinnerSlotResponse{
			Name:     slot.Name,
			TicketID: slot.TicketID,
			Prize:    money(slot.Prize),
		})
	}
	return StatsResponse{
		TotalSold:    s.TotalSold,
		TicketPrice:  money(s.TicketPrice),
		GrossPool:    money(s.GrossPool()),
		Winners:      winners,
		AutoDrawDays: s.AutoDrawDays,
		NextDrawTime: s.NextDrawTime,
		LastDrawAt:   s.LastDrawAt,
	}
}

type AccountResponse struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	DisplayName       *string   `json:"displayName"`
	Role              string    `json:"role"`
	Balance           string    `json:"balance"`
	WonBalance        string    `json:"wonBalance"`
	CommissionBalance string    `json:"commissionBalance"`
	TicketsOwned      int64     `json:"ticketsOwned"`
	CreatedAt         time.Time `json:"createdAt"`
}

func newAccountResponse(a *entities.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		Username:          a.Username,
		DisplayName:       a.DisplayName,
		Role:              string(a.Role),
		Balance:           money(a.Balance),
		WonBalance:        money(a.WonBalance),
		CommissionBalance: money(a.CommissionBalance),
		TicketsOwned:      a.TicketsOwned,
		CreatedAt:         a.CreatedAt,
	}
}

type TicketResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type TransactionResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	Note        *string   `json:"note"`
	ProofRef    *string   `json:"proofRef"`
	Username    *string   `json:"username,omitempty"`
	DisplayName *string   `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTransactionResponse(t *entities.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        string(t.Kind),
		Amount:      money(t.Amount),
		Status:      string(t.Status),
		Method:      t.Method,
		Note:        t.Note,
		ProofRef:    t.ProofRef,
		Username:    t.Username,
		DisplayName: t.DisplayName,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTransactionResponses(txs []*entities.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type PurchaseResponse struct {
	Message     string `json:"message"`
	TicketCount int    `json:"ticketCount"`
	TotalCost   string `json:"totalCost"`
	Balance     string `json:"balance"`
	WonBalance  string `json:"wonBalance"`
	TotalSold   int64  `json:"totalSold"`
	FirstSerial int64  `json:"firstSerial"`
	LastSerial  int64  `json:"lastSerial"`
}

func newPurchaseResponse(p *interfaces.PurchaseResult) PurchaseResponse {
	return PurchaseResponse{
		Message:     "Purchase successful",
		TicketCount: p.Quantity,
		TotalCost:   money(p.TotalCost),
		Balance:     money(p.NewBalance),
		WonBalance:  money(p.NewWonBalance),
		TotalSold:   p.TotalSold,
		FirstSerial: p.FirstSerial,
		LastSerial:  p.LastSerial,
	}
}

type DrawWinnerResponse struct {
	Rank      int    `json:"rank"`
	TicketID  int64  `json:"ticketId"`
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
	Prize     string `json:"prize"`
}

type DrawResponse struct {
	Message     string               `json:"message"`
	TicketsSold int64                `json:"ticketsSold"`
	GrossPool   string               `json:"grossPool"`
	HouseFee    string               `json:"houseFee"`
	Unclaimed   string               `json:"unclaimed"`
	Winners     []DrawWinnerResponse `json:"winners"`
	DrawnAt     time.Time            `json:"drawnAt"`
}

func newDrawResponse(d *interfaces.DrawResult) DrawResponse {
	winners := make([]DrawWinnerResponse, 0, len(d.Winners))
	for _, w := range d.Winners {
		winners = append(winners, DrawWinnerResponse{
			Rank:      w.Rank,
			TicketID:  w.TicketID,
			AccountID: w.AccountID,
			Name:      w.Name,
			Prize:     money(w.Prize),
		})
	}
	return DrawResponse{
		Message:     "Winners drawn",
		TicketsSold: d.TicketsSold,
		GrossPool:   money(d.Split.Gross),
		HouseFee:    money(d.Split.HouseFee),
		Unclaimed:   money(d.Unclaimed),
		Winners:     winners,
		DrawnAt:     d.DrawnAt,
	}
}

// DecisionResponse carries balances only when the decision moved money
type DecisionResponse struct {
	Message           string              `json:"message"`
	Transaction       TransactionResponse `json:"transaction"`
	Balance           *string             `json:"balance,omitempty"`
	WonBalance        *string             `json:"wonBalance,omitempty"`
	CommissionBalance *string             `json:"commissionBalance,omitempty"`
}

func newDecisionResponse(result *interfaces.DecisionResult) DecisionResponse {
	resp := DecisionResponse{
		Message:     "Transaction " + string(result.Transaction.Status),
		Transaction: newTransactionResponse(result.Transaction),
	}
	if a := result.Account; a != nil {
		balance, won, commission := money(a.Balance), money(a.WonBalance), money(a.CommissionBalance)
		resp.Balance = &balance
		resp.WonBalance = &won
		resp.CommissionBalance = &commission
	}
	return resp
}

type PaymentPayload struct {
	MerchantID     string   `json:"merchantID"`
	InvoiceNo      string   `json:"invoiceNo"`
	Amount         string   `json:"amount"`
	CurrencyCode   string   `json:"currencyCode"`
	PaymentChannel []string `json:"paymentChannel"`
}

type PaymentTokenResponse struct {
	Message      string              `json:"message"`
	PaymentToken string              `json:"paymentToken"`
	Payload      PaymentPayload      `json:"payload"`
	Transaction  TransactionResponse `json:"transaction"`
}

func newPaymentTokenResponse(r *application.PaymentTokenResult) PaymentTokenResponse {
	return PaymentTokenResponse{
		Message:      "Payment Token Generated",
		PaymentToken: r.Token.Token,
		Payload: PaymentPayload{
			MerchantID:     r.Token.MerchantID,
			InvoiceNo:      r.Token.InvoiceNo,
			Amount:         money(r.Token.Amount),
			CurrencyCode:   r.Token.Currency,
			PaymentChannel: []string{r.Token.Channel},
		},
		Transaction: newTransactionResponse(r.Transaction),
	}
}

type ClaimCommissionResponse struct {
	Message string `json:"message"`
	Claimed string `json:"claimed"`
	Balance string `json:"balance"`
}

type BalanceHistoryResponse struct {
	ID              int64          `json:"id"`
	Bucket          string         `json:"bucket"`
	ChangeAmount    string         `json:"changeAmount"`
	BalanceAfter    string         `json:"balanceAfter"`
	TransactionType string         `json:"transactionType"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}
