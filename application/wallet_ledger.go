package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"raffle/config"
	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/services"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// SQLSTATE codes that mean "try the whole unit again"
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// DrawLock serializes draws across processes
type DrawLock interface {
	// Acquire blocks until the lock is held or ctx ends; release must be called exactly once
	Acquire(ctx context.Context) (release func(), err error)
}

// PaymentToken is an opaque token issued by the payment gateway for one deposit
type PaymentToken struct {
	Token      string
	InvoiceNo  string
	MerchantID string
	Currency   string
	Channel    string
	Amount     decimal.Decimal
}

// PaymentGateway issues payment tokens for gateway-backed deposits
type PaymentGateway interface {
	IssueToken(ctx context.Context, userID int64, amount decimal.Decimal) (*PaymentToken, error)
}

// PaymentTokenResult pairs an issued token with the pending deposit it funds
type PaymentTokenResult struct {
	Token       *PaymentToken
	Transaction *entities.Transaction
}

// LedgerMetrics receives counters from ledger operations
type LedgerMetrics interface {
	RecordTicketsSold(quantity int)
	RecordDraw(scheduled bool, winners int)
	RecordTransactionDecision(kind, status string)
	RecordUnitRetry(operation string)
	MeasureUnit(operation string) func()
}

type noopMetrics struct{}

func (noopMetrics) RecordTicketsSold(int)                    {}
func (noopMetrics) RecordDraw(bool, int)                     {}
func (noopMetrics) RecordTransactionDecision(string, string) {}
func (noopMetrics) RecordUnitRetry(string)                   {}
func (noopMetrics) MeasureUnit(string) func()                { return func() {} }

// LedgerOptions configures a WalletLedger. Zero values fall back to defaults.
type LedgerOptions struct {
	HouseAccountID int64
	MaxRetries     int
	UnitTimeout    time.Duration
	RetryBackoff   time.Duration
	DrawLock       DrawLock
	PaymentGateway PaymentGateway
	Metrics        LedgerMetrics
	Sampler        interfaces.TicketSampler
	Clock          func() time.Time
}

// LedgerOptionsFromConfig builds options from the service configuration
func LedgerOptionsFromConfig(cfg *config.Config) LedgerOptions {
	return LedgerOptions{
		HouseAccountID: cfg.HouseAccountID,
		MaxRetries:     cfg.UnitMaxRetries,
		UnitTimeout:    cfg.UnitTimeout,
	}
}

// WalletLedger runs every ledger operation as one database transaction
type WalletLedger struct {
	uowFactory     UnitOfWorkFactory
	drawLock       DrawLock
	paymentGateway PaymentGateway
	metrics        LedgerMetrics
	sampler        interfaces.TicketSampler
	houseAccountID int64
	maxRetries     int
	unitTimeout    time.Duration
	retryBackoff   time.Duration
	now            func() time.Time

	// drawMu serializes draws within this process
	drawMu sync.Mutex
}

// NewWalletLedger creates a new wallet ledger
func NewWalletLedger(uowFactory UnitOfWorkFactory, opts LedgerOptions) *WalletLedger {
	l := &WalletLedger{
		uowFactory:     uowFactory,
		drawLock:       opts.DrawLock,
		paymentGateway: opts.PaymentGateway,
		metrics:        opts.Metrics,
		sampler:        opts.Sampler,
		houseAccountID: opts.HouseAccountID,
		maxRetries:     opts.MaxRetries,
		unitTimeout:    opts.UnitTimeout,
		retryBackoff:   opts.RetryBackoff,
		now:            opts.Clock,
	}
	if l.metrics == nil {
		l.metrics = noopMetrics{}
	}
	if l.sampler == nil {
		l.sampler = services.NewCryptoTicketSampler()
	}
	if l.houseAccountID == 0 {
		l.houseAccountID = 1
	}
	if l.maxRetries < 0 {
		l.maxRetries = 0
	}
	if l.unitTimeout <= 0 {
		l.unitTimeout = 15 * time.Second
	}
	if l.retryBackoff <= 0 {
		l.retryBackoff = 50 * time.Millisecond
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// runInUnit executes fn inside a fresh unit of work and commits it. Transient
// conflicts are retried on a new unit; anything that is not a ledger error is
// reported as a storage failure. The unit keeps running if the caller goes away.
func (l *WalletLedger) runInUnit(ctx context.Context, operation string, fn func(ctx context.Context, uow UnitOfWork) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.unitTimeout)
	defer cancel()
	defer l.metrics.MeasureUnit(operation)()

	var err error
	for attempt := 0; ; attempt++ {
		err = l.attemptUnit(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= l.maxRetries {
			break
		}

		l.metrics.RecordUnitRetry(operation)
		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt + 1,
			"error":     err,
		}).Warn("Retrying unit after storage conflict")

		select {
		case <-ctx.Done():
			return entities.NewStorageFailureError(operation+" timed out", ctx.Err())
		case <-time.After(l.retryBackoff * time.Duration(attempt+1)):
		}
	}

	return classifyError(operation, err)
}

func (l *WalletLedger) attemptUnit(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(ctx, uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return true
	}
	return false
}

func classifyError(operation string, err error) error {
	switch entities.KindOf(err) {
	case "":
		log.WithFields(log.Fields{
			"operation": operation,
			"error":     err,
		}).Error("Ledger unit failed")
		return entities.NewStorageFailureError(operation+" failed", err)
	default:
		return err
	}
}

// withDrawLock holds the in-process mutex and, when configured, the distributed draw lock
func (l *WalletLedger) withDrawLock(ctx context.Context, fn func() error) error {
	l.drawMu.Lock()
	defer l.drawMu.Unlock()

	if l.drawLock != nil {
		lockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.unitTimeout)
		release, err := l.drawLock.Acquire(lockCtx)
		cancel()
		if err != nil {
			return entities.NewStorageFailureError("failed to acquire draw lock", err)
		}
		defer release()
	}

	return fn()
}

// RequestDeposit files a pending deposit
func (l *WalletLedger) RequestDeposit(ctx context.Context, req interfaces.DepositRequest) (*entities.Transaction, error) {
	var tx *entities.Transaction
	err := l.runInUnit(ctx, "request_deposit", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewTransactionService(uow.AccountRepository(), uow.TransactionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		tx, err = svc.RequestDeposit(ctx, req)
		return err
	})
	return tx, err
}

// RequestWithdrawal files a pending withdrawal
func (l *WalletLedger) RequestWithdrawal(ctx context.Context, req interfaces.WithdrawalRequest) (*entities.Transaction, error) {
	var tx *entities.Transaction
	err := l.runInUnit(ctx, "request_withdrawal", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewTransactionService(uow.AccountRepository(), uow.TransactionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		tx, err = svc.RequestWithdrawal(ctx, req)
		return err
	})
	return tx, err
}

// ApproveOrReject decides a pending transaction exactly once
func (l *WalletLedger) ApproveOrReject(ctx context.Context, txID int64, action entities.DecisionAction, adjustedAmount *decimal.Decimal) (*interfaces.DecisionResult, error) {
	var result *interfaces.DecisionResult
	err := l.runInUnit(ctx, "approve_or_reject", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewTransactionService(uow.AccountRepository(), uow.TransactionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		result, err = svc.ApproveOrReject(ctx, txID, action, adjustedAmount)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.metrics.RecordTransactionDecision(string(result.Transaction.Kind), string(result.Transaction.Status))
	return result, nil
}

// DeleteTransaction removes a transaction record
func (l *WalletLedger) DeleteTransaction(ctx context.Context, txID int64) (*entities.Transaction, error) {
	var tx *entities.Transaction
	err := l.runInUnit(ctx, "delete_transaction", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewTransactionService(uow.AccountRepository(), uow.TransactionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		tx, err = svc.DeleteTransaction(ctx, txID)
		return err
	})
	return tx, err
}

// ListTransactions returns the newest transactions for admin review
func (l *WalletLedger) ListTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	var txs []*entities.Transaction
	err := l.runInUnit(ctx, "list_transactions", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewTransactionService(uow.AccountRepository(), uow.TransactionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		txs, err = svc.ListTransactions(ctx, limit)
		return err
	})
	return txs, err
}

// ListUserTransactions returns one account's newest transactions
func (l *WalletLedger) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	var txs []*entities.Transaction
	err := l.runInUnit(ctx, "list_user_transactions", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewTransactionService(uow.AccountRepository(), uow.TransactionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		txs, err = svc.ListUserTransactions(ctx, userID, limit)
		return err
	})
	return txs, err
}

// CreatePaymentToken issues a gateway token and files the matching pending deposit
func (l *WalletLedger) CreatePaymentToken(ctx context.Context, userID int64, amount decimal.Decimal) (*PaymentTokenResult, error) {
	if l.paymentGateway == nil {
		return nil, entities.NewInvalidInputError("payment gateway is not configured")
	}
	if err := entities.ValidateAmount("amount", amount); err != nil {
		return nil, err
	}

	token, err := l.paymentGateway.IssueToken(ctx, userID, amount)
	if err != nil {
		return nil, entities.NewStorageFailureError("failed to issue payment token", err)
	}

	tx, err := l.RequestDeposit(ctx, interfaces.DepositRequest{
		UserID:   userID,
		Amount:   amount,
		Method:   entities.MethodKBZPay,
		Note:     "Invoice " + token.InvoiceNo,
		ProofRef: &token.Token,
	})
	if err != nil {
		return nil, err
	}

	return &PaymentTokenResult{Token: token, Transaction: tx}, nil
}

// BuyTickets charges the buyer and issues quantity contiguous serials
func (l *WalletLedger) BuyTickets(ctx context.Context, userID int64, quantity int) (*interfaces.PurchaseResult, error) {
	var result *interfaces.PurchaseResult
	err := l.runInUnit(ctx, "buy_tickets", func(ctx context.Context, uow UnitOfWork) error {
		svc := services.NewPurchaseService(uow.AccountRepository(), uow.TicketRepository(), uow.GlobalStatsRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
		var err error
		result, err = svc.BuyTickets(ctx, userID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.metrics.RecordTicketsSold(result.Quantity)
	return result, nil
}

// DrawWinners runs a manual draw
func (l *WalletLedger) DrawWinners(ctx context.Context) (*interfaces.DrawResult, error) {
	var result *interfaces.DrawResult
	err := l.withDrawLock(ctx, func() error {
		return l.runInUnit(ctx, "draw_winners", func(ctx context.Context, uow UnitOfWork) error {
			var err error
			result, err = l.drawService(uow).DrawWinners(ctx)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	l.metrics.RecordDraw(false, len(result.Winners))
	return result, nil
}

// RunScheduledDraw draws if the auto-draw deadline has passed
func (l *WalletLedger) RunScheduledDraw(ctx context.Context) (*interfaces.ScheduledDrawResult, error) {
	var result *interfaces.ScheduledDrawResult
	err := l.withDrawLock(ctx, func() error {
		return l.runInUnit(ctx, "scheduled_draw", func(ctx context.Context, uow UnitOfWork) error {
			var err error
			result, err = l.drawService(uow).RunScheduledDraw(ctx, l.now().UTC())
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Draw != nil {
		l.metrics.RecordDraw(true, len(result.Draw.Winners))
	}
	return result, nil
}

func (l *WalletLedger) drawService(uow UnitOfWork) interfaces.DrawService {
	return services.NewDrawService(
		uow.AccountRepository(),
		uow.TicketRepository(),
		uow.GlobalStatsRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		l.sampler,
		l.houseAccountID,
	)
}

// GetStats reads GlobalStats fresh from storage
func (l *WalletLedger) GetStats(ctx context.Context) (*entities.GlobalStats, error) {
	var stats *entities.GlobalStats
	err := l.runInUnit(ctx, "get_stats", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		stats, err = services.NewStatsService(uow.GlobalStatsRepository(), uow.EventBus()).GetStats(ctx)
		return err
	})
	return stats, err
}

// SetTicketPrice changes the price of future tickets
func (l *WalletLedger) SetTicketPrice(ctx context.Context, price decimal.Decimal) (*entities.GlobalStats, error) {
	var stats *entities.GlobalStats
	err := l.runInUnit(ctx, "set_ticket_price", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		stats, err = services.NewStatsService(uow.GlobalStatsRepository(), uow.EventBus()).SetTicketPrice(ctx, price)
		return err
	})
	return stats, err
}

// SetAutoDrawSchedule sets the recurring draw interval; zero disables it
func (l *WalletLedger) SetAutoDrawSchedule(ctx context.Context, days int) (*entities.GlobalStats, error) {
	var stats *entities.GlobalStats
	err := l.runInUnit(ctx, "set_auto_draw_schedule", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		stats, err = services.NewStatsService(uow.GlobalStatsRepository(), uow.EventBus()).SetAutoDrawSchedule(ctx, days, l.now().UTC())
		return err
	})
	return stats, err
}

func accountService(uow UnitOfWork) interfaces.AccountService {
	return services.NewAccountService(uow.AccountRepository(), uow.TicketRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
}

// AdjustBalance credits or debits an account's spendable balance
func (l *WalletLedger) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, direction interfaces.AdjustDirection) (*entities.Account, error) {
	var account *entities.Account
	err := l.runInUnit(ctx, "adjust_balance", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		account, err = accountService(uow).AdjustBalance(ctx, userID, amount, direction)
		return err
	})
	return account, err
}

// ClaimCommission moves an admin's commission into their spendable balance
func (l *WalletLedger) ClaimCommission(ctx context.Context, userID int64) (*entities.Account, decimal.Decimal, error) {
	var account *entities.Account
	var claimed decimal.Decimal
	err := l.runInUnit(ctx, "claim_commission", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		account, claimed, err = accountService(uow).ClaimCommission(ctx, userID)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return account, claimed, nil
}

// GetProfile returns an account
func (l *WalletLedger) GetProfile(ctx context.Context, userID int64) (*entities.Account, error) {
	var account *entities.Account
	err := l.runInUnit(ctx, "get_profile", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		account, err = accountService(uow).GetProfile(ctx, userID)
		return err
	})
	return account, err
}

// UpdateDisplayName changes an account's display name
func (l *WalletLedger) UpdateDisplayName(ctx context.Context, userID int64, name string) (*entities.Account, error) {
	var account *entities.Account
	err := l.runInUnit(ctx, "update_display_name", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		account, err = accountService(uow).UpdateDisplayName(ctx, userID, name)
		return err
	})
	return account, err
}

// ListAccounts returns every account
func (l *WalletLedger) ListAccounts(ctx context.Context) ([]*entities.Account, error) {
	var accounts []*entities.Account
	err := l.runInUnit(ctx, "list_accounts", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		accounts, err = accountService(uow).ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// ListUserTickets returns an account's live tickets
func (l *WalletLedger) ListUserTickets(ctx context.Context, userID int64) ([]*entities.Ticket, error) {
	var tickets []*entities.Ticket
	err := l.runInUnit(ctx, "list_user_tickets", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		tickets, err = accountService(uow).ListTickets(ctx, userID)
		return err
	})
	return tickets, err
}

// ListBalanceHistory returns an account's newest balance movements
func (l *WalletLedger) ListBalanceHistory(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	if limit <= 0 || limit > services.DefaultListLimit {
		limit = services.DefaultListLimit
	}
	var history []*entities.BalanceHistory
	err := l.runInUnit(ctx, "list_balance_history", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		history, err = uow.BalanceHistoryRepository().GetByAccount(ctx, userID, limit)
		return err
	})
	return history, err
}
