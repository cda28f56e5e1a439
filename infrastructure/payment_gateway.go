package infrastructure

import (
	"context"
	"fmt"
	"time"

	"raffle/application"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// StubPaymentGateway simulates the KBZPay token exchange without calling out
type StubPaymentGateway struct {
	tokenPrefix string
	merchantID  string
	now         func() time.Time
}

// NewStubPaymentGateway creates a gateway issuing tokens that start with tokenPrefix
func NewStubPaymentGateway(tokenPrefix, merchantID string) *StubPaymentGateway {
	if merchantID == "" {
		merchantID = "JT04"
	}
	return &StubPaymentGateway{
		tokenPrefix: tokenPrefix,
		merchantID:  merchantID,
		now:         time.Now,
	}
}

// IssueToken returns an opaque token for one deposit
func (g *StubPaymentGateway) IssueToken(ctx context.Context, userID int64, amount decimal.Decimal) (*application.PaymentToken, error) {
	token := &application.PaymentToken{
		Token:      g.tokenPrefix + uuid.New().String(),
		InvoiceNo:  fmt.Sprintf("INV%d", g.now().UnixMilli()),
		MerchantID: g.merchantID,
		Currency:   "MMK",
		Channel:    "DPAY",
		Amount:     amount,
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"amount":    amount.String(),
		"invoiceNo": token.InvoiceNo,
	}).Info("Issued payment token")

	return token, nil
}
