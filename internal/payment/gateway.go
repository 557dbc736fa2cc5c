package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrPrepareFailed surfaces a gateway rejection of the pre-payment
	// amount registration; the gateway's message is attached to it.
	ErrPrepareFailed = errors.New("payment prepare rejected")
	// ErrWrongPaymentAmount is raised only after a compensating full
	// cancellation went through: the caller should treat it as "payment was
	// rejected and refunded", not as something to retry verbatim.
	ErrWrongPaymentAmount = errors.New("paid amount does not match order total")
)

// Payment is the gateway's authoritative record of a completed payment.
type Payment struct {
	ImpUID string          `json:"imp_uid"`
	Amount decimal.Decimal `json:"amount"`
}

// Gateway is the narrow surface of the external payment provider. Prepare
// registers the expected amount ahead of the client-side payment,
// PaymentByImpUID reads the authoritative paid amount, CancelByImpUID
// refunds; full=true ignores refundAmount, full=false requires a positive
// one.
type Gateway interface {
	Prepare(ctx context.Context, merchantUID string, amount decimal.Decimal) error
	PaymentByImpUID(ctx context.Context, impUID string) (*Payment, error)
	CancelByImpUID(ctx context.Context, impUID string, full bool, refundAmount decimal.Decimal) error
}
