// Package payment talks to the hosted checkout provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("payment provider unavailable")

type LineItem struct {
	Name string
	// UnitAmount is in the currency's minor unit.
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	Currency   string
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
	// Reference is stored on the provider session for reconciliation.
	Reference string
}

type Session struct {
	ID  string
	URL string
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	CheckoutSessionPaid(ctx context.Context, sessionID string) (bool, error)
}

// MinorUnits converts an amount to the currency's minor unit (price × 100),
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
