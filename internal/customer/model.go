package customer

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Membership carries the discount tier a customer currently holds.
// DiscountRate is a fraction in [0, 1).
type Membership struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Level        string          `json:"level" db:"level"`
	DiscountRate decimal.Decimal `json:"discount_rate" db:"discount_rate"`
}

type Customer struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	Email                 string          `json:"email" db:"email"`
	Name                  string          `json:"name" db:"name"`
	MonthlyPurchaseAmount decimal.Decimal `json:"monthly_purchase_amount" db:"monthly_purchase_amount"`
	Membership            Membership      `json:"membership" db:"-"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}
