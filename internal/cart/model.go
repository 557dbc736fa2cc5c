package cart

import (
	"time"

	"github.com/gofrs/uuid"
)

// CartLine stages a requested quantity of one item. Lines are deleted one by
// one as they are converted to order lines during cart checkout.
type CartLine struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ItemID    uuid.UUID `json:"item_id" db:"item_id"`
	ItemName  string    `json:"item_name" db:"-"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Cart struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CustomerID uuid.UUID  `json:"customer_id" db:"customer_id"`
	Lines      []CartLine `json:"lines" db:"-"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
