package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	// StatusOrder is the state of a placed, not yet verified order.
	StatusOrder Status = "ORDER"
	// StatusComplete is set together with the gateway payment id after
	// post-verification succeeds.
	StatusComplete Status = "COMPLETE"
	// StatusCancel is terminal.
	StatusCancel Status = "CANCEL"
)

func (s Status) String() string {
	return string(s)
}

type DeliveryStatus string

const (
	DeliveryStatusReady      DeliveryStatus = "READY"
	DeliveryStatusDispatched DeliveryStatus = "DISPATCHED"
	DeliveryStatusDelivered  DeliveryStatus = "DELIVERED"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

// Delivery is a snapshot of the shipping target, embedded in the order row.
type Delivery struct {
	RecipientName string         `json:"recipient_name" db:"recipient_name"`
	RecipientTel  string         `json:"recipient_tel" db:"recipient_tel"`
	Address       string         `json:"address" db:"address"`
	Status        DeliveryStatus `json:"status" db:"delivery_status"`
}

// Line is an immutable snapshot of one purchased item. UnitPrice is the
// discounted per-unit price captured at placement time; it is never
// recomputed from the live item or membership.
type Line struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ItemID    uuid.UUID       `json:"item_id" db:"item_id"`
	ItemName  string          `json:"item_name" db:"item_name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total" db:"line_total"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Order is the aggregate root. MerchantUID correlates one checkout attempt
// with the payment gateway; ImpUID is the gateway's payment id and stays nil
// until post-verification succeeds.
type Order struct {
	ID          uuid.UUID `json:"id" db:"id"`
	MerchantUID string    `json:"merchant_uid" db:"merchant_uid"`
	CustomerID  uuid.UUID `json:"customer_id" db:"customer_id"`
	Status      Status    `json:"status" db:"status"`
	ImpUID      *string   `json:"imp_uid,omitempty" db:"imp_uid"`
	Delivery    Delivery  `json:"delivery" db:"-"`
	Lines       []Line    `json:"lines" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Total is the order's expected payment amount: the sum of its line totals.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.LineTotal)
	}
	return total
}

// LineByItemName finds the snapshot line for an item reference.
func (o *Order) LineByItemName(name string) (*Line, bool) {
	for i := range o.Lines {
		if o.Lines[i].ItemName == name {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

type LineSummary struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Summary is the read model returned to callers after placement and lookups.
type Summary struct {
	MerchantUID    string          `json:"merchant_uid"`
	CustomerName   string          `json:"customer_name"`
	RecipientName  string          `json:"recipient_name"`
	Address        string          `json:"address"`
	Status         Status          `json:"status"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	Lines          []LineSummary   `json:"lines"`
	Total          decimal.Decimal `json:"total"`
}

func newSummary(o *Order, customerName string) *Summary {
	lines := make([]LineSummary, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, LineSummary{
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return &Summary{
		MerchantUID:    o.MerchantUID,
		CustomerName:   customerName,
		RecipientName:  o.Delivery.RecipientName,
		Address:        o.Delivery.Address,
		Status:         o.Status,
		DeliveryStatus: o.Delivery.Status,
		Lines:          lines,
		Total:          o.Total(),
	}
}
