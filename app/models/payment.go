package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentTypeBooking = "Booking"
	PaymentTypeAccount = "Account"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment tracks one gateway transaction from intent to terminal outcome.
// The lifecycle is forward only: pending -> completed|failed, never back.
// OrderID stays empty until the gateway accepts the order; a pending row with
// no order acknowledgment is purged by the scheduler, never reused.
type Payment struct {
	ID     uint            `gorm:"primaryKey" json:"id"`
	UUID   string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	Amount decimal.Decimal `gorm:"type:decimal(32,2);not null" json:"amount"`

	AgentID   *uint `gorm:"index" json:"agent_id,omitempty"`
	PlanID    *uint `gorm:"index" json:"plan_id,omitempty"`
	ListingID *uint `gorm:"index" json:"listing_id,omitempty"`

	PhoneNumber string `gorm:"type:varchar(15);not null" json:"phone_number"`
	PaymentType string `gorm:"type:varchar(20);not null;default:'Booking'" json:"payment_type"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	OrderID       string `gorm:"type:varchar(255);default:'';index" json:"order_id"`
	Message       string `gorm:"type:varchar(255);default:''" json:"message"`
	PaymentStatus string `gorm:"type:varchar(100);default:''" json:"payment_status"`
	Reference     string `gorm:"type:varchar(100);default:''" json:"reference"`

	IsConsumed bool       `gorm:"not null;default:false" json:"is_consumed"`
	ConsumedAt *time.Time `gorm:"type:timestamp;default:null" json:"consumed_at,omitempty"`

	PaymentDate time.Time `gorm:"autoCreateTime;index" json:"payment_date"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Terminal reports whether the payment reached a final state.
func (p *Payment) Terminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}
