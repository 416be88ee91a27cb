package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is the tenant-facing receipt, materialized only after its payment
// reached completed.
type Booking struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UUID          string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	ListingID     uint            `gorm:"not null;index" json:"listing_id"`
	Listing       *Listing        `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	CustomerName  string          `gorm:"type:varchar(150);default:''" json:"customer_name"`
	CustomerEmail string          `gorm:"type:varchar(200);default:''" json:"customer_email"`
	CustomerPhone string          `gorm:"type:varchar(15);not null" json:"customer_phone"`
	BookingFee    decimal.Decimal `gorm:"type:decimal(32,2);not null" json:"booking_fee"`
	HasOwnerRead  bool            `gorm:"not null;default:false" json:"has_owner_read"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
