package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteSettings is the single operator-maintained row with company contact data
// and the flat booking fee. Loaded once per request path that needs it and
// passed by reference, never read through a package-level singleton.
type SiteSettings struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SupportPhone string          `gorm:"type:varchar(100);not null" json:"support_phone"`
	SupportEmail string          `gorm:"type:varchar(100);not null" json:"support_email"`
	Headquarters string          `gorm:"type:varchar(255);not null" json:"headquarters"`
	BookingFee   decimal.Decimal `gorm:"type:decimal(32,2);not null" json:"booking_fee"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
