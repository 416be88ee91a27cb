package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPlan is a product tier: price, listing quota and validity
// duration. Read-only from the payment core's perspective.
type SubscriptionPlan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	MaxHouses    int             `gorm:"not null" json:"max_houses"`
	DurationDays int             `gorm:"not null;default:30" json:"duration_days"`
	IsFree       bool            `gorm:"not null;default:false;index" json:"is_free"`
	IsVisible    bool            `gorm:"not null;default:true;index" json:"is_visible"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
