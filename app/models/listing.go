package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	ListingKindHouse = "house"
	ListingKindRoom  = "room"
	ListingKindLand  = "land"
)

const (
	ListingStatusAvailable = "Available"
	ListingStatusBooked    = "Booked"
	ListingStatusRented    = "Rented"
	ListingStatusSold      = "Sold"
)

const (
	ListingCategoryRental = "Rental"
	ListingCategorySale   = "Sale"
)

// Listing is a bookable unit. House, room and land share one table and one
// status machine; the Kind column selects which variant columns are meaningful.
type Listing struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AgentID         uint            `gorm:"not null;index" json:"agent_id"`
	LocationID      uint            `gorm:"not null;index" json:"location_id"`
	Kind            string          `gorm:"type:varchar(20);not null;index" json:"kind" validate:"oneof=house room land"`
	Category        string          `gorm:"type:varchar(20);not null;default:'Rental'" json:"category" validate:"oneof=Rental Sale"`
	Price           decimal.Decimal `gorm:"type:decimal(32,2);not null" json:"price"`
	Description     string          `gorm:"type:text" json:"description"`
	Status          string          `gorm:"type:varchar(20);not null;default:'Available';index:idx_listings_status_agent,priority:1" json:"status"`
	IsActiveAccount bool            `gorm:"not null;default:true;index" json:"is_active_account"`
	IsDeleted       bool            `gorm:"not null;default:false;index" json:"-"`

	// House variant
	Bedrooms  int `gorm:"default:0" json:"bedrooms,omitempty"`
	Bathrooms int `gorm:"default:0" json:"bathrooms,omitempty"`

	// Room variant
	RoomCategory string `gorm:"type:varchar(50);default:''" json:"room_category,omitempty"`

	// Land variant
	LandSizeSQM int    `gorm:"default:0" json:"land_size_sqm,omitempty"`
	Zoning      string `gorm:"type:varchar(50);default:''" json:"zoning,omitempty"`

	ListingDate time.Time `gorm:"autoCreateTime" json:"listing_date"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *Listing) Validate() error {
	v := validator.New()
	return v.Struct(l)
}

// Bookable reports whether the listing can accept a new booking.
func (l *Listing) Bookable() bool {
	return l.Status == ListingStatusAvailable && l.IsActiveAccount && !l.IsDeleted
}
