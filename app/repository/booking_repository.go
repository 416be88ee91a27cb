package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kedesh/marketplace/app/models"
)

type bookingRepository struct {
	db *gorm.DB
}

func (r *bookingRepository) Create(b *models.Booking) error {
	return r.db.Create(b).Error
}

func (r *bookingRepository) GetOwned(id, agentID uint) (*models.Booking, error) {
	var b models.Booking
	err := r.db.Preload("Listing").
		Joins("JOIN listings ON listings.id = bookings.listing_id").
		Where("bookings.id = ? AND listings.agent_id = ?", id, agentID).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) ListOwned(agentID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Preload("Listing").
		Joins("JOIN listings ON listings.id = bookings.listing_id").
		Where("listings.agent_id = ?", agentID).
		Order("bookings.created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) MarkRead(id uint) error {
	return r.db.Model(&models.Booking{}).Where("id = ?", id).
		Update("has_owner_read", true).Error
}
