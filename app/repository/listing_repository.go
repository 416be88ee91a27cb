package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kedesh/marketplace/app/models"
)

type listingRepository struct {
	db *gorm.DB
}

func (r *listingRepository) Create(l *models.Listing) error {
	return r.db.Create(l).Error
}

func (r *listingRepository) GetByID(id uint) (*models.Listing, error) {
	var l models.Listing
	if err := r.db.First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) CountByAgent(agentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Listing{}).
		Where("agent_id = ? AND is_deleted = ?", agentID, false).
		Count(&count).Error
	return count, err
}

// Reserve is the booking CAS: the UPDATE only matches while the listing is
// still bookable, so exactly one of two racing reservations wins.
func (r *listingRepository) Reserve(id uint) (bool, error) {
	tx := r.db.Model(&models.Listing{}).
		Where("id = ? AND status = ? AND is_active_account = ? AND is_deleted = ?",
			id, models.ListingStatusAvailable, true, false).
		Update("status", models.ListingStatusBooked)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *listingRepository) TransitionOwned(id, agentID uint, from []string, to string) (bool, error) {
	tx := r.db.Model(&models.Listing{}).
		Where("id = ? AND agent_id = ? AND status IN ? AND is_deleted = ?", id, agentID, from, false).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *listingRepository) SetDeleted(id, agentID uint, deleted bool) (bool, error) {
	tx := r.db.Model(&models.Listing{}).
		Where("id = ? AND agent_id = ? AND is_deleted = ?", id, agentID, !deleted).
		Update("is_deleted", deleted)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *listingRepository) SetAccountActiveByAgent(agentID uint, active bool) (int64, error) {
	tx := r.db.Model(&models.Listing{}).
		Where("agent_id = ? AND is_active_account = ?", agentID, !active).
		Update("is_active_account", active)
	return tx.RowsAffected, tx.Error
}
