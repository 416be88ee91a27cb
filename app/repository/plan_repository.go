package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kedesh/marketplace/app/models"
)

type planRepository struct {
	db *gorm.DB
}

func (r *planRepository) GetByID(id uint) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) GetFreePlan() (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := r.db.Where("is_free = ?", true).Order("id").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) ListVisible() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.Where("is_visible = ?", true).Order("price").Find(&plans).Error
	return plans, err
}

type settingsRepository struct {
	db *gorm.DB
}

func (r *settingsRepository) Get() (*models.SiteSettings, error) {
	var s models.SiteSettings
	err := r.db.Order("id").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// agentDirectory derives the known agent population from listing and account
// ownership. The agent aggregate itself is managed outside the core.
type agentDirectory struct {
	db *gorm.DB
}

func (r *agentDirectory) ListAgentIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Raw(`
		SELECT DISTINCT agent_id FROM listings
		UNION
		SELECT DISTINCT agent_id FROM accounts`).Scan(&ids).Error
	return ids, err
}
