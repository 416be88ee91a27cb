package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kedesh/marketplace/app/models"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(a *models.Account) error {
	return r.db.Create(a).Error
}

// CreateIfAbsent implements the auto-enrollment guard: the insert only happens
// while the agent has no account row at all. Running it inside a transaction
// with a locked count keeps a racing organic subscribe from producing a second
// simultaneously-active account.
func (r *accountRepository) CreateIfAbsent(a *models.Account) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Account{}).
			Where("agent_id = ?", a.AgentID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *accountRepository) GetActiveByAgent(agentID uint) (*models.Account, error) {
	var a models.Account
	err := r.db.Preload("Plan").
		Where("agent_id = ? AND is_active = ?", agentID, true).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) CountByAgent(agentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Where("agent_id = ?", agentID).Count(&count).Error
	return count, err
}

func (r *accountRepository) DeactivateActiveByAgent(agentID uint) (int64, error) {
	tx := r.db.Model(&models.Account{}).
		Where("agent_id = ? AND is_active = ?", agentID, true).
		Update("is_active", false)
	return tx.RowsAffected, tx.Error
}

// Expire is idempotent: the WHERE clause only matches an active, past-due row,
// so a second run is a no-op.
func (r *accountRepository) Expire(id uint, now time.Time) (bool, error) {
	tx := r.db.Model(&models.Account{}).
		Where("id = ? AND is_active = ? AND end_date <= ?", id, true, now).
		Update("is_active", false)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *accountRepository) ListExpired(now time.Time) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("is_active = ? AND end_date <= ?", true, now).Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) ListActive() ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("is_active = ?", true).Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) ListInactive() ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("is_active = ?", false).Find(&accounts).Error
	return accounts, err
}
