package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kedesh/marketplace/app/models"
)

type paymentRepository struct {
	db *gorm.DB
}

func (r *paymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *paymentRepository) GetByUUID(uuid string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("uuid = ?", uuid).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetForCallback(uuid, orderID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("uuid = ? AND order_id = ?", uuid, orderID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Payment{}, id).Error
}

func (r *paymentRepository) SetOrder(id uint, orderID, message string) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"order_id": orderID,
			"message":  message,
		}).Error
}

// Complete is the forward-only CAS: only a pending row can flip to completed.
// A duplicate webhook racing on the same payment loses here and observes an
// idempotent replay instead of a double apply.
func (r *paymentRepository) Complete(id uint, paymentStatus, reference string, now time.Time) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusCompleted,
			"payment_status": paymentStatus,
			"reference":      reference,
			"is_consumed":    true,
			"consumed_at":    &now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *paymentRepository) Fail(id uint, paymentStatus, reference string) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusFailed,
			"payment_status": paymentStatus,
			"reference":      reference,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *paymentRepository) DeleteStalePending(before time.Time) (int64, error) {
	tx := r.db.Where("status = ? AND payment_date < ?", models.PaymentStatusPending, before).
		Delete(&models.Payment{})
	return tx.RowsAffected, tx.Error
}
