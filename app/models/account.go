package models

import "time"

// Account is one validity window of an agent's subscription. Renewal never
// mutates history: the old row is deactivated and a fresh row inserted, so an
// agent has at most one row with IsActive=true at any instant.
type Account struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	AgentID   uint              `gorm:"not null;index:idx_accounts_agent_active,priority:1" json:"agent_id"`
	PlanID    uint              `gorm:"not null;index" json:"plan_id"`
	Plan      *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	StartDate time.Time         `gorm:"not null" json:"start_date"`
	EndDate   time.Time         `gorm:"not null;index" json:"end_date"`
	IsActive  bool              `gorm:"not null;default:true;index:idx_accounts_agent_active,priority:2" json:"is_active"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// Expired reports whether the validity window has passed.
func (a *Account) Expired(now time.Time) bool {
	return !a.EndDate.After(now)
}

// CanUpload is the quota check: the account must be active and the current
// listing count strictly below the plan quota. Never cached across a request.
func (a *Account) CanUpload(plan *SubscriptionPlan, currentListingCount int64) bool {
	if a == nil || plan == nil {
		return false
	}
	return a.IsActive && currentListingCount < int64(plan.MaxHouses)
}
