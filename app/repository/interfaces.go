package repository

import (
	"time"

	"github.com/kedesh/marketplace/app/models"
)

// ListingRepository defines the listing-side database operations used by the
// availability state machine. Conditional updates report whether a row
// actually transitioned so callers can tell "won the race" from "lost".
type ListingRepository interface {
	Create(l *models.Listing) error
	GetByID(id uint) (*models.Listing, error)
	CountByAgent(agentID uint) (int64, error)
	// Reserve flips Available -> Booked iff the listing is currently bookable.
	Reserve(id uint) (bool, error)
	// TransitionOwned moves a listing owned by agentID from one of the given
	// statuses to the target status.
	TransitionOwned(id, agentID uint, from []string, to string) (bool, error)
	SetDeleted(id, agentID uint, deleted bool) (bool, error)
	SetAccountActiveByAgent(agentID uint, active bool) (int64, error)
}

// AccountRepository defines the subscription-account database operations.
type AccountRepository interface {
	Create(a *models.Account) error
	// CreateIfAbsent inserts the account only when the agent has no account
	// row at all, not even an expired one. Returns false when a row existed.
	CreateIfAbsent(a *models.Account) (bool, error)
	GetActiveByAgent(agentID uint) (*models.Account, error)
	CountByAgent(agentID uint) (int64, error)
	DeactivateActiveByAgent(agentID uint) (int64, error)
	// Expire flips is_active off iff the row is active and past its end date.
	Expire(id uint, now time.Time) (bool, error)
	ListExpired(now time.Time) ([]models.Account, error)
	ListActive() ([]models.Account, error)
	ListInactive() ([]models.Account, error)
}

// PlanRepository provides read-only access to subscription plans.
type PlanRepository interface {
	GetByID(id uint) (*models.SubscriptionPlan, error)
	GetFreePlan() (*models.SubscriptionPlan, error)
	ListVisible() ([]models.SubscriptionPlan, error)
}

// PaymentRepository defines the payment-ledger database operations.
type PaymentRepository interface {
	Create(p *models.Payment) error
	GetByUUID(uuid string) (*models.Payment, error)
	// GetForCallback resolves the payment a webhook notification refers to.
	// Both the internal id and the gateway order id must match.
	GetForCallback(uuid, orderID string) (*models.Payment, error)
	Delete(id uint) error
	SetOrder(id uint, orderID, message string) error
	// Complete flips pending -> completed and records the gateway status and
	// reference. Returns false when the payment was no longer pending.
	Complete(id uint, paymentStatus, reference string, now time.Time) (bool, error)
	// Fail flips pending -> failed. Returns false when no longer pending.
	Fail(id uint, paymentStatus, reference string) (bool, error)
	DeleteStalePending(before time.Time) (int64, error)
}

// BookingRepository defines booking-receipt database operations.
type BookingRepository interface {
	Create(b *models.Booking) error
	// GetOwned returns a booking whose listing belongs to agentID; callers
	// cannot read receipts for listings they do not own.
	GetOwned(id, agentID uint) (*models.Booking, error)
	ListOwned(agentID uint) ([]models.Booking, error)
	MarkRead(id uint) error
}

// SettingsRepository returns the single site-settings row.
type SettingsRepository interface {
	Get() (*models.SiteSettings, error)
}

// AgentDirectory lists agents known to the marketplace. The agent aggregate
// itself lives outside the core; the scheduler only needs ids for the
// free-plan enrollment sweep.
type AgentDirectory interface {
	ListAgentIDs() ([]uint, error)
}

// Store bundles the repositories behind a single unit of work. Transaction
// runs fn against a store bound to one database transaction; state-machine
// operations receive the transactional store as a parameter, so the
// transaction boundary is explicit at every call site.
type Store interface {
	Listings() ListingRepository
	Accounts() AccountRepository
	Plans() PlanRepository
	Payments() PaymentRepository
	Bookings() BookingRepository
	Settings() SettingsRepository
	Agents() AgentDirectory
	Transaction(fn func(Store) error) error
}
