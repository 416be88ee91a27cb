package subscription

import (
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/kedesh/marketplace/app/models"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/apperr"
)

// Service implements the account subscription lifecycle. An account instance
// only ever moves Active -> Expired; renewal inserts a fresh instance and
// deactivates the old one, never rewriting history.
type Service struct {
	now func() time.Time
}

// NewService creates the subscription lifecycle service.
func NewService() *Service {
	return &Service{now: time.Now}
}

// NewServiceWithClock creates a service with an injected clock, for tests.
func NewServiceWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// Subscribe atomically deactivates the agent's current active account (if
// any) and inserts a fresh one running plan.DurationDays from now, then syncs
// listing visibility. The store passed in must already be transactional when
// the caller needs the subscribe coupled to other writes.
func (s *Service) Subscribe(store repository.Store, agentID uint, plan *models.SubscriptionPlan) (*models.Account, error) {
	if plan == nil {
		return nil, apperr.New(apperr.KindValidation, "subscription plan is required")
	}

	now := s.now()
	account := &models.Account{
		AgentID:   agentID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		IsActive:  true,
	}

	err := store.Transaction(func(tx repository.Store) error {
		if _, err := tx.Accounts().DeactivateActiveByAgent(agentID); err != nil {
			return err
		}
		if err := tx.Accounts().Create(account); err != nil {
			return err
		}
		// Visibility sync belongs to the same logical operation: a paid agent
		// must surface immediately.
		if _, err := tx.Listings().SetAccountActiveByAgent(agentID, true); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "subscribe agent", err)
	}

	log.Infof("[Subscription] agent=%d subscribed to plan=%q until %s", agentID, plan.Name, account.EndDate.Format(time.RFC3339))
	return account, nil
}

// Expire flips an active, past-due account inactive and deactivates the
// agent's listings. Idempotent: expiring an already-expired account reports
// false and touches nothing.
func (s *Service) Expire(store repository.Store, account *models.Account) (bool, error) {
	if account == nil {
		return false, apperr.New(apperr.KindValidation, "account is required")
	}

	expired := false
	err := store.Transaction(func(tx repository.Store) error {
		ok, err := tx.Accounts().Expire(account.ID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		expired = true
		_, err = tx.Listings().SetAccountActiveByAgent(account.AgentID, false)
		return err
	})
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "expire account", err)
	}
	if expired {
		log.Infof("[Subscription] account=%d agent=%d expired", account.ID, account.AgentID)
	}
	return expired, nil
}

// AutoEnrollFree places an agent with no account history onto the free plan.
// The insert-if-absent guard makes the operation safe against a concurrent
// organic subscribe: whichever write lands first wins, the other is a no-op.
func (s *Service) AutoEnrollFree(store repository.Store, agentID uint) (bool, error) {
	plan, err := store.Plans().GetFreePlan()
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "load free plan", err)
	}
	if plan == nil {
		return false, apperr.New(apperr.KindPrecondition, "no free plan configured")
	}

	now := s.now()
	account := &models.Account{
		AgentID:   agentID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		IsActive:  true,
	}

	created, err := store.Accounts().CreateIfAbsent(account)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "auto-enroll agent", err)
	}
	if created {
		if _, err := store.Listings().SetAccountActiveByAgent(agentID, true); err != nil {
			return created, apperr.Wrap(apperr.KindInternal, "sync listing visibility", err)
		}
		log.Infof("[Subscription] agent=%d auto-enrolled onto free plan %q", agentID, plan.Name)
	}
	return created, nil
}
