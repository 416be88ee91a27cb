package listing

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/kedesh/marketplace/app/models"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/apperr"
)

// Service implements the listing availability state machine:
//
//	Available -> Booked -> {Rented, Sold} -> Available
//
// plus the orthogonal soft-delete tombstone and account-visibility bit.
// Every operation takes the store it must run on, so callers control the
// transaction boundary.
type Service struct{}

// NewService creates the listing state-machine service.
func NewService() *Service {
	return &Service{}
}

// Reserve transitions Available -> Booked through a compare-and-set. Two
// concurrent reservations on the same unit resolve to exactly one winner; the
// loser observes a precondition failure.
func (s *Service) Reserve(store repository.Store, listingID uint) error {
	ok, err := store.Listings().Reserve(listingID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "reserve listing", err)
	}
	if !ok {
		return apperr.New(apperr.KindPrecondition, "listing is not available for booking")
	}
	return nil
}

// MarkRented transitions Booked -> Rented for the owning agent. A missing
// listing, a wrong owner and a wrong prior state all collapse into the same
// not-found-class failure so existence is not leaked to unauthorized callers.
func (s *Service) MarkRented(store repository.Store, listingID, agentID uint) error {
	return s.transitionOwned(store, listingID, agentID,
		[]string{models.ListingStatusBooked}, models.ListingStatusRented)
}

// MarkSold transitions Booked -> Sold for the owning agent.
func (s *Service) MarkSold(store repository.Store, listingID, agentID uint) error {
	return s.transitionOwned(store, listingID, agentID,
		[]string{models.ListingStatusBooked}, models.ListingStatusSold)
}

// Release re-lists a unit: Booked|Rented|Sold -> Available.
func (s *Service) Release(store repository.Store, listingID, agentID uint) error {
	return s.transitionOwned(store, listingID, agentID,
		[]string{models.ListingStatusBooked, models.ListingStatusRented, models.ListingStatusSold},
		models.ListingStatusAvailable)
}

func (s *Service) transitionOwned(store repository.Store, listingID, agentID uint, from []string, to string) error {
	ok, err := store.Listings().TransitionOwned(listingID, agentID, from, to)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "transition listing", err)
	}
	if !ok {
		return apperr.New(apperr.KindPrecondition, "listing not found")
	}
	return nil
}

// SoftDelete sets the tombstone; independent of the main status machine.
func (s *Service) SoftDelete(store repository.Store, listingID, agentID uint) error {
	ok, err := store.Listings().SetDeleted(listingID, agentID, true)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "soft delete listing", err)
	}
	if !ok {
		return apperr.New(apperr.KindPrecondition, "listing not found")
	}
	return nil
}

// Restore clears the tombstone.
func (s *Service) Restore(store repository.Store, listingID, agentID uint) error {
	ok, err := store.Listings().SetDeleted(listingID, agentID, false)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "restore listing", err)
	}
	if !ok {
		return apperr.New(apperr.KindPrecondition, "listing not found")
	}
	return nil
}

// SyncAccountVisibility flips is_active_account for every listing the agent
// owns. Invoked in the same logical operation as every account activation or
// expiry so listings never stay visible for a dead account.
func (s *Service) SyncAccountVisibility(store repository.Store, agentID uint, active bool) error {
	n, err := store.Listings().SetAccountActiveByAgent(agentID, active)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "sync listing visibility", err)
	}
	if n > 0 {
		log.Infof("[Listing] visibility sync: agent=%d active=%t listings=%d", agentID, active, n)
	}
	return nil
}

// CheckUploadQuota enforces the plan quota before a listing create. The count
// is read fresh on every call and never cached across the request boundary.
func (s *Service) CheckUploadQuota(store repository.Store, agentID uint) error {
	account, err := store.Accounts().GetActiveByAgent(agentID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load account", err)
	}
	if account == nil {
		return apperr.New(apperr.KindPrecondition, "agent has no active account")
	}
	plan := account.Plan
	if plan == nil {
		plan, err = store.Plans().GetByID(account.PlanID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "load plan", err)
		}
	}
	count, err := store.Listings().CountByAgent(agentID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "count listings", err)
	}
	if !account.CanUpload(plan, count) {
		return apperr.New(apperr.KindPrecondition, "listing quota exceeded")
	}
	return nil
}
