package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/notify"
	"github.com/kedesh/marketplace/internal/pkg/subscription"
)

// Job is one idempotent maintenance task. Run must be safe to invoke
// concurrently with itself and to skip a cycle: every effect is guarded by a
// conditional write, so a second overlapping run observes no double effects.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ExpireAccountsJob deactivates accounts past their validity window. Every
// expiry cascades to a listing visibility sync inside the same transaction;
// optionally the agent is re-enrolled onto the free plan afterwards.
type ExpireAccountsJob struct {
	Store        repository.Store
	Subs         *subscription.Service
	Dispatcher   notify.Dispatcher
	ReenrollFree bool
	Now          func() time.Time
}

func (j *ExpireAccountsJob) Name() string { return "expire-accounts" }

func (j *ExpireAccountsJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	accounts, err := j.Store.Accounts().ListExpired(now())
	if err != nil {
		return err
	}

	expired := 0
	for i := range accounts {
		account := accounts[i]
		ok, err := j.Subs.Expire(j.Store, &account)
		if err != nil {
			log.Errorf("[Scheduler] expiring account %d failed: %v", account.ID, err)
			continue
		}
		if !ok {
			continue
		}
		expired++

		if j.ReenrollFree {
			if _, err := j.Subs.AutoEnrollFree(j.Store, account.AgentID); err != nil {
				log.Errorf("[Scheduler] free re-enrollment for agent %d failed: %v", account.AgentID, err)
			}
		}
		if j.Dispatcher != nil {
			n := notify.Notification{
				Kind:           notify.KindExpiry,
				RecipientPhone: "",
				Data: map[string]string{
					"agent_id": itoa(account.AgentID),
					"end_date": account.EndDate.Format(time.RFC3339),
				},
			}
			if err := j.Dispatcher.Dispatch(ctx, n); err != nil {
				log.Errorf("[Scheduler] expiry notification for agent %d failed: %v", account.AgentID, err)
			}
		}
	}

	if expired > 0 {
		log.Infof("[Scheduler] expired %d accounts", expired)
	}
	return nil
}

// AutoEnrollJob places agents with no account history onto the free plan.
// The insert-if-absent guard in AutoEnrollFree makes the job safe against a
// concurrently running expire job or an organic subscribe.
type AutoEnrollJob struct {
	Store repository.Store
	Subs  *subscription.Service
}

func (j *AutoEnrollJob) Name() string { return "auto-enroll-free" }

func (j *AutoEnrollJob) Run(ctx context.Context) error {
	agentIDs, err := j.Store.Agents().ListAgentIDs()
	if err != nil {
		return err
	}

	enrolled := 0
	for _, agentID := range agentIDs {
		count, err := j.Store.Accounts().CountByAgent(agentID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		created, err := j.Subs.AutoEnrollFree(j.Store, agentID)
		if err != nil {
			log.Errorf("[Scheduler] auto-enrolling agent %d failed: %v", agentID, err)
			continue
		}
		if created {
			enrolled++
		}
	}

	if enrolled > 0 {
		log.Infof("[Scheduler] auto-enrolled %d agents onto the free plan", enrolled)
	}
	return nil
}

// ActivateListingsJob re-activates listings owned by agents whose account is
// active. It covers accounts activated outside the expire/subscribe paths,
// e.g. manual admin action.
type ActivateListingsJob struct {
	Store repository.Store
}

func (j *ActivateListingsJob) Name() string { return "activate-listings" }

func (j *ActivateListingsJob) Run(ctx context.Context) error {
	accounts, err := j.Store.Accounts().ListActive()
	if err != nil {
		return err
	}
	for i := range accounts {
		if _, err := j.Store.Listings().SetAccountActiveByAgent(accounts[i].AgentID, true); err != nil {
			log.Errorf("[Scheduler] activating listings for agent %d failed: %v", accounts[i].AgentID, err)
		}
	}
	return nil
}

// DeactivateListingsJob hides listings owned by agents whose latest account
// is inactive and who have no active account.
type DeactivateListingsJob struct {
	Store repository.Store
}

func (j *DeactivateListingsJob) Name() string { return "deactivate-listings" }

func (j *DeactivateListingsJob) Run(ctx context.Context) error {
	accounts, err := j.Store.Accounts().ListInactive()
	if err != nil {
		return err
	}
	for i := range accounts {
		agentID := accounts[i].AgentID
		// An agent with a newer active account keeps their listings visible.
		active, err := j.Store.Accounts().GetActiveByAgent(agentID)
		if err != nil {
			log.Errorf("[Scheduler] loading active account for agent %d failed: %v", agentID, err)
			continue
		}
		if active != nil {
			continue
		}
		if _, err := j.Store.Listings().SetAccountActiveByAgent(agentID, false); err != nil {
			log.Errorf("[Scheduler] deactivating listings for agent %d failed: %v", agentID, err)
		}
	}
	return nil
}

// PaymentPurger deletes stale pending payments; implemented by the
// reconciliation engine.
type PaymentPurger interface {
	PurgeStale(maxAge time.Duration) (int64, error)
}

// PurgeStalePaymentsJob removes pending payments that never got a gateway
// confirmation within MaxAge.
type PurgeStalePaymentsJob struct {
	Purger PaymentPurger
	MaxAge time.Duration
}

func (j *PurgeStalePaymentsJob) Name() string { return "purge-stale-payments" }

func (j *PurgeStalePaymentsJob) Run(ctx context.Context) error {
	maxAge := j.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	_, err := j.Purger.PurgeStale(maxAge)
	return err
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
