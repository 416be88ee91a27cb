package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedesh/marketplace/app/models"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/notify"
	"github.com/kedesh/marketplace/internal/pkg/subscription"
)

var jobNow = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func jobClock() time.Time { return jobNow }

func seedJobPlans(store *repository.MemoryStore) (free, paid models.SubscriptionPlan) {
	free = store.SeedPlan(models.SubscriptionPlan{
		Name:         "Free",
		Price:        decimal.Zero,
		MaxHouses:    2,
		DurationDays: 30,
		IsFree:       true,
	})
	paid = store.SeedPlan(models.SubscriptionPlan{
		Name:         "Premium",
		Price:        decimal.NewFromInt(30000),
		MaxHouses:    20,
		DurationDays: 30,
	})
	return free, paid
}

func TestExpireAccountsJob(t *testing.T) {
	store := repository.NewMemoryStore()
	_, paid := seedJobPlans(store)
	subs := subscription.NewServiceWithClock(jobClock)
	dispatcher := &recordingDispatcher{}

	overdue := &models.Account{
		AgentID:   1,
		PlanID:    paid.ID,
		StartDate: jobNow.AddDate(0, 0, -40),
		EndDate:   jobNow.AddDate(0, 0, -10),
		IsActive:  true,
	}
	require.NoError(t, store.Accounts().Create(overdue))
	current := &models.Account{
		AgentID:   2,
		PlanID:    paid.ID,
		StartDate: jobNow,
		EndDate:   jobNow.AddDate(0, 0, 30),
		IsActive:  true,
	}
	require.NoError(t, store.Accounts().Create(current))

	l := &models.Listing{AgentID: 1, Kind: models.ListingKindHouse, Status: models.ListingStatusAvailable, IsActiveAccount: true}
	require.NoError(t, store.Listings().Create(l))

	job := &ExpireAccountsJob{Store: store, Subs: subs, Dispatcher: dispatcher, ReenrollFree: true, Now: jobClock}
	require.NoError(t, job.Run(context.Background()))

	// The overdue account is closed; re-enrollment is skipped because the
	// agent already has account history.
	active, err := store.Accounts().GetActiveByAgent(1)
	require.NoError(t, err)
	assert.Nil(t, active)

	got, err := store.Listings().GetByID(l.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActiveAccount)

	active, err = store.Accounts().GetActiveByAgent(2)
	require.NoError(t, err)
	assert.NotNil(t, active)

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, notify.KindExpiry, dispatcher.sent[0].Kind)
	assert.Equal(t, "1", dispatcher.sent[0].Data["agent_id"])

	// Second run finds nothing left to expire.
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, dispatcher.sent, 1)
}

func TestAutoEnrollJob(t *testing.T) {
	store := repository.NewMemoryStore()
	free, paid := seedJobPlans(store)
	subs := subscription.NewServiceWithClock(jobClock)

	// Agent 1 is known only through a listing; agent 2 already has history.
	require.NoError(t, store.Listings().Create(&models.Listing{AgentID: 1, Kind: models.ListingKindLand, Status: models.ListingStatusAvailable}))
	require.NoError(t, store.Accounts().Create(&models.Account{
		AgentID:   2,
		PlanID:    paid.ID,
		StartDate: jobNow.AddDate(0, 0, -60),
		EndDate:   jobNow.AddDate(0, 0, -30),
		IsActive:  false,
	}))

	job := &AutoEnrollJob{Store: store, Subs: subs}
	require.NoError(t, job.Run(context.Background()))

	active, err := store.Accounts().GetActiveByAgent(1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, free.ID, active.PlanID)

	active, err = store.Accounts().GetActiveByAgent(2)
	require.NoError(t, err)
	assert.Nil(t, active)

	// Running twice changes nothing.
	require.NoError(t, job.Run(context.Background()))
	count, err := store.Accounts().CountByAgent(1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestActivateListingsJob(t *testing.T) {
	store := repository.NewMemoryStore()
	_, paid := seedJobPlans(store)

	require.NoError(t, store.Accounts().Create(&models.Account{
		AgentID: 1, PlanID: paid.ID, StartDate: jobNow, EndDate: jobNow.AddDate(0, 0, 30), IsActive: true,
	}))
	l := &models.Listing{AgentID: 1, Kind: models.ListingKindHouse, Status: models.ListingStatusAvailable, IsActiveAccount: false}
	require.NoError(t, store.Listings().Create(l))

	job := &ActivateListingsJob{Store: store}
	require.NoError(t, job.Run(context.Background()))

	got, err := store.Listings().GetByID(l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActiveAccount)
}

func TestDeactivateListingsJob(t *testing.T) {
	store := repository.NewMemoryStore()
	_, paid := seedJobPlans(store)

	// Agent 1 has only a dead account; agent 2 renewed so the old dead row
	// must not hide their listings.
	require.NoError(t, store.Accounts().Create(&models.Account{
		AgentID: 1, PlanID: paid.ID, StartDate: jobNow.AddDate(0, 0, -60), EndDate: jobNow.AddDate(0, 0, -30), IsActive: false,
	}))
	require.NoError(t, store.Accounts().Create(&models.Account{
		AgentID: 2, PlanID: paid.ID, StartDate: jobNow.AddDate(0, 0, -60), EndDate: jobNow.AddDate(0, 0, -30), IsActive: false,
	}))
	require.NoError(t, store.Accounts().Create(&models.Account{
		AgentID: 2, PlanID: paid.ID, StartDate: jobNow, EndDate: jobNow.AddDate(0, 0, 30), IsActive: true,
	}))

	hidden := &models.Listing{AgentID: 1, Kind: models.ListingKindHouse, Status: models.ListingStatusAvailable, IsActiveAccount: true}
	require.NoError(t, store.Listings().Create(hidden))
	visible := &models.Listing{AgentID: 2, Kind: models.ListingKindHouse, Status: models.ListingStatusAvailable, IsActiveAccount: true}
	require.NoError(t, store.Listings().Create(visible))

	job := &DeactivateListingsJob{Store: store}
	require.NoError(t, job.Run(context.Background()))

	got, err := store.Listings().GetByID(hidden.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActiveAccount)

	got, err = store.Listings().GetByID(visible.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActiveAccount)
}

type stubPurger struct {
	gotMaxAge time.Duration
}

func (p *stubPurger) PurgeStale(maxAge time.Duration) (int64, error) {
	p.gotMaxAge = maxAge
	return 3, nil
}

func TestPurgeStalePaymentsJob(t *testing.T) {
	purger := &stubPurger{}
	job := &PurgeStalePaymentsJob{Purger: purger}
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 24*time.Hour, purger.gotMaxAge)

	job.MaxAge = 6 * time.Hour
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 6*time.Hour, purger.gotMaxAge)
}

type recordingDispatcher struct {
	sent []notify.Notification
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n notify.Notification) error {
	d.sent = append(d.sent, n)
	return nil
}
