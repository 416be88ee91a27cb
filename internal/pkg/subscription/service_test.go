package subscription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedesh/marketplace/app/models"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/apperr"
)

var testNow = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

func newTestService() *Service {
	return NewServiceWithClock(func() time.Time { return testNow })
}

func seedPremiumPlan(store *repository.MemoryStore) models.SubscriptionPlan {
	return store.SeedPlan(models.SubscriptionPlan{
		Name:         "Premium",
		Price:        decimal.NewFromInt(30000),
		MaxHouses:    20,
		DurationDays: 30,
		IsVisible:    true,
	})
}

func seedFreePlan(store *repository.MemoryStore) models.SubscriptionPlan {
	return store.SeedPlan(models.SubscriptionPlan{
		Name:         "Free",
		Price:        decimal.Zero,
		MaxHouses:    2,
		DurationDays: 30,
		IsFree:       true,
		IsVisible:    true,
	})
}

func TestSubscribe(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	plan := seedPremiumPlan(store)

	account, err := svc.Subscribe(store, 1, &plan)
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.Equal(t, testNow, account.StartDate)
	assert.Equal(t, testNow.AddDate(0, 0, 30), account.EndDate)
}

func TestSubscribeKeepsAtMostOneActive(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	plan := seedPremiumPlan(store)

	first, err := svc.Subscribe(store, 1, &plan)
	require.NoError(t, err)
	second, err := svc.Subscribe(store, 1, &plan)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	active, err := store.Accounts().GetActiveByAgent(1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	count, err := store.Accounts().CountByAgent(1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSubscribeActivatesListings(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	plan := seedPremiumPlan(store)

	l := &models.Listing{AgentID: 1, Kind: models.ListingKindHouse, Status: models.ListingStatusAvailable, IsActiveAccount: false}
	require.NoError(t, store.Listings().Create(l))

	_, err := svc.Subscribe(store, 1, &plan)
	require.NoError(t, err)

	got, err := store.Listings().GetByID(l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActiveAccount)
}

func TestSubscribeRequiresPlan(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()

	_, err := svc.Subscribe(store, 1, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestExpire(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	plan := seedPremiumPlan(store)

	account := &models.Account{
		AgentID:   2,
		PlanID:    plan.ID,
		StartDate: testNow.AddDate(0, 0, -40),
		EndDate:   testNow.AddDate(0, 0, -10),
		IsActive:  true,
	}
	require.NoError(t, store.Accounts().Create(account))
	l := &models.Listing{AgentID: 2, Kind: models.ListingKindRoom, Status: models.ListingStatusAvailable, IsActiveAccount: true}
	require.NoError(t, store.Listings().Create(l))

	expired, err := svc.Expire(store, account)
	require.NoError(t, err)
	assert.True(t, expired)

	active, err := store.Accounts().GetActiveByAgent(2)
	require.NoError(t, err)
	assert.Nil(t, active)

	got, err := store.Listings().GetByID(l.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActiveAccount)

	// Expiring again is a no-op.
	expired, err = svc.Expire(store, account)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestExpireLeavesCurrentAccountsAlone(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	plan := seedPremiumPlan(store)

	account := &models.Account{
		AgentID:   3,
		PlanID:    plan.ID,
		StartDate: testNow,
		EndDate:   testNow.AddDate(0, 0, 30),
		IsActive:  true,
	}
	require.NoError(t, store.Accounts().Create(account))

	expired, err := svc.Expire(store, account)
	require.NoError(t, err)
	assert.False(t, expired)

	active, err := store.Accounts().GetActiveByAgent(3)
	require.NoError(t, err)
	assert.NotNil(t, active)
}

func TestAutoEnrollFree(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	free := seedFreePlan(store)

	created, err := svc.AutoEnrollFree(store, 5)
	require.NoError(t, err)
	assert.True(t, created)

	active, err := store.Accounts().GetActiveByAgent(5)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, free.ID, active.PlanID)
	assert.Equal(t, testNow.AddDate(0, 0, free.DurationDays), active.EndDate)
}

func TestAutoEnrollFreeSkipsAgentsWithHistory(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()
	seedFreePlan(store)
	premium := seedPremiumPlan(store)

	// Even an expired paid account counts as history.
	require.NoError(t, store.Accounts().Create(&models.Account{
		AgentID:   5,
		PlanID:    premium.ID,
		StartDate: testNow.AddDate(0, 0, -60),
		EndDate:   testNow.AddDate(0, 0, -30),
		IsActive:  false,
	}))

	created, err := svc.AutoEnrollFree(store, 5)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := store.Accounts().CountByAgent(5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAutoEnrollFreeWithoutFreePlan(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService()

	_, err := svc.AutoEnrollFree(store, 5)
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
}
