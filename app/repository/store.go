package repository

import (
	"sync"

	"gorm.io/gorm"
)

// gormStore binds all repositories to one *gorm.DB handle. Transaction
// rebinds them to the transaction handle for the duration of fn.
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Listings() ListingRepository  { return &listingRepository{db: s.db} }
func (s *gormStore) Accounts() AccountRepository  { return &accountRepository{db: s.db} }
func (s *gormStore) Plans() PlanRepository        { return &planRepository{db: s.db} }
func (s *gormStore) Payments() PaymentRepository  { return &paymentRepository{db: s.db} }
func (s *gormStore) Bookings() BookingRepository  { return &bookingRepository{db: s.db} }
func (s *gormStore) Settings() SettingsRepository { return &settingsRepository{db: s.db} }
func (s *gormStore) Agents() AgentDirectory       { return &agentDirectory{db: s.db} }

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// Factory hands out a singleton Store for the process-wide DB handle.
type Factory struct {
	db    *gorm.DB
	store Store
	once  sync.Once
}

// NewFactory creates a new store factory.
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetStore returns the singleton Store instance.
func (f *Factory) GetStore() Store {
	f.once.Do(func() {
		f.store = NewStore(f.db)
	})
	return f.store
}

var (
	globalFactory   *Factory
	globalFactoryMu sync.Mutex
)

// SetGlobalFactory installs the process-wide factory. Called once at startup.
func SetGlobalFactory(f *Factory) {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	globalFactory = f
}

// GetGlobalFactory returns the process-wide factory.
func GetGlobalFactory() *Factory {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	return globalFactory
}
