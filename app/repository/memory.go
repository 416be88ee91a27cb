package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/kedesh/marketplace/app/models"
)

// MemoryStore is an in-memory Store with the same conditional-update
// semantics as the GORM implementation. It backs service and engine tests;
// Transaction snapshots all tables and restores them when fn fails, so
// rollback behavior can be asserted without a database.
type MemoryStore struct {
	mu sync.Mutex

	listings map[uint]models.Listing
	accounts map[uint]models.Account
	plans    map[uint]models.SubscriptionPlan
	payments map[uint]models.Payment
	bookings map[uint]models.Booking
	settings *models.SiteSettings

	nextListingID uint
	nextAccountID uint
	nextPlanID    uint
	nextPaymentID uint
	nextBookingID uint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:      make(map[uint]models.Listing),
		accounts:      make(map[uint]models.Account),
		plans:         make(map[uint]models.SubscriptionPlan),
		payments:      make(map[uint]models.Payment),
		bookings:      make(map[uint]models.Booking),
		nextListingID: 1,
		nextAccountID: 1,
		nextPlanID:    1,
		nextPaymentID: 1,
		nextBookingID: 1,
	}
}

func (s *MemoryStore) Listings() ListingRepository  { return (*memListings)(s) }
func (s *MemoryStore) Accounts() AccountRepository  { return (*memAccounts)(s) }
func (s *MemoryStore) Plans() PlanRepository        { return (*memPlans)(s) }
func (s *MemoryStore) Payments() PaymentRepository  { return (*memPayments)(s) }
func (s *MemoryStore) Bookings() BookingRepository  { return (*memBookings)(s) }
func (s *MemoryStore) Settings() SettingsRepository { return (*memSettings)(s) }
func (s *MemoryStore) Agents() AgentDirectory       { return (*memAgents)(s) }

type snapshot struct {
	listings map[uint]models.Listing
	accounts map[uint]models.Account
	plans    map[uint]models.SubscriptionPlan
	payments map[uint]models.Payment
	bookings map[uint]models.Booking
	settings *models.SiteSettings
}

func (s *MemoryStore) Transaction(fn func(Store) error) error {
	s.mu.Lock()
	snap := snapshot{
		listings: copyMap(s.listings),
		accounts: copyMap(s.accounts),
		plans:    copyMap(s.plans),
		payments: copyMap(s.payments),
		bookings: copyMap(s.bookings),
		settings: s.settings,
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.listings = snap.listings
		s.accounts = snap.accounts
		s.plans = snap.plans
		s.payments = snap.payments
		s.bookings = snap.bookings
		s.settings = snap.settings
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[V any](in map[uint]V) map[uint]V {
	out := make(map[uint]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// SeedPlan inserts a plan and returns it with its assigned id.
func (s *MemoryStore) SeedPlan(plan models.SubscriptionPlan) models.SubscriptionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if plan.ID == 0 {
		plan.ID = s.nextPlanID
		s.nextPlanID++
	}
	s.plans[plan.ID] = plan
	return plan
}

// SeedSettings installs the site-settings row.
func (s *MemoryStore) SeedSettings(settings models.SiteSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
}

type memListings MemoryStore

func (r *memListings) Create(l *models.Listing) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.nextListingID
		s.nextListingID++
	}
	s.listings[l.ID] = *l
	return nil
}

func (r *memListings) GetByID(id uint) (*models.Listing, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *memListings) CountByAgent(agentID uint) (int64, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, l := range s.listings {
		if l.AgentID == agentID && !l.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *memListings) Reserve(id uint) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || !l.Bookable() {
		return false, nil
	}
	l.Status = models.ListingStatusBooked
	s.listings[id] = l
	return true, nil
}

func (r *memListings) TransitionOwned(id, agentID uint, from []string, to string) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || l.AgentID != agentID || l.IsDeleted {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if l.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	l.Status = to
	s.listings[id] = l
	return true, nil
}

func (r *memListings) SetDeleted(id, agentID uint, deleted bool) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || l.AgentID != agentID || l.IsDeleted == deleted {
		return false, nil
	}
	l.IsDeleted = deleted
	s.listings[id] = l
	return true, nil
}

func (r *memListings) SetAccountActiveByAgent(agentID uint, active bool) (int64, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, l := range s.listings {
		if l.AgentID == agentID && l.IsActiveAccount != active {
			l.IsActiveAccount = active
			s.listings[id] = l
			n++
		}
	}
	return n, nil
}

type memAccounts MemoryStore

func (r *memAccounts) Create(a *models.Account) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextAccountID
		s.nextAccountID++
	}
	stored := *a
	stored.Plan = nil
	s.accounts[a.ID] = stored
	return nil
}

func (r *memAccounts) CreateIfAbsent(a *models.Account) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.AgentID == a.AgentID {
			return false, nil
		}
	}
	if a.ID == 0 {
		a.ID = s.nextAccountID
		s.nextAccountID++
	}
	stored := *a
	stored.Plan = nil
	s.accounts[a.ID] = stored
	return true, nil
}

func (r *memAccounts) GetActiveByAgent(agentID uint) (*models.Account, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.AgentID == agentID && a.IsActive {
			account := a
			if plan, ok := s.plans[a.PlanID]; ok {
				p := plan
				account.Plan = &p
			}
			return &account, nil
		}
	}
	return nil, nil
}

func (r *memAccounts) CountByAgent(agentID uint) (int64, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, a := range s.accounts {
		if a.AgentID == agentID {
			count++
		}
	}
	return count, nil
}

func (r *memAccounts) DeactivateActiveByAgent(agentID uint) (int64, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.accounts {
		if a.AgentID == agentID && a.IsActive {
			a.IsActive = false
			s.accounts[id] = a
			n++
		}
	}
	return n, nil
}

func (r *memAccounts) Expire(id uint, now time.Time) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || !a.IsActive || a.EndDate.After(now) {
		return false, nil
	}
	a.IsActive = false
	s.accounts[id] = a
	return true, nil
}

func (r *memAccounts) ListExpired(now time.Time) ([]models.Account, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Account
	for _, a := range s.accounts {
		if a.IsActive && !a.EndDate.After(now) {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (r *memAccounts) ListActive() ([]models.Account, error) {
	return r.list(func(a models.Account) bool { return a.IsActive })
}

func (r *memAccounts) ListInactive() ([]models.Account, error) {
	return r.list(func(a models.Account) bool { return !a.IsActive })
}

func (r *memAccounts) list(keep func(models.Account) bool) ([]models.Account, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Account
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

func sortAccounts(accounts []models.Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}

type memPlans MemoryStore

func (r *memPlans) GetByID(id uint) (*models.SubscriptionPlan, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPlans) GetFreePlan() (*models.SubscriptionPlan, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.SubscriptionPlan
	for id := range s.plans {
		p := s.plans[id]
		if p.IsFree && (best == nil || p.ID < best.ID) {
			best = &p
		}
	}
	return best, nil
}

func (r *memPlans) ListVisible() ([]models.SubscriptionPlan, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SubscriptionPlan
	for _, p := range s.plans {
		if p.IsVisible {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

type memPayments MemoryStore

func (r *memPayments) Create(p *models.Payment) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextPaymentID
		s.nextPaymentID++
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now()
	}
	s.payments[p.ID] = *p
	return nil
}

func (r *memPayments) GetByUUID(uuid string) (*models.Payment, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.UUID == uuid {
			payment := p
			return &payment, nil
		}
	}
	return nil, nil
}

func (r *memPayments) GetForCallback(uuid, orderID string) (*models.Payment, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.UUID == uuid && p.OrderID == orderID {
			payment := p
			return &payment, nil
		}
	}
	return nil, nil
}

func (r *memPayments) Delete(id uint) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payments, id)
	return nil
}

func (r *memPayments) SetOrder(id uint, orderID, message string) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil
	}
	p.OrderID = orderID
	p.Message = message
	s.payments[id] = p
	return nil
}

func (r *memPayments) Complete(id uint, paymentStatus, reference string, now time.Time) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusCompleted
	p.PaymentStatus = paymentStatus
	p.Reference = reference
	p.IsConsumed = true
	p.ConsumedAt = &now
	s.payments[id] = p
	return true, nil
}

func (r *memPayments) Fail(id uint, paymentStatus, reference string) (bool, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusFailed
	p.PaymentStatus = paymentStatus
	p.Reference = reference
	s.payments[id] = p
	return true, nil
}

func (r *memPayments) DeleteStalePending(before time.Time) (int64, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.payments {
		if p.Status == models.PaymentStatusPending && p.PaymentDate.Before(before) {
			delete(s.payments, id)
			n++
		}
	}
	return n, nil
}

type memBookings MemoryStore

func (r *memBookings) Create(b *models.Booking) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.nextBookingID
		s.nextBookingID++
	}
	stored := *b
	stored.Listing = nil
	s.bookings[b.ID] = stored
	return nil
}

func (r *memBookings) GetOwned(id, agentID uint) (*models.Booking, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	l, ok := s.listings[b.ListingID]
	if !ok || l.AgentID != agentID {
		return nil, nil
	}
	booking := b
	listing := l
	booking.Listing = &listing
	return &booking, nil
}

func (r *memBookings) ListOwned(agentID uint) ([]models.Booking, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if l, ok := s.listings[b.ListingID]; ok && l.AgentID == agentID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memBookings) MarkRead(id uint) error {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	b.HasOwnerRead = true
	s.bookings[id] = b
	return nil
}

type memSettings MemoryStore

func (r *memSettings) Get() (*models.SiteSettings, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil, nil
	}
	settings := *s.settings
	return &settings, nil
}

type memAgents MemoryStore

func (r *memAgents) ListAgentIDs() ([]uint, error) {
	s := (*MemoryStore)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uint]struct{})
	for _, l := range s.listings {
		seen[l.AgentID] = struct{}{}
	}
	for _, a := range s.accounts {
		seen[a.AgentID] = struct{}{}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
