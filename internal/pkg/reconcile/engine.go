package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kedesh/marketplace/app/models"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/apperr"
	"github.com/kedesh/marketplace/internal/pkg/gateway"
	"github.com/kedesh/marketplace/internal/pkg/listing"
	"github.com/kedesh/marketplace/internal/pkg/notify"
	"github.com/kedesh/marketplace/internal/pkg/subscription"
)

// GatewayClient is the outbound provider surface the engine depends on.
type GatewayClient interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderResponse, error)
	QueryOrderStatus(ctx context.Context, orderID string) (*gateway.OrderStatus, error)
}

// Engine orchestrates the booking-and-payment reconciliation flow: intent
// creation, gateway submission, webhook cross-check, atomic state transition
// and notification dispatch.
type Engine struct {
	store      repository.Store
	gw         GatewayClient
	listings   *listing.Service
	subs       *subscription.Service
	dispatcher notify.Dispatcher
	validate   *validator.Validate
	now        func() time.Time
}

// NewEngine wires the reconciliation engine.
func NewEngine(store repository.Store, gw GatewayClient, listings *listing.Service, subs *subscription.Service, dispatcher notify.Dispatcher) *Engine {
	return &Engine{
		store:      store,
		gw:         gw,
		listings:   listings,
		subs:       subs,
		dispatcher: dispatcher,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// BookingIntentInput is a customer's request to book a listing.
type BookingIntentInput struct {
	ListingID     uint   `json:"listing_id" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required,min=2,max=150"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email,max=200"`
	CustomerPhone string `json:"customer_phone" validate:"required,min=9,max=15"`
}

// SubscriptionIntentInput is an agent's request to pay for a plan.
type SubscriptionIntentInput struct {
	AgentID    uint   `json:"agent_id" validate:"required"`
	PlanID     uint   `json:"plan_id" validate:"required"`
	AgentName  string `json:"agent_name" validate:"required,min=2,max=150"`
	AgentEmail string `json:"agent_email" validate:"omitempty,email,max=200"`
	Phone      string `json:"phone" validate:"required,min=9,max=15"`
}

// IntentAck is the caller-visible acknowledgment of an intent. Status is
// "pending" for gateway-backed payments ("will be confirmed asynchronously")
// and "completed" for the free-plan short circuit.
type IntentAck struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// WebhookNotification is the inbound callback from the gateway. It is treated
// as a hint, never as truth: everything it claims is re-verified against the
// gateway's order-status endpoint before any state changes.
type WebhookNotification struct {
	OrderID       string          `json:"order_id"`
	PaymentStatus string          `json:"payment_status"`
	Reference     string          `json:"reference"`
	Metadata      WebhookMetadata `json:"metadata"`
}

// WebhookMetadata echoes the fields the engine attached at order creation.
type WebhookMetadata struct {
	PaymentID     string `json:"payment_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// WebhookResult reports how a notification was handled.
type WebhookResult struct {
	Replay bool `json:"replay"`
}

// CreateBookingIntent validates the listing precondition, writes a pending
// payment, submits the order to the gateway and returns a pending ack. The
// payment row exists before any network call so a crash mid-call still leaves
// a recoverable trace for the purge job.
func (e *Engine) CreateBookingIntent(ctx context.Context, in BookingIntentInput) (*IntentAck, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid booking request", err)
	}

	l, err := e.store.Listings().GetByID(in.ListingID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load listing", err)
	}
	if l == nil || !l.Bookable() {
		return nil, apperr.New(apperr.KindPrecondition, "listing is not available for booking")
	}

	settings, err := e.store.Settings().Get()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load site settings", err)
	}
	if settings == nil {
		return nil, apperr.New(apperr.KindInternal, "site settings are not configured")
	}

	listingID := l.ID
	payment := &models.Payment{
		UUID:        uuid.NewString(),
		Amount:      settings.BookingFee,
		ListingID:   &listingID,
		PhoneNumber: in.CustomerPhone,
		PaymentType: models.PaymentTypeBooking,
		Status:      models.PaymentStatusPending,
	}
	if err := e.store.Payments().Create(payment); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create payment", err)
	}

	return e.submitToGateway(ctx, payment, gateway.OrderRequest{
		BuyerEmail: in.CustomerEmail,
		BuyerName:  in.CustomerName,
		BuyerPhone: in.CustomerPhone,
		Amount:     payment.Amount,
		PaymentID:  payment.UUID,
	})
}

// CreateSubscriptionIntent validates the plan, writes a pending payment and
// submits it to the gateway. Free plans skip the gateway entirely and
// subscribe on the spot.
func (e *Engine) CreateSubscriptionIntent(ctx context.Context, in SubscriptionIntentInput) (*IntentAck, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid subscription request", err)
	}

	plan, err := e.store.Plans().GetByID(in.PlanID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load plan", err)
	}
	if plan == nil {
		return nil, apperr.New(apperr.KindValidation, "unknown subscription plan")
	}

	if plan.IsFree {
		if _, err := e.subs.Subscribe(e.store, in.AgentID, plan); err != nil {
			return nil, err
		}
		return &IntentAck{Status: models.PaymentStatusCompleted, Message: "free plan activated"}, nil
	}

	agentID := in.AgentID
	planID := plan.ID
	payment := &models.Payment{
		UUID:        uuid.NewString(),
		Amount:      plan.Price,
		AgentID:     &agentID,
		PlanID:      &planID,
		PhoneNumber: in.Phone,
		PaymentType: models.PaymentTypeAccount,
		Status:      models.PaymentStatusPending,
	}
	if err := e.store.Payments().Create(payment); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create payment", err)
	}

	return e.submitToGateway(ctx, payment, gateway.OrderRequest{
		BuyerEmail: in.AgentEmail,
		BuyerName:  in.AgentName,
		BuyerPhone: in.Phone,
		Amount:     payment.Amount,
		PaymentID:  payment.UUID,
	})
}

// submitToGateway sends the order. Any gateway failure deletes the pending
// payment: no customer-visible artifact exists yet, so the ledger stays free
// of noise and the caller can simply retry the whole intent.
func (e *Engine) submitToGateway(ctx context.Context, payment *models.Payment, req gateway.OrderRequest) (*IntentAck, error) {
	resp, err := e.gw.CreateOrder(ctx, req)
	if err != nil {
		if delErr := e.store.Payments().Delete(payment.ID); delErr != nil {
			log.Errorf("[Reconcile] failed to delete payment %s after gateway error: %v", payment.UUID, delErr)
		}
		switch {
		case errors.Is(err, gateway.ErrOrderRejected):
			return nil, apperr.Wrap(apperr.KindGatewayRejected, "gateway rejected the order", err)
		case errors.Is(err, gateway.ErrUnavailable):
			return nil, apperr.Wrap(apperr.KindGatewayTransient, "gateway unavailable", err)
		default:
			return nil, apperr.Wrap(apperr.KindInternal, "gateway call failed", err)
		}
	}

	if err := e.store.Payments().SetOrder(payment.ID, resp.OrderID, resp.Message); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "record gateway order", err)
	}

	log.Infof("[Reconcile] payment=%s submitted, order=%s", payment.UUID, resp.OrderID)
	return &IntentAck{
		PaymentID: payment.UUID,
		OrderID:   resp.OrderID,
		Status:    models.PaymentStatusPending,
		Message:   resp.Message,
	}, nil
}

// ReconcileWebhook processes an inbound gateway notification. The claim is
// cross-checked against the gateway's own order-status endpoint: the queried
// status must match the claimed status, and the queried amount must equal the
// recorded amount to the cent. Only then does the pending payment flip
// completed, together with its purpose-specific side effect, in one
// transaction. Replays of terminal payments are no-op successes.
func (e *Engine) ReconcileWebhook(ctx context.Context, n WebhookNotification) (*WebhookResult, error) {
	orderID := strings.TrimSpace(n.OrderID)
	paymentID := strings.TrimSpace(n.Metadata.PaymentID)
	if orderID == "" || paymentID == "" {
		return nil, apperr.New(apperr.KindValidation, "order_id and metadata.payment_id are required")
	}

	payment, err := e.store.Payments().GetForCallback(paymentID, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load payment", err)
	}
	if payment == nil {
		return nil, apperr.New(apperr.KindValidation, "no payment matches the notification")
	}
	if payment.Terminal() {
		log.Infof("[Reconcile] duplicate webhook for terminal payment=%s, replay", payment.UUID)
		return &WebhookResult{Replay: true}, nil
	}

	status, err := e.gw.QueryOrderStatus(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGatewayTransient, "order status query failed", err)
	}
	if !strings.EqualFold(status.PaymentStatus, n.PaymentStatus) {
		return nil, apperr.New(apperr.KindReconciliationMismatch, "gateway status disagrees with notification")
	}

	switch strings.ToUpper(strings.TrimSpace(n.PaymentStatus)) {
	case "COMPLETED":
		return e.applyCompletion(ctx, payment, n, status.Amount)
	case "FAILED":
		if _, err := e.store.Payments().Fail(payment.ID, n.PaymentStatus, n.Reference); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "mark payment failed", err)
		}
		log.Infof("[Reconcile] payment=%s marked failed", payment.UUID)
		return &WebhookResult{}, nil
	default:
		// Non-terminal gateway states carry nothing to apply; acknowledge so
		// the gateway stops retrying.
		log.Warnf("[Reconcile] ignoring webhook with status %q for payment=%s", n.PaymentStatus, payment.UUID)
		return &WebhookResult{}, nil
	}
}

func (e *Engine) applyCompletion(ctx context.Context, payment *models.Payment, n WebhookNotification, queriedAmount decimal.Decimal) (*WebhookResult, error) {
	if !queriedAmount.Equal(payment.Amount) {
		return nil, apperr.New(apperr.KindReconciliationMismatch, "gateway amount disagrees with recorded payment")
	}

	replay := false
	var notification *notify.Notification

	err := e.store.Transaction(func(tx repository.Store) error {
		ok, err := tx.Payments().Complete(payment.ID, n.PaymentStatus, n.Reference, e.now())
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent duplicate won the CAS; nothing left to apply.
			replay = true
			return nil
		}

		switch payment.PaymentType {
		case models.PaymentTypeBooking:
			notification, err = e.completeBooking(tx, payment, n)
		case models.PaymentTypeAccount:
			notification, err = e.completeSubscription(tx, payment)
		default:
			err = apperr.New(apperr.KindInternal, "payment has unknown type")
		}
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, apperr.Wrap(apperr.KindInternal, "apply payment completion", err)
		}
		return nil, err
	}

	if replay {
		return &WebhookResult{Replay: true}, nil
	}

	// Dispatch after commit: a notification failure must never roll back a
	// paid transition. The queue retries delivery independently.
	if notification != nil {
		if err := e.dispatcher.Dispatch(ctx, *notification); err != nil {
			log.Errorf("[Reconcile] notification dispatch failed for payment=%s: %v", payment.UUID, err)
		}
	}

	log.Infof("[Reconcile] payment=%s completed (order=%s)", payment.UUID, n.OrderID)
	return &WebhookResult{}, nil
}

func (e *Engine) completeBooking(tx repository.Store, payment *models.Payment, n WebhookNotification) (*notify.Notification, error) {
	if payment.ListingID == nil {
		return nil, apperr.New(apperr.KindInternal, "booking payment has no listing")
	}
	if err := e.listings.Reserve(tx, *payment.ListingID); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UUID:          uuid.NewString(),
		ListingID:     *payment.ListingID,
		CustomerName:  n.Metadata.CustomerName,
		CustomerEmail: n.Metadata.CustomerEmail,
		CustomerPhone: payment.PhoneNumber,
		BookingFee:    payment.Amount,
	}
	if err := tx.Bookings().Create(booking); err != nil {
		return nil, err
	}

	return &notify.Notification{
		Kind:           notify.KindBooking,
		RecipientPhone: payment.PhoneNumber,
		Data: map[string]string{
			"booking_id": booking.UUID,
			"reference":  n.Reference,
			"amount":     payment.Amount.StringFixed(2),
		},
	}, nil
}

func (e *Engine) completeSubscription(tx repository.Store, payment *models.Payment) (*notify.Notification, error) {
	if payment.AgentID == nil || payment.PlanID == nil {
		return nil, apperr.New(apperr.KindInternal, "account payment has no agent or plan")
	}
	plan, err := tx.Plans().GetByID(*payment.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperr.New(apperr.KindInternal, "paid plan no longer exists")
	}
	account, err := e.subs.Subscribe(tx, *payment.AgentID, plan)
	if err != nil {
		return nil, err
	}

	return &notify.Notification{
		Kind:           notify.KindSubscription,
		RecipientPhone: payment.PhoneNumber,
		Data: map[string]string{
			"plan":     plan.Name,
			"end_date": account.EndDate.Format(time.RFC3339),
			"amount":   payment.Amount.StringFixed(2),
		},
	}, nil
}

// PurgeStale deletes pending payments older than maxAge. These are abandoned
// checkouts, not failures, so deletion keeps the ledger free of noise.
func (e *Engine) PurgeStale(maxAge time.Duration) (int64, error) {
	n, err := e.store.Payments().DeleteStalePending(e.now().Add(-maxAge))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "purge stale payments", err)
	}
	if n > 0 {
		log.Infof("[Reconcile] purged %d stale pending payments", n)
	}
	return n, nil
}
