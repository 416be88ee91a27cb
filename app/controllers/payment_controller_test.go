package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedesh/marketplace/app/models"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/gateway"
	"github.com/kedesh/marketplace/internal/pkg/listing"
	"github.com/kedesh/marketplace/internal/pkg/notify"
	"github.com/kedesh/marketplace/internal/pkg/reconcile"
	"github.com/kedesh/marketplace/internal/pkg/scheduler"
	"github.com/kedesh/marketplace/internal/pkg/subscription"
)

type stubGateway struct {
	status *gateway.OrderStatus
}

func (g *stubGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderResponse, error) {
	return &gateway.OrderResponse{Status: "success", OrderID: "ORD-1", Message: "order created"}, nil
}

func (g *stubGateway) QueryOrderStatus(ctx context.Context, orderID string) (*gateway.OrderStatus, error) {
	return g.status, nil
}

type testApp struct {
	app   *fiber.App
	store *repository.MemoryStore
	gw    *stubGateway
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := repository.NewMemoryStore()
	store.SeedSettings(models.SiteSettings{
		SupportPhone: "0700000000",
		SupportEmail: "support@example.com",
		BookingFee:   decimal.NewFromInt(3000),
	})

	gw := &stubGateway{}
	engine := reconcile.NewEngine(store, gw, listing.NewService(), subscription.NewService(), notify.LogDispatcher{})

	sched := scheduler.New()
	Setup(Deps{Store: store, Engine: engine, Scheduler: sched})

	app := fiber.New()
	payments := app.Group("/api/v1/payments")
	payments.Post("/booking", HandleCreateBookingPayment)
	payments.Post("/subscription", HandleCreateSubscriptionPayment)
	payments.Post("/webhook", HandlePaymentWebhook)
	app.Get("/api/v1/bookings", HandleListBookings)
	app.Get("/api/v1/bookings/:id", HandleGetBooking)
	app.Get("/api/v1/plans", HandleListPlans)

	return &testApp{app: app, store: store, gw: gw}
}

func (ta *testApp) seedBookableListing(t *testing.T, agentID uint) *models.Listing {
	t.Helper()
	l := &models.Listing{
		AgentID:         agentID,
		Kind:            models.ListingKindHouse,
		Category:        models.ListingCategoryRental,
		Price:           decimal.NewFromInt(450000),
		Status:          models.ListingStatusAvailable,
		IsActiveAccount: true,
	}
	require.NoError(t, ta.store.Listings().Create(l))
	return l
}

func (ta *testApp) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCreateBookingPaymentEndpoint(t *testing.T) {
	ta := newTestApp(t)
	l := ta.seedBookableListing(t, 1)

	resp := ta.postJSON(t, "/api/v1/payments/booking", reconcile.BookingIntentInput{
		ListingID:     l.ID,
		CustomerName:  "Jane Tenant",
		CustomerPhone: "0712345678",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, models.PaymentStatusPending, body["status"])
	assert.Equal(t, "ORD-1", body["order_id"])
	assert.NotEmpty(t, body["payment_id"])
}

func TestCreateBookingPaymentEndpointRejectsBadInput(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/booking", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Valid JSON, missing phone.
	resp = ta.postJSON(t, "/api/v1/payments/booking", reconcile.BookingIntentInput{
		ListingID:    1,
		CustomerName: "Jane Tenant",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateBookingPaymentEndpointUnavailableListing(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.postJSON(t, "/api/v1/payments/booking", reconcile.BookingIntentInput{
		ListingID:     42,
		CustomerName:  "Jane Tenant",
		CustomerPhone: "0712345678",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	ta := newTestApp(t)
	l := ta.seedBookableListing(t, 1)

	resp := ta.postJSON(t, "/api/v1/payments/booking", reconcile.BookingIntentInput{
		ListingID:     l.ID,
		CustomerName:  "Jane Tenant",
		CustomerPhone: "0712345678",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	paymentID := decodeBody(t, resp)["payment_id"].(string)

	ta.gw.status = &gateway.OrderStatus{Status: "success", Amount: decimal.NewFromInt(3000), PaymentStatus: "COMPLETED"}
	webhook := reconcile.WebhookNotification{
		OrderID:       "ORD-1",
		PaymentStatus: "COMPLETED",
		Reference:     "REF-1",
		Metadata:      reconcile.WebhookMetadata{PaymentID: paymentID, CustomerName: "Jane Tenant"},
	}

	resp = ta.postJSON(t, "/api/v1/payments/webhook", webhook)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["replay"])

	// Redelivery of the same notification is acknowledged as a replay.
	resp = ta.postJSON(t, "/api/v1/payments/webhook", webhook)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["replay"])

	got, err := ta.store.Listings().GetByID(l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusBooked, got.Status)
}

func TestPaymentWebhookEndpointRejectsMismatch(t *testing.T) {
	ta := newTestApp(t)
	l := ta.seedBookableListing(t, 1)

	resp := ta.postJSON(t, "/api/v1/payments/booking", reconcile.BookingIntentInput{
		ListingID:     l.ID,
		CustomerName:  "Jane Tenant",
		CustomerPhone: "0712345678",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	paymentID := decodeBody(t, resp)["payment_id"].(string)

	// The gateway reports a different amount than the ledger recorded.
	ta.gw.status = &gateway.OrderStatus{Status: "success", Amount: decimal.NewFromInt(5000), PaymentStatus: "COMPLETED"}
	resp = ta.postJSON(t, "/api/v1/payments/webhook", reconcile.WebhookNotification{
		OrderID:       "ORD-1",
		PaymentStatus: "COMPLETED",
		Metadata:      reconcile.WebhookMetadata{PaymentID: paymentID},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPaymentWebhookEndpointRejectsUnknownOrder(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.postJSON(t, "/api/v1/payments/webhook", reconcile.WebhookNotification{
		OrderID:       "ORD-unknown",
		PaymentStatus: "COMPLETED",
		Metadata:      reconcile.WebhookMetadata{PaymentID: "no-such-uuid"},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
