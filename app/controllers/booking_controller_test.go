package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kedesh/marketplace/app/models"
)

func (ta *testApp) seedBooking(t *testing.T, listingID uint) *models.Booking {
	t.Helper()
	b := &models.Booking{
		UUID:          "bk-" + strconv.FormatUint(uint64(listingID), 10),
		ListingID:     listingID,
		CustomerName:  "Jane Tenant",
		CustomerPhone: "0712345678",
		BookingFee:    decimal.NewFromInt(3000),
	}
	require.NoError(t, ta.store.Bookings().Create(b))
	return b
}

func (ta *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestListBookings(t *testing.T) {
	ta := newTestApp(t)
	mine := ta.seedBookableListing(t, 1)
	other := ta.seedBookableListing(t, 2)
	ta.seedBooking(t, mine.ID)
	ta.seedBooking(t, other.ID)

	resp := ta.get(t, "/api/v1/bookings?agent_id=1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Bookings []models.Booking `json:"bookings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Bookings, 1)
	assert.Equal(t, mine.ID, body.Bookings[0].ListingID)
}

func TestListBookingsRequiresAgent(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.get(t, "/api/v1/bookings")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.get(t, "/api/v1/bookings?agent_id=0")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListBookingsAgentFromHeader(t *testing.T) {
	ta := newTestApp(t)
	mine := ta.seedBookableListing(t, 1)
	ta.seedBooking(t, mine.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("X-Agent-ID", "1")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetBookingMarksRead(t *testing.T) {
	ta := newTestApp(t)
	mine := ta.seedBookableListing(t, 1)
	b := ta.seedBooking(t, mine.ID)

	resp := ta.get(t, "/api/v1/bookings/"+strconv.FormatUint(uint64(b.ID), 10)+"?agent_id=1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.Booking
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.HasOwnerRead)

	stored, err := ta.store.Bookings().GetOwned(b.ID, 1)
	require.NoError(t, err)
	assert.True(t, stored.HasOwnerRead)
}

func TestGetBookingHidesOtherAgentsReceipts(t *testing.T) {
	ta := newTestApp(t)
	mine := ta.seedBookableListing(t, 1)
	b := ta.seedBooking(t, mine.ID)

	resp := ta.get(t, "/api/v1/bookings/"+strconv.FormatUint(uint64(b.ID), 10)+"?agent_id=2")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.get(t, "/api/v1/bookings/999?agent_id=1")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.get(t, "/api/v1/bookings/not-a-number?agent_id=1")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListPlans(t *testing.T) {
	ta := newTestApp(t)
	ta.store.SeedPlan(models.SubscriptionPlan{Name: "Free", MaxHouses: 2, DurationDays: 30, IsFree: true, IsVisible: true})
	ta.store.SeedPlan(models.SubscriptionPlan{Name: "Hidden", Price: decimal.NewFromInt(1000), MaxHouses: 5, DurationDays: 30})

	resp := ta.get(t, "/api/v1/plans")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Plans []models.SubscriptionPlan `json:"plans"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Plans, 1)
	assert.Equal(t, "Free", body.Plans[0].Name)
}
