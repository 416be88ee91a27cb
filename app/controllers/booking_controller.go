package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleListBookings returns the booking receipts for the listings the agent
// owns. The agent id comes from the auth layer, which sits outside the core;
// here it arrives as a query parameter set by the upstream middleware.
func HandleListBookings(c *fiber.Ctx) error {
	agentID, err := agentIDFrom(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "agent_id is required"})
	}

	bookings, err := deps.Store.Bookings().ListOwned(agentID)
	if err != nil {
		log.Errorf("[Booking] listing bookings for agent %d failed: %v", agentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}

// HandleGetBooking returns one receipt and marks it read by the owner.
func HandleGetBooking(c *fiber.Ctx) error {
	agentID, err := agentIDFrom(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "agent_id is required"})
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid booking id"})
	}

	booking, err := deps.Store.Bookings().GetOwned(uint(id), agentID)
	if err != nil {
		log.Errorf("[Booking] loading booking %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	if booking == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "booking not found"})
	}

	if !booking.HasOwnerRead {
		if err := deps.Store.Bookings().MarkRead(booking.ID); err != nil {
			log.Errorf("[Booking] marking booking %d read failed: %v", booking.ID, err)
		} else {
			booking.HasOwnerRead = true
		}
	}
	return c.JSON(booking)
}

func agentIDFrom(c *fiber.Ctx) (uint, error) {
	raw := c.Query("agent_id", c.Get("X-Agent-ID"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
