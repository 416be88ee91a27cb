package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleListPlans returns the customer-visible subscription plans.
func HandleListPlans(c *fiber.Ctx) error {
	plans, err := deps.Store.Plans().ListVisible()
	if err != nil {
		log.Errorf("[Plan] listing plans failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"plans": plans})
}
