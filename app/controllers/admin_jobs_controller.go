package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleListJobs returns the registered scheduler jobs.
func HandleListJobs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"jobs": deps.Scheduler.Names()})
}

// HandleRunJob force-runs one scheduler job by name. Jobs are idempotent, so
// an operator triggering one during a scheduled run does no harm.
func HandleRunJob(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := deps.Scheduler.RunNow(name); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "job": name})
}
