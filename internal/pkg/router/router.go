package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kedesh/marketplace/app/controllers"
	"github.com/kedesh/marketplace/internal/pkg/database"
)

// InstallRouter wires the core's HTTP surface. Listing CRUD, search, image
// and auth routes belong to collaborating services and are not mounted here.
func InstallRouter(app *fiber.App) {
	app.Get("/health", handleHealth)

	v1 := app.Group("/api/v1")

	payments := v1.Group("/payments")
	payments.Post("/booking", controllers.HandleCreateBookingPayment)
	payments.Post("/subscription", controllers.HandleCreateSubscriptionPayment)
	payments.Post("/webhook", controllers.HandlePaymentWebhook)

	v1.Get("/bookings", controllers.HandleListBookings)
	v1.Get("/bookings/:id", controllers.HandleGetBooking)
	v1.Get("/plans", controllers.HandleListPlans)

	admin := v1.Group("/admin")
	admin.Get("/jobs", controllers.HandleListJobs)
	admin.Post("/jobs/:name/run", controllers.HandleRunJob)
}

func handleHealth(c *fiber.Ctx) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
