package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/kedesh/marketplace/internal/pkg/apperr"
	"github.com/kedesh/marketplace/internal/pkg/reconcile"
)

const requestTimeout = 30 * time.Second

// HandleCreateBookingPayment accepts a booking request, creates the payment
// intent and returns a pending acknowledgment. Terminal validation and
// precondition failures surface immediately; everything else is confirmed
// asynchronously through the webhook.
func HandleCreateBookingPayment(c *fiber.Ctx) error {
	var in reconcile.BookingIntentInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ack, err := deps.Engine.CreateBookingIntent(ctx, in)
	if err != nil {
		return paymentError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(ack)
}

// HandleCreateSubscriptionPayment accepts an agent's plan purchase and
// returns a pending acknowledgment (or a completed one for free plans).
func HandleCreateSubscriptionPayment(c *fiber.Ctx) error {
	var in reconcile.SubscriptionIntentInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ack, err := deps.Engine.CreateSubscriptionIntent(ctx, in)
	if err != nil {
		return paymentError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(ack)
}

// HandlePaymentWebhook ingests the gateway callback. The transport is
// unauthenticated; authenticity comes from the engine's cross-check against
// the gateway's order-status endpoint. Response codes drive the gateway's
// redelivery: 200 success or idempotent replay, 400 validation or mismatch,
// 500 downstream gateway failure.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	var n reconcile.WebhookNotification
	if err := c.BodyParser(&n); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := deps.Engine.ReconcileWebhook(ctx, n)
	if err != nil {
		log.Warnf("[Webhook] rejected notification for order=%s: %v", n.OrderID, err)
		switch apperr.KindOf(err) {
		case apperr.KindValidation, apperr.KindReconciliationMismatch, apperr.KindPrecondition:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation_failed"})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "replay": result.Replay})
}

func paymentError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("[Payment] request failed: %v", err)
		return c.Status(status).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
