package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/careerforge/careerforge/internal/pkg/database"
	"github.com/careerforge/careerforge/internal/pkg/env"
	"github.com/careerforge/careerforge/internal/pkg/ledger"
	"github.com/careerforge/careerforge/internal/pkg/payment"
)

func paymentService() *payment.Service {
	db := database.GetDB()
	return payment.NewServiceFromDB(
		db,
		ledger.New(db),
		payment.NewRazorpayClientFromEnv(),
		env.GetEnv("RAZORPAY_WEBHOOK_SECRET", ""),
	)
}

type createOrderRequest struct {
	Amount       int64 `json:"amount" validate:"required,gt=0"`
	CreditsToAdd int64 `json:"credits_to_add" validate:"gte=0"`
}

// HandleCreateOrder opens a payment order for a credit top-up. Any still
// pending order of the user is cancelled first; credits are granted only
// after the gateway confirms settlement via webhook.
func HandleCreateOrder(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	order, err := paymentService().CreateOrder(ctx, userCtx.UserID, req.Amount, req.CreditsToAdd)
	if err != nil {
		if errors.Is(err, payment.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
		}
		log.Errorf("[Payment] Order creation failed for user %d: %v", userCtx.UserID, err)
		return jsonInternalError(c, "Failed to create payment order")
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandlePaymentWebhook receives gateway webhook deliveries. It always
// acknowledges with 200 so the gateway does not enter a redelivery storm;
// internal failures are logged, never surfaced in the HTTP status.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Razorpay-Signature"))
	eventID := strings.TrimSpace(c.Get("X-Razorpay-Event-Id"))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := paymentService().HandleWebhook(ctx, rawBody, signature, eventID)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureVerification) {
			log.Warnf("[Payment] Webhook rejected: invalid signature (event %s)", eventID)
		} else {
			log.Errorf("[Payment] Webhook processing failed (event %s): %v", eventID, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": result.Outcome})
}

type callbackRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// HandlePaymentCallback verifies the checkout return signature for display
// purposes. It never grants credit; settlement is webhook-driven.
func HandlePaymentCallback(c *fiber.Ctx) error {
	if _, ok := requireUser(c); !ok {
		return nil
	}

	var req callbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	status, err := paymentService().VerifyCallback(req.OrderID, req.PaymentID, req.Signature, env.GetEnv("RAZORPAY_KEY_SECRET", ""))
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return jsonNotFound(c, "Payment not found")
		}
		return jsonInternalError(c, "Failed to verify callback")
	}

	return c.JSON(status)
}

// HandleGetPayment returns one payment of the authenticated user.
func HandleGetPayment(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "Invalid payment id"})
	}

	p, err := paymentService().GetPaymentStatus(userCtx.UserID, uint(id))
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return jsonNotFound(c, "Payment not found")
		}
		return jsonInternalError(c, "Failed to load payment")
	}

	return c.JSON(p)
}

// HandleListPayments returns the payment history of the authenticated user.
func HandleListPayments(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	offset, limit := parsePagination(c)
	payments, err := paymentService().ListPayments(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonInternalError(c, "Failed to load payments")
	}

	return c.JSON(fiber.Map{"payments": payments, "offset": offset, "limit": limit})
}
