package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/careerforge/careerforge/internal/pkg/generation"
	"github.com/careerforge/careerforge/internal/pkg/jobqueue"
	"github.com/careerforge/careerforge/internal/pkg/usercontext"
)

var validate = validator.New()

// enqueueGeneration emits the job trigger for a freshly created pending entity
func enqueueGeneration(kind generation.Kind, resourceID uint, userID uint) error {
	mgr := jobqueue.GetManager()
	if mgr == nil {
		return errors.New("job queue not initialized")
	}
	_, err := mgr.EnqueueGeneration(jobqueue.GenerationJobPayload{
		Kind:       kind,
		ResourceID: resourceID,
		UserID:     userID,
	})
	return err
}

// requireUser returns the authenticated user context or writes a 401.
// The bool reports whether the request may proceed.
func requireUser(c *fiber.Ctx) (usercontext.UserContext, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
		return userCtx, false
	}
	return userCtx, true
}

// requireAdmin returns the admin user context or writes a 401/403.
func requireAdmin(c *fiber.Ctx) (usercontext.UserContext, bool) {
	userCtx, ok := requireUser(c)
	if !ok {
		return userCtx, false
	}
	if !userCtx.IsAdmin {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
		return userCtx, false
	}
	return userCtx, true
}

// parsePagination reads offset/limit query params with sane bounds
func parsePagination(c *fiber.Ctx) (int, int) {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}

func jsonValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
}

func jsonInternalError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": message})
}

func jsonNotFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": message})
}
