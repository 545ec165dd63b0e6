package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/models"
	"github.com/careerforge/careerforge/app/repository"
	"github.com/careerforge/careerforge/internal/pkg/database"
	"github.com/careerforge/careerforge/internal/pkg/ledger"
)

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "User not found")
		}
		return jsonInternalError(c, "Failed to load user")
	}

	balance, err := ledger.New(database.GetDB()).Balance(userCtx.UserID)
	if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
		return jsonInternalError(c, "Failed to load credit balance")
	}

	return c.JSON(fiber.Map{
		"id":         account.ID,
		"username":   account.Name,
		"email":      account.Email,
		"status":     account.Status,
		"is_admin":   account.Role == models.ROLE_ADMIN,
		"created_at": account.CreatedAt.UTC().Format(time.RFC3339),
		"credits": fiber.Map{
			"balance": balance,
		},
		"usage": fiber.Map{
			"tokens_used":    account.TokensUsed,
			"jobs_completed": account.JobsCompleted,
		},
		"api_key_created_at": formatTimePtr(account.APIKeyCreatedAt),
	})
}

// HandleGetCreditBalance returns only the current credit balance.
func HandleGetCreditBalance(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	balance, err := ledger.New(database.GetDB()).Balance(userCtx.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return c.JSON(fiber.Map{"balance": 0})
		}
		return jsonInternalError(c, "Failed to load credit balance")
	}

	return c.JSON(fiber.Map{"balance": balance})
}

// HandleRotateAPIKey replaces the caller's API key. The old key stops working
// immediately; the new key is returned exactly once.
func HandleRotateAPIKey(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "User not found")
		}
		return jsonInternalError(c, "Failed to load user")
	}

	apiKey, err := account.GenerateAPIKey()
	if err != nil {
		return jsonInternalError(c, "Failed to generate API key")
	}
	if err := repo.Update(account); err != nil {
		return jsonInternalError(c, "Failed to save API key")
	}

	return c.JSON(fiber.Map{"api_key": apiKey})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
