package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/models"
	"github.com/careerforge/careerforge/app/repository"
	"github.com/careerforge/careerforge/internal/pkg/database"
	"github.com/careerforge/careerforge/internal/pkg/ledger"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	RotateAPIKey bool   `json:"rotate_api_key"`
}

// HandleRegister creates a user account together with its credit account and
// returns the API key. The key is shown exactly once; only its hash is stored.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := userRepo.GetByEmail(email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken", "message": "An account with this email already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonInternalError(c, "Failed to check email")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), email, req.Password)
	if err != nil {
		return jsonInternalError(c, "Failed to create user")
	}

	apiKey, err := user.GenerateAPIKey()
	if err != nil {
		return jsonInternalError(c, "Failed to generate API key")
	}

	if err := userRepo.Create(user); err != nil {
		return jsonInternalError(c, "Failed to save user")
	}

	if _, err := ledger.New(database.GetDB()).GetOrCreateAccount(user.ID); err != nil {
		log.Errorf("[Auth] Failed to create credit account for user %d: %v", user.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"api_key": apiKey,
	})
}

// HandleLogin verifies email and password and reports account details. It
// does not reveal the API key; use the rotate endpoint to obtain a new one.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid email or password"})
		}
		return jsonInternalError(c, "Failed to load user")
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid email or password"})
	}
	if user.Status != models.STATUS_ACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
	}

	response := fiber.Map{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"has_api_key": user.APIKeyHash != "",
	}

	// Password-verified rotation is the recovery path for a lost key.
	if req.RotateAPIKey {
		apiKey, err := user.GenerateAPIKey()
		if err != nil {
			return jsonInternalError(c, "Failed to generate API key")
		}
		if err := userRepo.Update(user); err != nil {
			return jsonInternalError(c, "Failed to save API key")
		}
		response["api_key"] = apiKey
		response["has_api_key"] = true
	}

	return c.JSON(response)
}
