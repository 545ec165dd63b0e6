package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/models"
	"github.com/careerforge/careerforge/app/repository"
	"github.com/careerforge/careerforge/internal/pkg/generation"
)

type createCoverLetterRequest struct {
	JobTitle       string `json:"job_title" validate:"required,max=200"`
	Company        string `json:"company" validate:"max=200"`
	JobDescription string `json:"job_description" validate:"required,max=20000"`
}

// HandleCreateCoverLetter creates a pending cover letter and schedules its generation.
func HandleCreateCoverLetter(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createCoverLetterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	repo := repository.GetGlobalFactory().GetCoverLetterRepository()
	letter := &models.CoverLetter{
		UUID:           uuid.New().String(),
		UserID:         userCtx.UserID,
		JobTitle:       strings.TrimSpace(req.JobTitle),
		Company:        strings.TrimSpace(req.Company),
		JobDescription: req.JobDescription,
		Status:         models.GenerationStatusPending,
		CreditCost:     generation.CostsFromEnv().For(generation.KindCoverLetter),
	}
	if err := repo.Create(letter); err != nil {
		return jsonInternalError(c, "Failed to create cover letter")
	}

	if err := enqueueGeneration(generation.KindCoverLetter, letter.ID, userCtx.UserID); err != nil {
		log.Errorf("[CoverLetter] Failed to enqueue generation for %s: %v", letter.UUID, err)
		if _, ferr := repo.Fail(letter.ID, "queue_error"); ferr != nil {
			log.Errorf("[CoverLetter] Failed to mark %s failed: %v", letter.UUID, ferr)
		}
		return jsonInternalError(c, "Failed to schedule generation")
	}

	return c.Status(fiber.StatusAccepted).JSON(letter)
}

// HandleGetCoverLetter returns one cover letter of the authenticated user.
func HandleGetCoverLetter(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	letter, err := repository.GetGlobalFactory().GetCoverLetterRepository().GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Cover letter not found")
		}
		return jsonInternalError(c, "Failed to load cover letter")
	}
	if letter.UserID != userCtx.UserID {
		return jsonNotFound(c, "Cover letter not found")
	}

	return c.JSON(letter)
}

// HandleListCoverLetters returns the caller's cover letters.
func HandleListCoverLetters(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	offset, limit := parsePagination(c)
	letters, err := repository.GetGlobalFactory().GetCoverLetterRepository().ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonInternalError(c, "Failed to load cover letters")
	}

	return c.JSON(fiber.Map{"cover_letters": letters, "offset": offset, "limit": limit})
}
