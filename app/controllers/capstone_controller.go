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

type createCapstoneRequest struct {
	ProjectTitle    string `json:"project_title" validate:"required,max=200"`
	RepoURL         string `json:"repo_url" validate:"omitempty,url,max=500"`
	SubmissionNotes string `json:"submission_notes" validate:"required,max=20000"`
}

// HandleCreateCapstoneReview submits a capstone project for review and
// schedules the generation of the written feedback.
func HandleCreateCapstoneReview(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createCapstoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	repo := repository.GetGlobalFactory().GetCapstoneReviewRepository()
	review := &models.CapstoneReview{
		UUID:            uuid.New().String(),
		UserID:          userCtx.UserID,
		ProjectTitle:    strings.TrimSpace(req.ProjectTitle),
		RepoURL:         strings.TrimSpace(req.RepoURL),
		SubmissionNotes: req.SubmissionNotes,
		Status:          models.GenerationStatusPending,
		CreditCost:      generation.CostsFromEnv().For(generation.KindCapstoneReview),
	}
	if err := repo.Create(review); err != nil {
		return jsonInternalError(c, "Failed to create capstone review")
	}

	if err := enqueueGeneration(generation.KindCapstoneReview, review.ID, userCtx.UserID); err != nil {
		log.Errorf("[Capstone] Failed to enqueue generation for %s: %v", review.UUID, err)
		if _, ferr := repo.Fail(review.ID, "queue_error"); ferr != nil {
			log.Errorf("[Capstone] Failed to mark %s failed: %v", review.UUID, ferr)
		}
		return jsonInternalError(c, "Failed to schedule generation")
	}

	return c.Status(fiber.StatusAccepted).JSON(review)
}

// HandleGetCapstoneReview returns one capstone review of the authenticated user.
func HandleGetCapstoneReview(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	review, err := repository.GetGlobalFactory().GetCapstoneReviewRepository().GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Capstone review not found")
		}
		return jsonInternalError(c, "Failed to load capstone review")
	}
	if review.UserID != userCtx.UserID {
		return jsonNotFound(c, "Capstone review not found")
	}

	return c.JSON(review)
}

// HandleListCapstoneReviews returns the caller's capstone reviews.
func HandleListCapstoneReviews(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	offset, limit := parsePagination(c)
	reviews, err := repository.GetGlobalFactory().GetCapstoneReviewRepository().ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonInternalError(c, "Failed to load capstone reviews")
	}

	return c.JSON(fiber.Map{"capstone_reviews": reviews, "offset": offset, "limit": limit})
}
