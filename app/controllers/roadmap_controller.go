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

type createRoadmapRequest struct {
	Goal            string `json:"goal" validate:"required,max=300"`
	ExperienceLevel string `json:"experience_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationWeeks   int    `json:"duration_weeks" validate:"omitempty,gt=0,lte=104"`
}

// HandleCreateRoadmap creates a pending learning roadmap and schedules its generation.
func HandleCreateRoadmap(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createRoadmapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	level := req.ExperienceLevel
	if level == "" {
		level = "beginner"
	}
	weeks := req.DurationWeeks
	if weeks == 0 {
		weeks = 12
	}

	repo := repository.GetGlobalFactory().GetRoadmapRepository()
	roadmap := &models.Roadmap{
		UUID:            uuid.New().String(),
		UserID:          userCtx.UserID,
		Goal:            strings.TrimSpace(req.Goal),
		ExperienceLevel: level,
		DurationWeeks:   weeks,
		Status:          models.GenerationStatusPending,
		CreditCost:      generation.CostsFromEnv().For(generation.KindRoadmap),
	}
	if err := repo.Create(roadmap); err != nil {
		return jsonInternalError(c, "Failed to create roadmap")
	}

	if err := enqueueGeneration(generation.KindRoadmap, roadmap.ID, userCtx.UserID); err != nil {
		log.Errorf("[Roadmap] Failed to enqueue generation for %s: %v", roadmap.UUID, err)
		if _, ferr := repo.Fail(roadmap.ID, "queue_error"); ferr != nil {
			log.Errorf("[Roadmap] Failed to mark %s failed: %v", roadmap.UUID, ferr)
		}
		return jsonInternalError(c, "Failed to schedule generation")
	}

	return c.Status(fiber.StatusAccepted).JSON(roadmap)
}

// HandleGetRoadmap returns one roadmap of the authenticated user.
func HandleGetRoadmap(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	roadmap, err := repository.GetGlobalFactory().GetRoadmapRepository().GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Roadmap not found")
		}
		return jsonInternalError(c, "Failed to load roadmap")
	}
	if roadmap.UserID != userCtx.UserID {
		return jsonNotFound(c, "Roadmap not found")
	}

	return c.JSON(roadmap)
}

// HandleListRoadmaps returns the caller's roadmaps.
func HandleListRoadmaps(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	offset, limit := parsePagination(c)
	roadmaps, err := repository.GetGlobalFactory().GetRoadmapRepository().ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonInternalError(c, "Failed to load roadmaps")
	}

	return c.JSON(fiber.Map{"roadmaps": roadmaps, "offset": offset, "limit": limit})
}
