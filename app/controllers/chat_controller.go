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

type createSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// HandleCreateChatSession opens a new mentor chat session.
func HandleCreateChatSession(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	session := &models.ChatSession{
		UUID:   uuid.New().String(),
		UserID: userCtx.UserID,
		Title:  strings.TrimSpace(req.Title),
	}
	if err := repository.GetGlobalFactory().GetChatRepository().CreateSession(session); err != nil {
		return jsonInternalError(c, "Failed to create chat session")
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// HandleListChatSessions returns the caller's chat sessions.
func HandleListChatSessions(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	offset, limit := parsePagination(c)
	sessions, err := repository.GetGlobalFactory().GetChatRepository().ListSessionsByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonInternalError(c, "Failed to load chat sessions")
	}

	return c.JSON(fiber.Map{"sessions": sessions, "offset": offset, "limit": limit})
}

// HandleGetChatSession returns one session with its recent messages.
func HandleGetChatSession(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	repo := repository.GetGlobalFactory().GetChatRepository()
	session, err := repo.GetSessionByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Chat session not found")
		}
		return jsonInternalError(c, "Failed to load chat session")
	}
	if session.UserID != userCtx.UserID {
		return jsonNotFound(c, "Chat session not found")
	}

	messages, err := repo.ListSessionMessages(session.ID, 50)
	if err != nil {
		return jsonInternalError(c, "Failed to load messages")
	}
	session.Messages = messages

	return c.JSON(session)
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=8000"`
}

// HandleSendChatMessage stores the user's turn and creates the pending
// assistant reply, then emits the job trigger that will generate it.
func HandleSendChatMessage(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": "Request body must be valid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return jsonValidationError(c, err)
	}

	repo := repository.GetGlobalFactory().GetChatRepository()
	session, err := repo.GetSessionByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Chat session not found")
		}
		return jsonInternalError(c, "Failed to load chat session")
	}
	if session.UserID != userCtx.UserID {
		return jsonNotFound(c, "Chat session not found")
	}

	userMsg := &models.ChatMessage{
		UUID:      uuid.New().String(),
		SessionID: session.ID,
		UserID:    userCtx.UserID,
		Role:      models.ChatRoleUser,
		Content:   strings.TrimSpace(req.Content),
		Status:    models.GenerationStatusCompleted,
	}
	if err := repo.CreateMessage(userMsg); err != nil {
		return jsonInternalError(c, "Failed to save message")
	}

	assistantMsg := &models.ChatMessage{
		UUID:       uuid.New().String(),
		SessionID:  session.ID,
		UserID:     userCtx.UserID,
		Role:       models.ChatRoleAssistant,
		Status:     models.GenerationStatusPending,
		CreditCost: generation.CostsFromEnv().For(generation.KindChatMessage),
	}
	if err := repo.CreateMessage(assistantMsg); err != nil {
		return jsonInternalError(c, "Failed to create reply")
	}

	if err := enqueueGeneration(generation.KindChatMessage, assistantMsg.ID, userCtx.UserID); err != nil {
		log.Errorf("[Chat] Failed to enqueue generation for message %s: %v", assistantMsg.UUID, err)
		if _, ferr := repo.FailMessage(assistantMsg.ID, "queue_error"); ferr != nil {
			log.Errorf("[Chat] Failed to mark message %s failed: %v", assistantMsg.UUID, ferr)
		}
		return jsonInternalError(c, "Failed to schedule reply generation")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": userMsg,
		"reply":   assistantMsg,
	})
}

// HandleGetChatMessage returns a single message, used for polling reply state.
func HandleGetChatMessage(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	msg, err := repository.GetGlobalFactory().GetChatRepository().GetMessageByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Message not found")
		}
		return jsonInternalError(c, "Failed to load message")
	}
	if msg.UserID != userCtx.UserID {
		return jsonNotFound(c, "Message not found")
	}

	return c.JSON(msg)
}
