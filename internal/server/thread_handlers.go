package server

import (
	"context"
	"time"

	"loom/internal/models"
	"loom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateThread handles POST /api/threads
func (s *Server) CreateThread(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		UserID  string  `json:"user_id"`
		Title   *string `json:"title"`
		Preview *string `json:"preview"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	thread, err := s.threadService.CreateThread(ctx, service.CreateThreadInput{
		UserID:  req.UserID,
		Title:   req.Title,
		Preview: req.Preview,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(thread)
}

// GetThread handles GET /api/threads/:id
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id", "thread ID")
	if err != nil {
		return nil
	}

	thread, err := s.threadService.GetThread(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(thread)
}

// UpdateThread handles PATCH /api/threads/:id
// Only the supplied fields change; the thread's recency is refreshed either way.
func (s *Server) UpdateThread(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	id, err := s.parseUUID(c, "id", "thread ID")
	if err != nil {
		return nil
	}

	var req struct {
		Title   *string `json:"title"`
		Preview *string `json:"preview"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	thread, err := s.threadService.UpdateThread(ctx, id, service.UpdateThreadInput{
		Title:   req.Title,
		Preview: req.Preview,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(thread)
}

// DeleteThread handles DELETE /api/threads/:id
// The owning user is untouched. Callers are expected to purge the matching
// state in the conversational engine after a successful delete.
func (s *Server) DeleteThread(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	id, err := s.parseUUID(c, "id", "thread ID")
	if err != nil {
		return nil
	}

	if err := s.threadService.DeleteThread(ctx, id); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Thread deleted", "thread_id": id})
}
