package server

import (
	"context"
	"time"

	"loom/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateUser handles POST /api/users
func (s *Server) CreateUser(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.CreateUser(ctx, req.Username)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(user)
}

// EnsureUser handles PUT /api/users/:id
// It is idempotent: the user is created (together with a default thread) on
// first call and returned as-is afterwards.
func (s *Server) EnsureUser(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	id, err := s.parseUUID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	var req struct {
		Username string `json:"username"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	user, created, err := s.userService.EnsureUser(ctx, id, req.Username)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(user)
}

// DeleteUser handles DELETE /api/users/:id
// Deleting a user also deletes every thread it owns.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	id, err := s.parseUUID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	if err := s.userService.DeleteUser(ctx, id); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "User deleted", "user_id": id})
}

// ListUserThreads handles GET /api/users/:id/threads?page=&page_size=
// Threads are ordered by recency; an unknown user yields an empty page.
func (s *Server) ListUserThreads(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	id, err := s.parseUUID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	result, err := s.threadService.ListThreads(ctx, id, page, pageSize)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(result)
}
