package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/service"
)

type PageHandler struct {
	s service.PageService
}

func NewPageHandler(service service.PageService) *PageHandler {
	return &PageHandler{s: service}
}

func (h *PageHandler) CreatePage(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		Name     string `json:"name"`
		Platform string `json:"platform"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid body",
		})
	}

	pageID, err := h.s.CreatePage(c.Context(), userID, body.Name, body.Platform)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"page_id": pageID})
}

func (h *PageHandler) ListPages(c *fiber.Ctx) error {
	userID := GetUserID(c)

	pages, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list pages",
		})
	}

	return c.Status(fiber.StatusOK).JSON(pages)
}

func (h *PageHandler) CreateConnection(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		PageID       int64  `json:"page_id"`
		Platform     string `json:"platform"`
		AccountID    string `json:"account_id"`
		AccountName  string `json:"account_name"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    string `json:"expires_at"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid body",
		})
	}

	conn := &models.PlatformConnection{
		PageID:       body.PageID,
		Platform:     body.Platform,
		AccountID:    body.AccountID,
		AccountName:  body.AccountName,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if body.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, body.ExpiresAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid expires_at",
			})
		}
		conn.TokenExpiresAt = sql.NullTime{Time: expiresAt, Valid: true}
	}

	connID, err := h.s.ConnectPlatform(c.Context(), userID, conn)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"connection_id": connID})
}

func (h *PageHandler) ListConnections(c *fiber.Ctx) error {
	userID := GetUserID(c)
	pageID := c.QueryInt("page_id", 0)

	conns, err := h.s.ListConnections(c.Context(), userID, int64(pageID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(conns)
}

func (h *PageHandler) RemoveConnection(c *fiber.Ctx) error {
	userID := GetUserID(c)
	pageID := c.QueryInt("page_id", 0)
	platform := c.Query("platform")

	err := h.s.RemoveConnection(c.Context(), userID, int64(pageID), platform)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PageHandler) RemovePage(c *fiber.Ctx) error {
	userID := GetUserID(c)
	pageID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(pageID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
