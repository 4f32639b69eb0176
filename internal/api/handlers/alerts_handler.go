package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/iris-assistant/backend/internal/alerts"
	"github.com/iris-assistant/backend/internal/storage/models"
)

type AlertService interface {
	List(ctx context.Context) ([]models.Alert, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]alerts.NearbyAlert, error)
	Create(ctx context.Context, in alerts.CreateInput) (*models.Alert, error)
	Vote(ctx context.Context, id string, up bool) (*models.Alert, error)
}

type AlertHandler struct {
	service AlertService
}

func NewAlertHandler(service AlertService) *AlertHandler {
	return &AlertHandler{
		service: service,
	}
}

func (h *AlertHandler) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, err, "Erro ao listar alertas")
	}

	return c.JSON(fiber.Map{
		"alerts": list,
		"count":  len(list),
	})
}

func (h *AlertHandler) Types(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"types": alerts.TypeTable(),
	})
}

func (h *AlertHandler) Nearby(c *fiber.Ctx) error {
	lat, lng, ok := coordinates(c, "lat", "lng")
	if !ok {
		return badRequest(c, "Coordenadas inválidas")
	}

	near, err := h.service.Nearby(c.UserContext(), lat, lng, c.QueryFloat("radius", alerts.DefaultRadiusKm))
	if err != nil {
		return respondError(c, err, "Erro ao buscar alertas próximos")
	}

	return c.JSON(fiber.Map{
		"alerts": near,
		"count":  len(near),
	})
}

func (h *AlertHandler) Create(c *fiber.Ctx) error {
	var in alerts.CreateInput

	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	alert, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err, "Erro ao criar alerta")
	}

	return c.Status(fiber.StatusCreated).JSON(alert)
}

// Vote accepts {"up": true|false} or {"direction": "up"|"down"}.
func (h *AlertHandler) Vote(c *fiber.Ctx) error {
	var req struct {
		Up        *bool  `json:"up"`
		Direction string `json:"direction"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	var up bool
	switch {
	case req.Direction == "up":
		up = true
	case req.Direction == "down":
		up = false
	case req.Direction == "" && req.Up != nil:
		up = *req.Up
	default:
		return badRequest(c, "Voto inválido")
	}

	alert, err := h.service.Vote(c.UserContext(), c.Params("id"), up)
	if err != nil {
		return respondError(c, err, "Erro ao registrar voto")
	}

	return c.JSON(alert)
}
