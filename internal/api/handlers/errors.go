package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/logger"
)

// HeaderUserID carries the caller identity. Requests without it are
// anonymous and nothing they say is persisted.
const HeaderUserID = "X-User-ID"

const missingUser = "Usuário não identificado"

func userID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(HeaderUserID))
}

// respondError answers with the status matching the error kind and the
// user facing message carried by err, or fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := apperr.HTTPStatus(apperr.KindOf(err))
	if status >= fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		logger.Warn("Request rejected",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": apperr.MessageOf(err, fallback),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
