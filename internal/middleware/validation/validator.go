package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SanitizedBody is the Locals key holding the cleaned chat payload.
const SanitizedBody = "sanitized_body"

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror\s*=|onload\s*=|onclick\s*=)`)

type Config struct {
	MaxMessageLength    int
	MaxTitleLength      int
	MaxDescription      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 4000
	}
	if cfg.MaxTitleLength <= 0 {
		cfg.MaxTitleLength = 120
	}
	if cfg.MaxDescription <= 0 {
		cfg.MaxDescription = 500
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch {
			return c.Next()
		}

		if contentType := c.Get(fiber.HeaderContentType); contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		switch c.Path() {
		case "/api/v1/chat":
			return validateChat(c, cfg)
		case "/api/v1/alerts":
			return validateAlert(c, cfg)
		}
		return c.Next()
	}
}

func validateChat(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	content, ok := req["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mensagem vazia",
		})
	}

	if utf8.RuneCountInString(content) > cfg.MaxMessageLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mensagem muito longa",
		})
	}

	if containsXSS(content) {
		cfg.Logger.Warn("Potential XSS attempt",
			zap.String("ip", c.IP()),
			zap.String("path", c.Path()),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Conteúdo inválido",
		})
	}

	req["content"] = sanitizeString(content)
	c.Locals(SanitizedBody, req)
	return c.Next()
}

func validateAlert(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	limits := map[string]int{
		"title":       cfg.MaxTitleLength,
		"description": cfg.MaxDescription,
		"address":     cfg.MaxDescription,
		"reportedBy":  cfg.MaxTitleLength,
	}
	for field, limit := range limits {
		v, _ := req[field].(string)
		if utf8.RuneCountInString(v) > limit {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Campo muito longo: " + field,
			})
		}
		if containsXSS(v) {
			cfg.Logger.Warn("Potential XSS attempt",
				zap.String("ip", c.IP()),
				zap.String("field", field),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Conteúdo inválido",
			})
		}
	}
	return c.Next()
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
