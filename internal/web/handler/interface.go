package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

// Service is the interface for a web handler service.
// Init registers the handler routes below router.
type Service interface {
	Init(router fiber.Router, cfg *config.Config, svc *rbac.Service)
}
