package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/finances-api/finances/internal/account"
)

// RegisterAccountRoutes wires bank account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	group := r.Group("/bank-accounts")
	group.Post("", h.Create)
	group.Get("/search", h.FindByUser)
	group.Get("/:id", h.FindByID)
	group.Put("/:id", h.Update)
	group.Delete("/:id", h.Delete)
}
