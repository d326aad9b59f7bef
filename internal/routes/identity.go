package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/finances-api/finances/internal/identity"
)

// RegisterUserRoutes wires public sign-up.
func RegisterUserRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/users", h.Register)
}

// RegisterProfileRoutes wires user endpoints that require a principal.
func RegisterProfileRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
	r.Get("/users/search", h.FindByEmail)
	r.Get("/users/:id", h.FindByID)
	r.Put("/users/:id", h.Update)
}
