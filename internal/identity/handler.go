package identity

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/middleware"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisterDate time.Time `json:"registerDate"`
	Profiles     []string  `json:"profiles"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		RegisterDate: u.CreatedAt,
		Profiles:     access.RoleNames(u.Roles),
	}
}

// Register handles user sign-up.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	c.Location("/users/" + user.ID)
	return c.Status(http.StatusCreated).JSON(toResponse(user))
}

// FindByID returns a user visible to the caller.
func (h *Handler) FindByID(c *fiber.Ctx) error {
	user, err := h.service.FindByID(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toResponse(user))
}

// FindByEmail looks a user up by the email query parameter.
func (h *Handler) FindByEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}
	user, err := h.service.FindByEmail(c.UserContext(), middleware.CurrentPrincipal(c), email)
	if err != nil {
		return err
	}
	return c.JSON(toResponse(user))
}

// Update changes the caller's (or, for admins, any user's) name and password.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Update(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), UpdateInput{Name: req.Name, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(toResponse(user))
}

// Me returns the authenticated user.
func (h *Handler) Me(c *fiber.Ctx) error {
	p := middleware.CurrentPrincipal(c)
	id, ok := p.WhoAmI()
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	user, err := h.service.FindByID(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(toResponse(user))
}
