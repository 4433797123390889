package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/internal/view"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
	"github.com/unicesmag/labcontrol/pkg/response"
)

type userService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	ResetPassword(ctx context.Context, id string, req models.PasswordResetRequest) error
	Delete(ctx context.Context, id string) error
}

const (
	msgPasswordRestored = "Contraseña actualizada."
	msgUserDeleted      = "Usuario eliminado."
	msgUserNotFound     = "El usuario solicitado no existe."
)

// UserHandler handles administrator account pages.
type UserHandler struct {
	pages
	users userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users userService, sessions *middleware.SessionManager, renderer view.Renderer) *UserHandler {
	return &UserHandler{pages: pages{sessions: sessions, view: renderer}, users: users}
}

// RegisterPage shows the account creation form.
func (h *UserHandler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Reason": models.ReasonNone, "Username": ""})
}

// Register creates an account and continues the session as the new user.
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	_ = c.ShouldBind(&req)

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		if reason := service.ReasonOf(err); reason != models.ReasonNone {
			_ = c.Error(err)
			h.render(c, http.StatusOK, "register.html", gin.H{"Reason": reason, "Username": req.Username})
			return
		}
		response.Error(c, h.view, err)
		return
	}

	if err := h.sessions.Login(c, user.ID); err != nil {
		response.Error(c, h.view, err)
		return
	}
	response.Redirect(c, "/admin")
}

// List shows every account.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		response.Error(c, h.view, err)
		return
	}
	h.render(c, http.StatusOK, "users.html", gin.H{"Users": users})
}

// RestorePage shows the password reset form of one account.
func (h *UserHandler) RestorePage(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failUser(c, err)
		return
	}
	h.render(c, http.StatusOK, "restore.html", gin.H{"User": user, "Reason": models.ReasonNone})
}

// Restore replaces the password of one account.
func (h *UserHandler) Restore(c *gin.Context) {
	id := c.Param("id")
	var req models.PasswordResetRequest
	_ = c.ShouldBind(&req)

	if err := h.users.ResetPassword(c.Request.Context(), id, req); err != nil {
		if reason := service.ReasonOf(err); reason != models.ReasonNone {
			user, getErr := h.users.Get(c.Request.Context(), id)
			if getErr != nil {
				h.failUser(c, getErr)
				return
			}
			h.render(c, http.StatusOK, "restore.html", gin.H{"User": user, "Reason": reason})
			return
		}
		h.failUser(c, err)
		return
	}

	h.flash(c, middleware.FlashSuccess, msgPasswordRestored)
	response.Redirect(c, "/users")
}

// Delete removes an account. Deleting the account in use also ends the session.
func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, h.view, err)
		return
	}

	if id == currentUserID(c) {
		_ = h.sessions.Clear(c)
		response.Redirect(c, "/login")
		return
	}
	h.flash(c, middleware.FlashSuccess, msgUserDeleted)
	response.Redirect(c, "/users")
}

func (h *UserHandler) failUser(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrNotFound) {
		h.flash(c, middleware.FlashWarning, msgUserNotFound)
		response.Redirect(c, "/users")
		return
	}
	response.Error(c, h.view, err)
}
