package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/internal/view"
	"github.com/unicesmag/labcontrol/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
}

// AuthHandler manages login and logout.
type AuthHandler struct {
	pages
	auth authService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth authService, sessions *middleware.SessionManager, renderer view.Renderer) *AuthHandler {
	return &AuthHandler{pages: pages{sessions: sessions, view: renderer}, auth: auth}
}

// LoginPage shows the login form. Visiting it ends any existing session.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	_ = h.sessions.Clear(c)
	h.view.Render(c, http.StatusOK, "login.html", gin.H{"Reason": models.ReasonNone, "Username": ""})
}

// Login authenticates the submitted credentials and opens a session. Any
// session already present is dropped first, so a rejected attempt always
// leaves the client anonymous.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	_ = c.ShouldBind(&req)

	if err := h.sessions.Clear(c); err != nil {
		response.Error(c, h.view, err)
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		if reason := service.ReasonOf(err); reason != models.ReasonNone {
			_ = c.Error(err)
			h.view.Render(c, http.StatusOK, "login.html", gin.H{"Reason": reason, "Username": req.Username})
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

// Logout clears the session and returns to the check-in form.
func (h *AuthHandler) Logout(c *gin.Context) {
	_ = h.sessions.Clear(c)
	response.Redirect(c, "/")
}
