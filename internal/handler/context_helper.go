package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/view"
)

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserKey)
}

// pages renders templates with the flashes and login state every page shows.
type pages struct {
	sessions *middleware.SessionManager
	view     view.Renderer
}

func (p pages) render(c *gin.Context, status int, name string, data gin.H, inline ...middleware.Flash) {
	if data == nil {
		data = gin.H{}
	}
	flashes := p.sessions.Flashes(c)
	data["Flashes"] = append(flashes, inline...)
	data["LoggedIn"] = currentUserID(c) != ""
	p.view.Render(c, status, name, data)
}

func (p pages) flash(c *gin.Context, category, message string) {
	_ = p.sessions.AddFlash(c, category, message)
}
