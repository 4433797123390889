package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unicesmag/labcontrol/internal/middleware"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Records  *RecordHandler
	Auth     *AuthHandler
	Users    *UserHandler
	Reports  *ReportHandler
	Metrics  *MetricsHandler
	Sessions *middleware.SessionManager

	MetricsPath string
}

// Register mounts the public and session-protected routes on r.
func Register(r gin.IRouter, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if h.MetricsPath != "" {
		r.GET(h.MetricsPath, h.Metrics.Prometheus)
	}

	r.GET("/", h.Records.Index)
	r.POST("/add_data", h.Records.Create)
	r.GET("/login", h.Auth.LoginPage)
	r.POST("/login", h.Auth.Login)

	admin := r.Group("/", h.Sessions.RequireSession())
	admin.GET("/logout", h.Auth.Logout)
	admin.GET("/goback", h.Records.GoBack)
	admin.GET("/admin", h.Records.Admin)
	admin.GET("/edit/:id", h.Records.Edit)
	admin.POST("/update/:id", h.Records.Update)
	admin.GET("/delete/:id", h.Records.Delete)

	admin.GET("/register", h.Users.RegisterPage)
	admin.POST("/register", h.Users.Register)
	admin.GET("/users", h.Users.List)
	admin.GET("/restore/:id", h.Users.RestorePage)
	admin.POST("/restore/:id", h.Users.Restore)
	admin.GET("/deleteuser/:id", h.Users.Delete)

	admin.GET("/reports", h.Reports.Page)
	admin.GET("/generate", h.Reports.PreviewAll)
	admin.POST("/generate", h.Reports.Preview)
	admin.GET("/download", h.Reports.Download)
}
