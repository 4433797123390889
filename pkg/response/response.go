package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
)

const genericFailure = "Ocurrió un error inesperado. Intente nuevamente."

// PageRenderer renders a named HTML page.
type PageRenderer interface {
	Render(c *gin.Context, status int, name string, data gin.H)
}

// Redirect sends a 303 so that browsers follow with a GET after a form post.
func Redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// Attachment streams data as a file download.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

// Message returns the text safe to show to the user for err. Server errors
// never leak their cause.
func Message(err error) string {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		return genericFailure
	}
	return appErr.Message
}

// Error renders the error page with the status of err and attaches err to
// the context for the access log.
func Error(c *gin.Context, r PageRenderer, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	noStore(c)
	r.Render(c, appErr.Status, "error.html", gin.H{"Message": Message(err)})
}

// JSON sends a small status document, used by the probe endpoints.
func JSON(c *gin.Context, status int, data gin.H) {
	noStore(c)
	c.JSON(status, data)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
