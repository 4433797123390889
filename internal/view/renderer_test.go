package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplatesRender(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := New("")
	require.NoError(t, err)

	pages := map[string]gin.H{
		"index.html":    {"Form": map[string]string{}},
		"login.html":    {"Reason": 3},
		"register.html": {"Reason": 5},
		"error.html":    {"Message": "boom"},
		"reports.html":  {"StartDate": "2024-03-01", "EndDate": "2024-03-02", "LoggedIn": true},
	}
	for name, data := range pages {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			r.Render(c, http.StatusOK, name, data)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "<html")
		})
	}
}

func TestLoginReasonMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := New("")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	r.Render(c, http.StatusOK, "login.html", gin.H{"Reason": 3})
	assert.Contains(t, w.Body.String(), "Usuario o contraseña incorrectos.")
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New("/does/not/exist")
	assert.Error(t, err)
}
