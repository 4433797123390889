package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/pkg/config"
)

// ContextUserKey is the gin context key storing the authenticated user id.
const ContextUserKey = "currentUserID"

const (
	sessionUserKey  = "user_id"
	sessionStartKey = "start_date"
	sessionEndKey   = "end_date"
)

// Flash categories understood by the templates.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
)

var flashCategories = []string{FlashSuccess, FlashWarning, FlashError}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// NewCookieStore builds the signed cookie store backing every session.
func NewCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionManager reads and writes the administrator session cookie.
type SessionManager struct {
	store  sessions.Store
	name   string
	logger *zap.Logger
}

// NewSessionManager wraps store under the given cookie name.
func NewSessionManager(store sessions.Store, name string, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{store: store, name: name, logger: logger}
}

// session returns the current session. A cookie that fails to decode, for
// example after a secret rotation, yields a fresh empty session.
func (m *SessionManager) session(c *gin.Context) *sessions.Session {
	sess, err := m.store.Get(c.Request, m.name)
	if err != nil {
		m.logger.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	return sess
}

func (m *SessionManager) save(c *gin.Context, sess *sessions.Session) error {
	if err := sess.Save(c.Request, c.Writer); err != nil {
		m.logger.Warn("failed to save session", zap.Error(err))
		return err
	}
	return nil
}

// UserID returns the logged-in user id, or "" for anonymous requests.
func (m *SessionManager) UserID(c *gin.Context) string {
	id, _ := m.session(c).Values[sessionUserKey].(string)
	return id
}

// Login replaces the session contents with the given user.
func (m *SessionManager) Login(c *gin.Context, userID string) error {
	sess := m.session(c)
	sess.Values = map[interface{}]interface{}{sessionUserKey: userID}
	return m.save(c, sess)
}

// Clear drops every value of the session, including pending flashes.
func (m *SessionManager) Clear(c *gin.Context) error {
	sess := m.session(c)
	sess.Values = map[interface{}]interface{}{}
	return m.save(c, sess)
}

// SetDateRange remembers the last report filter.
func (m *SessionManager) SetDateRange(c *gin.Context, start, end string) error {
	sess := m.session(c)
	sess.Values[sessionStartKey] = start
	sess.Values[sessionEndKey] = end
	return m.save(c, sess)
}

// DateRange returns the remembered report filter.
func (m *SessionManager) DateRange(c *gin.Context) (start, end string) {
	sess := m.session(c)
	start, _ = sess.Values[sessionStartKey].(string)
	end, _ = sess.Values[sessionEndKey].(string)
	return start, end
}

// AddFlash queues a message for the next rendered page.
func (m *SessionManager) AddFlash(c *gin.Context, category, message string) error {
	sess := m.session(c)
	sess.AddFlash(message, category)
	return m.save(c, sess)
}

// Flashes pops every queued message. It must run before the response body
// is written because it rewrites the cookie.
func (m *SessionManager) Flashes(c *gin.Context) []Flash {
	sess := m.session(c)
	var out []Flash
	for _, category := range flashCategories {
		for _, v := range sess.Flashes(category) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Category: category, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = m.save(c, sess)
	}
	return out
}

// RequireSession redirects anonymous requests to the login page and exposes
// the user id to handlers under ContextUserKey.
func (m *SessionManager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := m.UserID(c)
		if userID == "" {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}
