package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicesmag/labcontrol/internal/dto"
	"github.com/unicesmag/labcontrol/internal/middleware"
	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/pkg/config"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
)

const sessionName = "labcontrol_session"

type renderSpy struct {
	status int
	name   string
	data   gin.H
}

func (r *renderSpy) Render(c *gin.Context, status int, name string, data gin.H) {
	r.status, r.name, r.data = status, name, data
	c.String(status, name)
}

func (r *renderSpy) flashes() []middleware.Flash {
	flashes, _ := r.data["Flashes"].([]middleware.Flash)
	return flashes
}

type recordServiceFake struct {
	created   []dto.RecordForm
	createErr error
	record    *models.LabRecord
	getErr    error
	result    *service.RecordUpdateResult
	updateErr error
	deleted   []string
}

func (f *recordServiceFake) Create(ctx context.Context, form dto.RecordForm) (*models.LabRecord, error) {
	f.created = append(f.created, form)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.LabRecord{ID: "rec-1"}, nil
}

func (f *recordServiceFake) Get(ctx context.Context, id string) (*models.LabRecord, error) {
	return f.record, f.getErr
}

func (f *recordServiceFake) Update(ctx context.Context, id string, form dto.RecordUpdateForm) (*service.RecordUpdateResult, error) {
	return f.result, f.updateErr
}

func (f *recordServiceFake) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type listerFake struct {
	records []models.LabRecord
	filters []models.RecordFilter
}

func (l *listerFake) List(ctx context.Context, filter models.RecordFilter) ([]models.LabRecord, error) {
	l.filters = append(l.filters, filter)
	return l.records, nil
}

func (l *listerFake) lastRange() *models.DateRange {
	if len(l.filters) == 0 {
		return nil
	}
	return l.filters[len(l.filters)-1].Range
}

type authServiceFake struct {
	user *models.User
	err  error
}

func (a *authServiceFake) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	return a.user, a.err
}

type userServiceFake struct {
	users    []models.User
	resetErr error
	deleted  []string
}

func (u *userServiceFake) List(ctx context.Context) ([]models.User, error) { return u.users, nil }

func (u *userServiceFake) Get(ctx context.Context, id string) (*models.User, error) {
	for _, user := range u.users {
		if user.ID == id {
			copy := user
			return &copy, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (u *userServiceFake) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if req.Password != req.Confirmation {
		return nil, &service.AuthError{Reason: models.ReasonPasswordMismatch}
	}
	user := models.User{ID: "u-new", Username: req.Username}
	u.users = append(u.users, user)
	return &user, nil
}

func (u *userServiceFake) ResetPassword(ctx context.Context, id string, req models.PasswordResetRequest) error {
	return u.resetErr
}

func (u *userServiceFake) Delete(ctx context.Context, id string) error {
	u.deleted = append(u.deleted, id)
	return nil
}

type pingerFake struct{ err error }

func (p pingerFake) PingContext(ctx context.Context) error { return p.err }

type harness struct {
	t       *testing.T
	router  *gin.Engine
	view    *renderSpy
	records *recordServiceFake
	lister  *listerFake
	auth    *authServiceFake
	users   *userServiceFake
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)
	store := middleware.NewCookieStore(config.SessionConfig{Secret: "handler-test-secret", MaxAge: time.Hour})
	sessions := middleware.NewSessionManager(store, sessionName, nil)

	h := &harness{
		t:       t,
		view:    &renderSpy{},
		records: &recordServiceFake{},
		lister:  &listerFake{},
		auth:    &authServiceFake{user: &models.User{ID: "u-1", Username: "admin"}},
		users:   &userServiceFake{users: []models.User{{ID: "u-1", Username: "admin"}, {ID: "u-2", Username: "bob"}}},
	}
	reports := service.NewReportService(h.lister, nil, nil, nil)

	h.router = gin.New()
	Register(h.router, Handlers{
		Records:     NewRecordHandler(h.records, reports, sessions, h.view, nil),
		Auth:        NewAuthHandler(h.auth, sessions, h.view),
		Users:       NewUserHandler(h.users, sessions, h.view),
		Reports:     NewReportHandler(reports, sessions, h.view),
		Metrics:     NewMetricsHandler(service.NewMetricsService(), pingerFake{}),
		Sessions:    sessions,
		MetricsPath: "/metrics",
	})
	return h
}

func (h *harness) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessionName {
			h.cookie = ck
		}
	}
	return w
}

func (h *harness) login() {
	w := h.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	require.Equal(h.t, http.StatusSeeOther, w.Code)
	require.Equal(h.t, "/admin", w.Header().Get("Location"))
}

func validRecordValues() url.Values {
	return url.Values{
		"identificador_laboratorio": {"Lab-3"},
		"nombre_docente":            {"Ana Pérez"},
		"correo_electronico":        {"ana@unicesmag.edu.co"},
		"programa":                  {"Ingeniería"},
		"hora_ingreso":              {"08:00"},
		"hora_salida":               {"10:00"},
		"observacion":               {"Proyector dañado"},
	}
}

func TestCreateRecordRedirectsWithFlash(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/add_data", validRecordValues())
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.Len(t, h.records.created, 1)
	assert.Equal(t, "Ana Pérez", h.records.created[0].InstructorName)

	h.do(http.MethodGet, "/", nil)
	assert.Equal(t, "index.html", h.view.name)
	require.Len(t, h.view.flashes(), 1)
	assert.Equal(t, msgRecordCreated, h.view.flashes()[0].Message)

	h.do(http.MethodGet, "/", nil)
	assert.Empty(t, h.view.flashes())
}

func TestCreateRecordValidationRerendersInput(t *testing.T) {
	h := newHarness(t)
	values := validRecordValues()
	values.Set("correo_electronico", "ana@gmail.com")
	h.records.createErr = &service.RecordValidationError{
		Cause: appErrors.Clone(appErrors.ErrInvalidEmail, "Correo electrónico no válido."),
		Input: dto.RecordForm{Email: "ana@gmail.com"},
	}

	w := h.do(http.MethodPost, "/add_data", values)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "index.html", h.view.name)
	assert.Equal(t, dto.RecordForm{Email: "ana@gmail.com"}, h.view.data["Form"])
	require.Len(t, h.view.flashes(), 1)
	assert.Equal(t, middleware.FlashWarning, h.view.flashes()[0].Category)
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/admin", "/users", "/register", "/reports", "/download", "/edit/x", "/goback", "/logout"} {
		w := h.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestLoginWrongPasswordKeepsAnonymous(t *testing.T) {
	h := newHarness(t)
	h.auth.err = &service.AuthError{Reason: models.ReasonBadCredentials}
	h.auth.user = nil

	w := h.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"bad"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "login.html", h.view.name)
	assert.Equal(t, models.ReasonBadCredentials, h.view.data["Reason"])

	w = h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoginOpensSessionAndLogoutCloses(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin.html", h.view.name)
	assert.Equal(t, true, h.view.data["LoggedIn"])
	require.NotEmpty(t, h.lister.filters)
	assert.True(t, h.lister.filters[0].NewestFirst)

	w = h.do(http.MethodGet, "/goback", nil)
	assert.Equal(t, "/admin", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/logout", nil)
	assert.Equal(t, "/", w.Header().Get("Location"))
	w = h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoginPageClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.do(http.MethodGet, "/login", nil)
	w := h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestFailedLoginDropsExistingSession(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.auth.err = &service.AuthError{Reason: models.ReasonBadCredentials, Err: appErrors.ErrInvalidCredentials}
	h.auth.user = nil
	w := h.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"bad"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReasonBadCredentials, h.view.data["Reason"])

	w = h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestUpdateFlashes(t *testing.T) {
	tests := []struct {
		name   string
		result *service.RecordUpdateResult
		want   string
	}{
		{"plain update", &service.RecordUpdateResult{}, msgRecordUpdated},
		{"notified", &service.RecordUpdateResult{ResponseChanged: true}, msgResponseSent},
		{"mail failed", &service.RecordUpdateResult{ResponseChanged: true, NotificationErr: errors.New("smtp down")}, msgResponseFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.login()
			h.records.result = tc.result

			values := validRecordValues()
			values.Set("fecha_registro", "2024-03-05T09:15:00")
			values.Set("respuesta_incidencia", "Resolved")
			w := h.do(http.MethodPost, "/update/rec-1", values)
			require.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, "/admin", w.Header().Get("Location"))

			h.do(http.MethodGet, "/admin", nil)
			require.Len(t, h.view.flashes(), 1)
			assert.Equal(t, tc.want, h.view.flashes()[0].Message)
		})
	}
}

func TestEditUnknownRecordRedirects(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.records.getErr = appErrors.Clone(appErrors.ErrNotFound, "record not found")

	w := h.do(http.MethodGet, "/edit/missing", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
}

func TestEditPrefillsForm(t *testing.T) {
	h := newHarness(t)
	h.login()
	resp := "Cable cambiado"
	h.records.record = &models.LabRecord{
		ID:               "rec-1",
		RegisteredAt:     time.Date(2024, 3, 5, 9, 15, 0, 0, time.Local),
		LabID:            "Lab-3",
		CheckIn:          "08:00:00",
		IncidentResponse: &resp,
	}

	w := h.do(http.MethodGet, "/edit/rec-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	form, ok := h.view.data["Form"].(dto.RecordUpdateForm)
	require.True(t, ok)
	assert.Equal(t, "2024-03-05T09:15:00", form.RegisteredAt)
	assert.Equal(t, "Cable cambiado", form.IncidentResponse)
}

func TestDeleteRecord(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodGet, "/delete/rec-9", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []string{"rec-9"}, h.records.deleted)
}

func TestDownloadUsesRememberedRange(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodPost, "/generate", url.Values{"start_date": {"2024-03-01"}, "end_date": {"2024-03-31"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reports.html", h.view.name)

	w = h.do(http.MethodGet, "/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reporte_control_laboratorios_sistemas_")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	rng := h.lister.lastRange()
	require.NotNil(t, rng)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), rng.From)

	w = h.do(http.MethodGet, "/download?start_date=2024-02-01&end_date=2024-02-02&format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	rng = h.lister.lastRange()
	require.NotNil(t, rng)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local), rng.From)

	h.do(http.MethodGet, "/generate", nil)
	h.do(http.MethodGet, "/download", nil)
	assert.Nil(t, h.lister.lastRange())
}

func TestGenerateRejectsInvertedRange(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodPost, "/generate", url.Values{"start_date": {"2024-03-31"}, "end_date": {"2024-03-01"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Len(t, h.view.flashes(), 1)
	assert.Empty(t, h.lister.filters)
}

func TestRegisterLogsInAsNewUser(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodPost, "/register", url.Values{"username": {"carla"}, "password": {"a"}, "confirmation": {"b"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReasonPasswordMismatch, h.view.data["Reason"])

	w = h.do(http.MethodPost, "/register", url.Values{"username": {"carla"}, "password": {"a"}, "confirmation": {"a"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	h.do(http.MethodGet, "/deleteuser/u-new", nil)
	w = h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code, "deleting the account in use ends the session")
}

func TestRestorePassword(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.users.resetErr = &service.AuthError{Reason: models.ReasonEmptyPassword}
	w := h.do(http.MethodPost, "/restore/u-2", url.Values{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "restore.html", h.view.name)
	assert.Equal(t, models.ReasonEmptyPassword, h.view.data["Reason"])

	h.users.resetErr = nil
	w = h.do(http.MethodPost, "/restore/u-2", url.Values{"password": {"n"}, "confirmation": {"n"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/restore/u-404", nil)
	assert.Equal(t, "/users", w.Header().Get("Location"))
}

func TestProbes(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/ready", nil).Code)

	w := h.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
