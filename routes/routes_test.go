package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/carnival-system/handlers"
	"github.com/Dosada05/carnival-system/middleware"
	"github.com/Dosada05/carnival-system/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

type listOnlyRegistrations struct {
	handlers.RegistrationManager
}

func (listOnlyRegistrations) ListByCarnival(_ context.Context, carnivalID int, _ bool) ([]*models.AttendanceRegistration, error) {
	return []*models.AttendanceRegistration{{ID: 1, CarnivalID: carnivalID, ClubID: 2}}, nil
}

func newRouter() *chi.Mux {
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Registrations: handlers.NewRegistrationHandler(listOnlyRegistrations{}),
	}, testSecret, []string{"http://localhost:3000"})
	return router
}

func TestRegistrationListRequiresToken(t *testing.T) {
	router := newRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carnivals/4/registrations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := middleware.GenerateToken([]byte(testSecret),
		&models.User{ID: 21, Role: models.RolePrimaryDelegate}, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carnivals/4/registrations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registrations"`)
}
