package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hall-adp-api/internal/handler"
	"github.com/noah-isme/hall-adp-api/internal/models"
	"github.com/noah-isme/hall-adp-api/internal/service"
	"github.com/noah-isme/hall-adp-api/pkg/config"
)

type stubTokens map[string]models.UserRole

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &models.JWTClaims{UserID: token, Role: role}, nil
}

func newTestRouter(env string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{Env: env, APIPrefix: "/api/v1"}
	registerRoutes(r, cfg, stubTokens{"student": models.RoleStudent, "admin": models.RoleAdmin}, routeHandlers{
		auth:       handler.NewAuthHandler(nil),
		rooms:      handler.NewRoomHandler(nil),
		allotments: handler.NewAllotmentHandler(nil),
		reports:    handler.NewReportHandler(nil),
		metrics:    handler.NewMetricsHandler(service.NewMetricsService(), nil),
	})
	return r
}

func call(r http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRoutesEnforceAuthentication(t *testing.T) {
	r := newTestRouter(config.EnvDevelopment)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/room-availability/1/A", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/api/v1/apply", "forged"))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ready", ""))
}

func TestRoutesEnforceRoles(t *testing.T) {
	r := newTestRouter(config.EnvDevelopment)

	for _, route := range [][2]string{
		{http.MethodPost, "/api/v1/admin-action/req-1"},
		{http.MethodPost, "/api/v1/allocate-by-admin/req-1"},
		{http.MethodGet, "/api/v1/admin/requests"},
		{http.MethodPost, "/api/v1/admin/bulk-deallocate"},
		{http.MethodGet, "/api/v1/admin/occupancy-report"},
	} {
		assert.Equal(t, http.StatusForbidden, call(r, route[0], route[1], "student"), route[1])
	}
	for _, route := range [][2]string{
		{http.MethodPost, "/api/v1/apply"},
		{http.MethodPost, "/api/v1/change"},
		{http.MethodPost, "/api/v1/cancel-request/req-1"},
		{http.MethodGet, "/api/v1/student-status"},
	} {
		assert.Equal(t, http.StatusForbidden, call(r, route[0], route[1], "admin"), route[1])
	}

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/admin/system-metrics", "admin"))
}

func TestSwaggerOnlyOutsideProduction(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, call(newTestRouter(config.EnvProduction), http.MethodGet, "/docs/index.html", ""))
	assert.Equal(t, http.StatusOK, call(newTestRouter(config.EnvDevelopment), http.MethodGet, "/docs/index.html", ""))
}
