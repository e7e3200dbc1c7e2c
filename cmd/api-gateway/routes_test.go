package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/el-siradj/SCHOOL/internal/handler"
	"github.com/el-siradj/SCHOOL/internal/models"
	"github.com/el-siradj/SCHOOL/internal/service"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

type staticTokens map[string]models.UserRole

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{UserID: "u-" + token, Role: role}, nil
}

func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, routeDeps{
		prefix:       "/api/v1",
		tokens:       staticTokens{"officer": models.RoleTimetableOfficer, "teacher": models.RoleTeacher, "director": models.RoleDirector},
		plannerRoles: []string{string(models.RoleTimetableOfficer), string(models.RoleDirector)},
		setupRoles:   []string{string(models.RoleDirector)},
		metrics:      handler.NewMetricsHandler(service.NewMetricsService(), nil, nil),
		planner:      handler.NewTimetablePlannerHandler(nil),
		slots:        handler.NewTimetableSlotHandler(nil),
		views:        handler.NewTimetableExportHandler(nil),
		setup:        handler.NewTimetableSetupHandler(nil, nil),
	})
	return r
}

func TestRoutesEnforceAuthentication(t *testing.T) {
	router := buildTestRouter()
	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"planner needs a token", http.MethodGet, "/api/v1/timetable/planner/class/1", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/timetable/planner/class/1", "forged", http.StatusUnauthorized},
		{"teacher cannot plan", http.MethodPost, "/api/v1/timetable/planner/autofill/class/1", "teacher", http.StatusForbidden},
		{"officer cannot edit setup", http.MethodPut, "/api/v1/timetable-admin/level-subjects", "officer", http.StatusForbidden},
		{"officer reaches handler", http.MethodDelete, "/api/v1/timetable/slots/abc", "officer", http.StatusBadRequest},
		{"director reaches setup handler", http.MethodGet, "/api/v1/timetable-admin/teachers/abc/subjects", "director", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
