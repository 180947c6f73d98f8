package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/astrolozee/consult/models"
	"github/astrolozee/consult/services"
)

type stubConsultService struct {
	resp    *models.ConsultResponse
	err     error
	cleared []string
}

func (s *stubConsultService) Consult(_ context.Context, req models.ConsultRequest) (*models.ConsultResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp := *s.resp
	resp.Question = req.Question
	return &resp, nil
}

func (s *stubConsultService) ClearSession(sessionID string) {
	s.cleared = append(s.cleared, sessionID)
}

func newTestRouter(svc services.ConsultService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctrl := NewConsultController(svc, nil)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(APIKeyAuth("test-key"))
	api.POST("/ask", ctrl.Ask)
	api.DELETE("/session/:id", ctrl.ClearSession)
	return router
}

func TestAskRequiresAPIKey(t *testing.T) {
	router := newTestRouter(&stubConsultService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"hi"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAskHappyPath(t *testing.T) {
	svc := &stubConsultService{resp: &models.ConsultResponse{
		Category:         "Marriage",
		Answer:           "Saturn delays marriage until 2026.",
		Remedy:           "Fast on Saturdays.",
		RetrievedSources: []map[string]interface{}{},
	}}
	router := newTestRouter(svc)

	body := `{"question":"will it delay my marriage?","religion":"hindu"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	req.Header.Set("x-api-key", "test-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"Marriage"`)
	assert.Contains(t, w.Body.String(), "will it delay my marriage?")
}

func TestAskRejectsUnknownReligion(t *testing.T) {
	router := newTestRouter(&stubConsultService{resp: &models.ConsultResponse{}})

	body := `{"question":"hello","religion":"martian"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	req.Header.Set("x-api-key", "test-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskMapsInvalidQuestionToBadRequest(t *testing.T) {
	router := newTestRouter(&stubConsultService{err: services.ErrInvalidQuestion})

	body := `{"question":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	req.Header.Set("x-api-key", "test-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearSessionDelegates(t *testing.T) {
	svc := &stubConsultService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/session/s1", nil)
	req.Header.Set("x-api-key", "test-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1"}, svc.cleared)
}
