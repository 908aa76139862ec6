package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yishak-cs/FlavorAI/internal/ingest"
	"github.com/yishak-cs/FlavorAI/internal/models"
	"github.com/yishak-cs/FlavorAI/internal/services"
)

type stubTaste struct {
	err error

	gotUser    string
	gotArchive []byte
	gotRequest services.RecommendRequest
	gotAnswers models.OnboardingAnswers
}

func (s *stubTaste) ProcessTakeout(_ context.Context, userID string, archive io.ReaderAt, size int64) (services.ProcessResult, error) {
	s.gotUser = userID
	buf := make([]byte, size)
	if _, err := archive.ReadAt(buf, 0); err != nil && err != io.EOF {
		return services.ProcessResult{}, err
	}
	s.gotArchive = buf
	if s.err != nil {
		return services.ProcessResult{}, s.err
	}
	return services.ProcessResult{RunID: "run-1", Profile: profileFor(userID)}, nil
}

func (s *stubTaste) Onboard(_ context.Context, userID string, answers models.OnboardingAnswers) (models.TasteProfile, error) {
	s.gotUser, s.gotAnswers = userID, answers
	return profileFor(userID), s.err
}

func (s *stubTaste) GetProfile(_ context.Context, userID string) (models.TasteProfile, error) {
	s.gotUser = userID
	if s.err != nil {
		return models.TasteProfile{}, s.err
	}
	return profileFor(userID), nil
}

func (s *stubTaste) SubmitFeedback(_ context.Context, userID string, _ models.Feedback) (services.FeedbackResult, error) {
	s.gotUser = userID
	if s.err != nil {
		return services.FeedbackResult{}, s.err
	}
	return services.FeedbackResult{Profile: profileFor(userID), Adjusted: []models.FlavorAxis{models.AxisSalt}}, nil
}

func (s *stubTaste) Recommend(_ context.Context, userID string, req services.RecommendRequest) ([]models.Recommendation, error) {
	s.gotUser, s.gotRequest = userID, req
	if s.err != nil {
		return nil, s.err
	}
	return []models.Recommendation{{CandidateID: "v1", Name: "Thai Basil", Score: 0.9, MatchReasons: []string{}, Rank: 1}}, nil
}

func profileFor(userID string) models.TasteProfile {
	return models.TasteProfile{
		UserID:              userID,
		FlavorAxes:          models.NeutralFlavorAxes(),
		CuisineAffinities:   []models.CuisineAffinity{},
		DietaryRestrictions: []string{},
		FrequentDishes:      []string{},
	}
}

type stubHealth struct{ err error }

func (h stubHealth) Health(context.Context) error { return h.err }

func newRouter(svc TasteAPI, health HealthChecker, maxArchive int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAPIHandler(svc, health, maxArchive).SetupRoutes(router)
	return router
}

func do(router *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func multipartArchive(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "takeout.zip")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	w := do(newRouter(&stubTaste{}, stubHealth{}, 0), http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(newRouter(&stubTaste{}, stubHealth{err: errors.New("neo4j unreachable")}, 0), http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUploadTakeout(t *testing.T) {
	svc := &stubTaste{}
	router := newRouter(svc, nil, 1024)

	body, contentType := multipartArchive(t, "archive", []byte("zip bytes"))
	w := do(router, http.MethodPost, "/api/takeout/u1", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.gotUser)
	assert.Equal(t, []byte("zip bytes"), svc.gotArchive)
	assert.Equal(t, "run-1", decode(t, w)["run_id"])
}

func TestUploadTakeoutRejections(t *testing.T) {
	router := newRouter(&stubTaste{}, nil, 4)

	body, contentType := multipartArchive(t, "archive", []byte("too many bytes"))
	w := do(router, http.MethodPost, "/api/takeout/u1", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	body, contentType = multipartArchive(t, "file", []byte("zip"))
	w = do(router, http.MethodPost, "/api/takeout/u1", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = newRouter(&stubTaste{err: fmt.Errorf("failed to ingest archive: %w", ingest.ErrInvalidArchive)}, nil, 0)
	body, contentType = multipartArchive(t, "archive", []byte("zip"))
	w = do(router, http.MethodPost, "/api/takeout/u1", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTakeoutCapsRequestBody(t *testing.T) {
	svc := &stubTaste{}
	router := newRouter(svc, nil, 4)
	archive := bytes.Repeat([]byte("z"), 2*multipartOverhead)

	// declared length over the cap is refused before the form is parsed
	body, contentType := multipartArchive(t, "archive", archive)
	w := do(router, http.MethodPost, "/api/takeout/u1", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// a streamed body with no length stops at the cap
	body, contentType = multipartArchive(t, "archive", archive)
	w = do(router, http.MethodPost, "/api/takeout/u1", io.MultiReader(body), contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Empty(t, svc.gotUser)
}

func TestOnboarding(t *testing.T) {
	svc := &stubTaste{}
	router := newRouter(svc, nil, 0)

	w := do(router, http.MethodPost, "/api/onboarding/u1",
		strings.NewReader(`{"favorites":["Tacos"],"allergies":["Peanuts"]}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Onboarding data saved.", decode(t, w)["message"])
	assert.Equal(t, []string{"Tacos"}, svc.gotAnswers.Favorites)
	assert.Equal(t, []string{"Peanuts"}, svc.gotAnswers.Allergies)

	w = do(router, http.MethodPost, "/api/onboarding/u1", strings.NewReader(`{"favorites":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserProfile(t *testing.T) {
	w := do(newRouter(&stubTaste{}, nil, 0), http.MethodGet, "/api/userprofile/u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "Medium", body["flavor_axes"].(map[string]interface{})["spice"])

	w = do(newRouter(&stubTaste{err: models.ErrProfileNotFound}, nil, 0), http.MethodGet, "/api/userprofile/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No profile for user ghost", decode(t, w)["error"])
}

func TestGetRecommendations(t *testing.T) {
	svc := &stubTaste{}
	router := newRouter(svc, nil, 0)

	w := do(router, http.MethodPost, "/api/recommendations/u1",
		strings.NewReader(`{"lat":40.7,"lon":-74,"radius_value":2,"radius_unit":"km","triedFoods":["Tacos"],"n":5}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotRequest.RadiusValue)
	assert.Equal(t, 2.0, *svc.gotRequest.RadiusValue)
	assert.Equal(t, "km", svc.gotRequest.RadiusUnit)
	assert.Equal(t, []string{"Tacos"}, svc.gotRequest.TriedFoods)
	require.NotNil(t, svc.gotRequest.N)
	assert.Equal(t, 5, *svc.gotRequest.N)

	body := decode(t, w)
	assert.Equal(t, "u1", body["user_id"])
	recs := body["recommendations"].([]interface{})
	require.Len(t, recs, 1)
	assert.Equal(t, "v1", recs[0].(map[string]interface{})["restaurant_id"])

	// an empty body uses the defaults
	w = do(router, http.MethodPost, "/api/recommendations/u1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.gotRequest.N)
}

func TestGetRecommendationsConfigurationError(t *testing.T) {
	svc := &stubTaste{err: models.NewConfigurationError("radius", "must be non-negative, got %v", -1)}
	w := do(newRouter(svc, nil, 0), http.MethodPost, "/api/recommendations/u1", strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "configuration", body["kind"])
	assert.Equal(t, "radius", body["field"])
}

func TestSubmitFeedback(t *testing.T) {
	router := newRouter(&stubTaste{}, nil, 0)

	w := do(router, http.MethodPost, "/api/feedback/u1",
		strings.NewReader(`{"restaurant_name":"Salty Dog","favorability":0.4,"comment":"too salty"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Feedback recorded for Salty Dog.", body["message"])
	assert.Equal(t, []interface{}{"salt"}, body["adjusted_axes"])

	w = do(router, http.MethodPost, "/api/feedback/u1", strings.NewReader(`{"favorability":0.4}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/feedback/u1", strings.NewReader(`{"restaurant_name":"X","favorability":3}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnexpectedErrorsAreInternal(t *testing.T) {
	w := do(newRouter(&stubTaste{err: errors.New("boom")}, nil, 0), http.MethodGet, "/api/userprofile/u1", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to get profile", decode(t, w)["error"])

	w = do(newRouter(&stubTaste{err: context.Canceled}, nil, 0), http.MethodGet, "/api/userprofile/u1", nil, "")
	assert.Equal(t, 499, w.Code)
}
