package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"skilltrack_backend/internal/ledger"
	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/service"
	"skilltrack_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	skills []model.SkillCatalogEntry
	steps  map[string]*model.SkillSteps
}

func (c *fakeCatalog) Skills() []model.SkillCatalogEntry { return c.skills }

func (c *fakeCatalog) Steps(skillID string) (*model.SkillSteps, error) {
	s, ok := c.steps[skillID]
	if !ok {
		return nil, util.ErrSkillNotFound
	}
	return s, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewProgressRepository(
		repository.NewFileBackend(filepath.Join(t.TempDir(), "user_progress.json")), nil)
	require.NoError(t, repo.Init(context.Background()))

	catalog := &fakeCatalog{
		skills: []model.SkillCatalogEntry{
			{SkillID: "beginner-wheeling-forward", Title: "Wheeling forward", Level: "beginner", TotalSteps: 3},
			{SkillID: "beginner-turn-on-spot", Title: "Turn on the spot", Level: "beginner", TotalSteps: 2},
		},
		steps: map[string]*model.SkillSteps{
			"beginner-wheeling-forward": {SkillID: "beginner-wheeling-forward", Title: "Wheeling forward", TotalSteps: 3},
		},
	}

	l := ledger.New()
	progressService := service.NewProgressService(repo, l)
	analyticsService := service.NewAnalyticsService(repo, nil, time.Minute)

	progress := NewProgressController(progressService, catalog)
	analytics := NewAnalyticsController(analyticsService, service.NewExportService(analyticsService))
	recommend := NewRecommendationController(
		service.NewRecommendationService(repo, catalog),
		service.NewTrainingPlanService(repo, catalog))
	skills := NewSkillController(catalog)
	health := NewHealthController(repo, l)

	r := gin.New()
	r.GET("/health", health.HealthCheck)
	api := r.Group("/api")
	{
		api.GET("/skills", skills.ListSkills)
		api.GET("/skills/:skill_id/steps", skills.GetSkillSteps)

		api.POST("/user/:user_id/create", progress.CreateUser)
		api.GET("/user/:user_id/progress", progress.GetProgress)
		api.POST("/user/:user_id/skill/:skill_id/start-attempt", progress.StartAttempt)
		api.DELETE("/user/:user_id/clear-progress", progress.ClearProgress)
		api.POST("/attempt/:attempt_id/record-input", progress.RecordInput)
		api.POST("/attempt/:attempt_id/record-error", progress.RecordError)
		api.POST("/attempt/:attempt_id/record-step", progress.RecordStep)
		api.POST("/attempt/:attempt_id/complete", progress.CompleteAttempt)

		api.GET("/user/:user_id/skill/:skill_id/stats", analytics.GetSkillStats)
		api.GET("/user/:user_id/skill/:skill_id/success-rate", analytics.GetSuccessRate)
		api.GET("/user/:user_id/common-errors", analytics.GetCommonErrors)
		api.GET("/user/:user_id/weak-steps", analytics.GetWeakSteps)
		api.GET("/user/:user_id/skill-comparisons", analytics.GetSkillComparisons)
		api.GET("/analytics/global-errors", analytics.GetGlobalErrorStats)
		api.GET("/analytics/global-errors/export", analytics.ExportGlobalErrorStats)
		api.GET("/analytics/skill/:skill_id/errors", analytics.GetSkillErrorStats)

		api.GET("/user/:user_id/recommended-skills", recommend.GetRecommendedSkills)
		api.POST("/user/:user_id/update-phase", recommend.UpdatePhase)
		api.POST("/user/:user_id/generate-plan", recommend.GenerateTrainingPlan)
	}
	return r, l
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestAttemptLifecycleOverHTTP(t *testing.T) {
	r, l := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/user/u1/skill/beginner-wheeling-forward/start-attempt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var started struct {
		AttemptID  string            `json:"attempt_id"`
		SkillID    string            `json:"skill_id"`
		SkillSteps *model.SkillSteps `json:"skill_steps"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.Regexp(t, `^att_[0-9a-f]{16}$`, started.AttemptID)
	require.NotNil(t, started.SkillSteps)
	assert.Equal(t, 3, started.SkillSteps.TotalSteps)
	assert.Equal(t, 1, l.Len())

	base := "/api/attempt/" + started.AttemptID
	w, _ = do(t, r, http.MethodPost, base+"/record-input", gin.H{"step_number": 1, "expected_input": "W", "actual_input": "S"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, base+"/record-error", gin.H{
		"step_number": 1, "error_type": "wrong_direction", "expected_action": "push", "actual_action": "pull",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, base+"/record-step", `{"stepNumber":2,"holdDuration":1.5,"success":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, base+"/complete", gin.H{"success": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, l.Len())

	w, _ = do(t, r, http.MethodPost, base+"/complete", gin.H{"success": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/user/u1/skill/beginner-wheeling-forward/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.SkillStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Attempts)
	assert.Equal(t, 0, stats.SuccessfulAttempts)
	assert.Equal(t, 1, stats.TotalErrors)

	w, env = do(t, r, http.MethodGet, "/api/user/u1/weak-steps?skill_id=beginner-wheeling-forward", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var weak struct {
		WeakSteps []model.WeakStep `json:"weak_steps"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &weak))
	assert.Equal(t, []model.WeakStep{{StepNumber: 1, ErrorCount: 1}}, weak.WeakSteps)
}

func TestStartAttemptWithoutStepDefinition(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/user/u1/skill/unknown-skill/start-attempt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var started map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.JSONEq(t, "null", string(started["skill_steps"]))
}

func TestUnknownAttemptIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, tc := range []struct {
		path string
		body any
	}{
		{"/api/attempt/att_missing/record-input", gin.H{"step_number": 1, "expected_input": "W"}},
		{"/api/attempt/att_missing/record-error", gin.H{"step_number": 1, "error_type": "timing"}},
		{"/api/attempt/att_missing/record-step", `{"step_number":1}`},
		{"/api/attempt/att_missing/complete", gin.H{"success": true}},
	} {
		w, env := do(t, r, http.MethodPost, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
		assert.Equal(t, util.ErrAttemptNotFound.Error(), env.Message, tc.path)
	}
}

func TestBadRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := do(t, r, http.MethodPost, "/api/attempt/att_x/complete", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/attempt/att_x/record-error", `{"step_number":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/user/u1/weak-steps", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordStepRejectsNonJSONBody(t *testing.T) {
	r, l := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/user/u1/skill/beginner-wheeling-forward/start-attempt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var started struct {
		AttemptID string `json:"attempt_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	base := "/api/attempt/" + started.AttemptID

	for _, body := range []string{"stepNumber=2&success=true", `{"stepNumber":2`, ""} {
		w, env = do(t, r, http.MethodPost, base+"/record-step", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "request body is not valid JSON", env.Message, body)
	}

	a, ok := l.Get(started.AttemptID)
	require.True(t, ok)
	assert.Empty(t, a.StepTelemetry)

	w, _ = do(t, r, http.MethodPost, base+"/record-step", `{"step_number":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	a, _ = l.Get(started.AttemptID)
	assert.Len(t, a.StepTelemetry, 1)
}

func TestUnknownUserIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/user/ghost/progress",
		"/api/user/ghost/common-errors",
		"/api/user/ghost/skill-comparisons",
		"/api/user/ghost/recommended-skills",
	} {
		w, _ := do(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w, _ := do(t, r, http.MethodDelete, "/api/user/ghost/clear-progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/user/ghost/update-phase", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/user/ghost/generate-plan", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWeakStepsForUnattemptedSkillIsEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/user/u1/create", nil)

	w, env := do(t, r, http.MethodGet, "/api/user/u1/weak-steps?skill_id=beginner-turn-on-spot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"weak_steps":[]}`, string(env.Data))
}

func TestRecommendationsAndPlan(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/user/u1/create", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, model.PhaseFoundation, user.CurrentPhase)

	w, env = do(t, r, http.MethodGet, "/api/user/u1/recommended-skills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs struct {
		Recommendations []model.RecommendedSkill `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	require.Len(t, recs.Recommendations, 2)
	assert.Equal(t, "Not attempted yet", recs.Recommendations[0].Reason)

	w, env = do(t, r, http.MethodPost, "/api/user/u1/update-phase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"current_phase":"Foundation"}`, string(env.Data))

	w, env = do(t, r, http.MethodPost, "/api/user/u1/generate-plan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plan model.TrainingPlan
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	assert.Equal(t, "u1", plan.UserID)
	assert.NotEmpty(t, plan.Notes)
}

func TestSkillsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/skills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Skills []model.SkillCatalogEntry `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Skills, 2)

	w, _ = do(t, r, http.MethodGet, "/api/skills/beginner-wheeling-forward/steps", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/api/skills/nope/steps", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGlobalAnalyticsAndExport(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/analytics/global-errors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.GlobalErrorStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 0, stats.TotalAttempts)

	w, _ = do(t, r, http.MethodGet, "/api/analytics/skill/beginner-turn-on-spot/errors", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/analytics/global-errors/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, env.Code)
}
