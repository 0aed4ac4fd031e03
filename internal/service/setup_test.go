package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"skilltrack_backend/internal/ledger"
	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/repository"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type staticCatalog []model.SkillCatalogEntry

func (c staticCatalog) Skills() []model.SkillCatalogEntry { return c }

type testEnv struct {
	repo      *repository.ProgressRepository
	progress  *ProgressService
	analytics *AnalyticsService
	recommend *RecommendationService
	plans     *TrainingPlanService
}

func newTestEnv(t *testing.T, catalog staticCatalog) *testEnv {
	t.Helper()
	clock := func() time.Time { return testNow }

	repo := repository.NewProgressRepository(
		repository.NewFileBackend(filepath.Join(t.TempDir(), "user_progress.json")), nil)
	repo.Now = clock
	require.NoError(t, repo.Init(context.Background()))

	progress := NewProgressService(repo, ledger.New())
	progress.Now = clock
	analytics := NewAnalyticsService(repo, nil, time.Minute)
	analytics.Now = clock
	plans := NewTrainingPlanService(repo, catalog)
	plans.Now = clock

	return &testEnv{
		repo:      repo,
		progress:  progress,
		analytics: analytics,
		recommend: NewRecommendationService(repo, catalog),
		plans:     plans,
	}
}

type stepErr struct {
	step             int
	errType          string
	expected, actual string
}

// runAttempt starts, records errors for and completes one attempt.
func (e *testEnv) runAttempt(t *testing.T, userID, skillID string, success bool, errs ...stepErr) string {
	t.Helper()
	ctx := context.Background()
	id, err := e.progress.StartAttempt(ctx, userID, skillID)
	require.NoError(t, err)
	for _, se := range errs {
		require.NoError(t, e.progress.RecordError(id, se.step, se.errType, se.expected, se.actual))
	}
	require.NoError(t, e.progress.CompleteAttempt(ctx, id, success))
	return id
}

// seedProgress writes a user with preset success rates straight into the store.
func (e *testEnv) seedProgress(t *testing.T, userID string, phase model.Phase, rates map[string][2]int) {
	t.Helper()
	require.NoError(t, e.repo.Update(context.Background(), func(doc *model.Document) error {
		u := model.NewUser(userID, testNow)
		u.CurrentPhase = phase
		for skill, r := range rates {
			p := model.NewSkillProgress(skill)
			for i := 0; i < r[1]; i++ {
				p.RecordOutcome(i < r[0])
			}
			u.SkillProgress[skill] = p
		}
		doc.Users[userID] = u
		return nil
	}))
}
