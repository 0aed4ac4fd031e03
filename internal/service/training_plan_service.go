package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/util"
)

const (
	planRecommendations = 5
	planFocusSkills     = 3
	planCommonErrors    = 10
	planFailedSkills    = 3
	planMistakes        = 5
	planProblemSteps    = 5
)

var phaseNotes = map[model.Phase]string{
	model.PhaseFoundation: "Focus on basic movements: forward, backward and turning",
	model.PhaseMobility:   "Work on terrain skills and obstacles",
	model.PhaseAdvanced:   "Advanced techniques and emergency skills",
}

// TrainingPlanService 基于存储的同一份快照生成训练计划，
// 从不写入
type TrainingPlanService struct {
	Repo    *repository.ProgressRepository
	Catalog SkillCatalog
	Now     func() time.Time
}

func NewTrainingPlanService(repo *repository.ProgressRepository, catalog SkillCatalog) *TrainingPlanService {
	return &TrainingPlanService{
		Repo:    repo,
		Catalog: catalog,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *TrainingPlanService) GeneratePlan(ctx context.Context, userID string) (*model.TrainingPlan, error) {
	var plan *model.TrainingPlan
	err := s.Repo.View(ctx, func(doc *model.Document) error {
		user, ok := doc.Users[userID]
		if !ok {
			return util.ErrUserNotFound
		}
		plan = composePlan(doc, user, s.Catalog.Skills(), s.Now())
		return nil
	})
	return plan, err
}

func head[T any](list []T, n int) []T {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// focusSkills 按技能汇总给定错误的次数，保留前几个技能
func focusSkills(errs []model.CommonError) []model.FocusSkill {
	out := []model.FocusSkill{}
	index := make(map[string]int)
	for _, e := range errs {
		i, ok := index[e.SkillID]
		if !ok {
			i = len(out)
			index[e.SkillID] = i
			out = append(out, model.FocusSkill{SkillID: e.SkillID, ErrorTypes: []string{}})
		}
		out[i].TotalErrors += e.Count
		out[i].ErrorTypes = append(out[i].ErrorTypes, e.ErrorType)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalErrors > out[j].TotalErrors })
	return head(out, planFocusSkills)
}

func composePlan(doc *model.Document, user *model.User, catalog []model.SkillCatalogEntry, now time.Time) *model.TrainingPlan {
	recommended := recommendSkills(user, catalog)
	yourErrors := head(commonErrors(user, ""), planCommonErrors)
	focus := focusSkills(yourErrors)
	global := globalErrorStats(doc, now)

	failed := make([]string, 0, planFailedSkills)
	for _, sk := range head(global.SkillSummary, planFailedSkills) {
		failed = append(failed, sk.SkillID)
	}

	plan := &model.TrainingPlan{
		UserID:            user.UserID,
		CurrentPhase:      user.CurrentPhase,
		GeneratedAt:       now,
		RecommendedSkills: head(recommended, planRecommendations),
		FocusSkills:       focus,
		SessionGoals:      []string{},
		Notes:             []string{},
		GlobalInsights: model.GlobalInsights{
			MostFailedSkills: failed,
			CommonMistakes:   head(global.ActionConfusion, planMistakes),
			ProblematicSteps: head(global.ProblematicSteps, planProblemSteps),
		},
		YourCommonErrors: yourErrors,
		SkillComparisons: skillComparisons(doc, user),
	}

	if len(recommended) > 0 {
		plan.SessionGoals = append(plan.SessionGoals,
			fmt.Sprintf("Priority skill: %s - %s", recommended[0].Title, recommended[0].Reason))
	}
	if len(focus) > 0 {
		plan.Notes = append(plan.Notes,
			fmt.Sprintf("Watch out: frequent errors in '%s'", focus[0].SkillID))
	}

	note, ok := phaseNotes[user.CurrentPhase]
	if !ok {
		note = phaseNotes[model.PhaseAdvanced]
	}
	plan.Notes = append(plan.Notes, note)
	return plan
}
