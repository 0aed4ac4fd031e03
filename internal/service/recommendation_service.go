package service

import (
	"context"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/util"
	"skilltrack_backend/pkg/logger"

	"go.uber.org/zap"
)

// SkillCatalog 可推荐的技能列表，按展示顺序
type SkillCatalog interface {
	Skills() []model.SkillCatalogEntry
}

type RecommendationService struct {
	Repo    *repository.ProgressRepository
	Catalog SkillCatalog
}

func NewRecommendationService(repo *repository.ProgressRepository, catalog SkillCatalog) *RecommendationService {
	return &RecommendationService{Repo: repo, Catalog: catalog}
}

func (s *RecommendationService) GetRecommendedSkills(ctx context.Context, userID string) ([]model.RecommendedSkill, error) {
	user, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return recommendSkills(user, s.Catalog.Skills()), nil
}

// UpdatePhase 用户最多前进一个阶段，返回结果阶段。
// 判断和写入在同一把仓库锁内完成
func (s *RecommendationService) UpdatePhase(ctx context.Context, userID string) (model.Phase, error) {
	var from, to model.Phase
	err := s.Repo.Update(ctx, func(doc *model.Document) error {
		user, ok := doc.Users[userID]
		if !ok {
			return util.ErrUserNotFound
		}
		from = user.CurrentPhase
		to = nextPhase(user)
		if to == from {
			return errNoChange
		}
		now := s.Repo.Now()
		user.CurrentPhase = to
		user.UpdatedAt = &now
		return nil
	})
	if err == errNoChange {
		return to, nil
	}
	if err != nil {
		return "", err
	}

	logger.Log.Info("User phase advanced",
		zap.String("user_id", userID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return to, nil
}
