package controller

import (
	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/service"
	"skilltrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RecommendationController struct {
	RecommendationService *service.RecommendationService
	TrainingPlanService   *service.TrainingPlanService
}

func NewRecommendationController(recommendationService *service.RecommendationService, trainingPlanService *service.TrainingPlanService) *RecommendationController {
	return &RecommendationController{
		RecommendationService: recommendationService,
		TrainingPlanService:   trainingPlanService,
	}
}

// @Summary Recommended skills
// @Description Skills of the user's current phase ordered by priority
// @Tags recommendation
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/recommended-skills [get]
func (c *RecommendationController) GetRecommendedSkills(ctx *gin.Context) {
	recs, err := c.RecommendationService.GetRecommendedSkills(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if recs == nil {
		recs = []model.RecommendedSkill{}
	}
	util.Success(ctx, gin.H{"recommendations": recs})
}

// @Summary Update phase
// @Description Advance the user to the next phase when the current one is completed
// @Tags recommendation
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/update-phase [post]
func (c *RecommendationController) UpdatePhase(ctx *gin.Context) {
	phase, err := c.RecommendationService.UpdatePhase(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"current_phase": phase})
}

// @Summary Training plan
// @Tags recommendation
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response{data=model.TrainingPlan}
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/generate-plan [post]
func (c *RecommendationController) GenerateTrainingPlan(ctx *gin.Context) {
	plan, err := c.TrainingPlanService.GeneratePlan(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}
