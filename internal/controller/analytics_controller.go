package controller

import (
	"errors"
	"fmt"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/service"
	"skilltrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
	ExportService    *service.ExportService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService, exportService *service.ExportService) *AnalyticsController {
	return &AnalyticsController{
		AnalyticsService: analyticsService,
		ExportService:    exportService,
	}
}

// @Summary Skill statistics
// @Tags analytics
// @Produce json
// @Param user_id path string true "User ID"
// @Param skill_id path string true "Skill ID"
// @Success 200 {object} util.Response{data=model.SkillStats}
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/skill/{skill_id}/stats [get]
func (c *AnalyticsController) GetSkillStats(ctx *gin.Context) {
	stats, err := c.AnalyticsService.GetSkillStats(ctx.Request.Context(), ctx.Param("user_id"), ctx.Param("skill_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary Skill success rate
// @Description Returns 0 when the user has not attempted the skill
// @Tags analytics
// @Produce json
// @Param user_id path string true "User ID"
// @Param skill_id path string true "Skill ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/skill/{skill_id}/success-rate [get]
func (c *AnalyticsController) GetSuccessRate(ctx *gin.Context) {
	skillID := ctx.Param("skill_id")
	rate, err := c.AnalyticsService.CalculateSuccessRate(ctx.Request.Context(), ctx.Param("user_id"), skillID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"skill_id": skillID, "success_rate": rate})
}

// @Summary Common errors
// @Description Error types ranked by frequency, optionally limited to one skill
// @Tags analytics
// @Produce json
// @Param user_id path string true "User ID"
// @Param skill_id query string false "Skill ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/common-errors [get]
func (c *AnalyticsController) GetCommonErrors(ctx *gin.Context) {
	errs, err := c.AnalyticsService.GetCommonErrors(ctx.Request.Context(), ctx.Param("user_id"), ctx.Query("skill_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if errs == nil {
		errs = []model.CommonError{}
	}
	util.Success(ctx, gin.H{"errors": errs})
}

// @Summary Weak steps
// @Tags analytics
// @Produce json
// @Param user_id path string true "User ID"
// @Param skill_id query string true "Skill ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/weak-steps [get]
func (c *AnalyticsController) GetWeakSteps(ctx *gin.Context) {
	skillID := ctx.Query("skill_id")
	if skillID == "" {
		util.BadRequest(ctx, "skill_id is required")
		return
	}

	steps, err := c.AnalyticsService.GetWeakSteps(ctx.Request.Context(), ctx.Param("user_id"), skillID)
	if err != nil && !errors.Is(err, util.ErrSkillProgressNotFound) {
		util.HandleServiceError(ctx, err)
		return
	}
	if steps == nil {
		steps = []model.WeakStep{}
	}
	util.Success(ctx, gin.H{"weak_steps": steps})
}

// @Summary Skill comparisons
// @Description Compares each skill's latest success rate with its history
// @Tags analytics
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/skill-comparisons [get]
func (c *AnalyticsController) GetSkillComparisons(ctx *gin.Context) {
	comparisons, err := c.AnalyticsService.GetSkillComparisons(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if comparisons == nil {
		comparisons = []model.SkillComparison{}
	}
	util.Success(ctx, gin.H{"comparisons": comparisons})
}

// @Summary Global error statistics
// @Description Error statistics aggregated over every completed attempt
// @Tags analytics
// @Produce json
// @Success 200 {object} util.Response{data=model.GlobalErrorStats}
// @Router /api/analytics/global-errors [get]
func (c *AnalyticsController) GetGlobalErrorStats(ctx *gin.Context) {
	stats, err := c.AnalyticsService.GetGlobalErrorStats(ctx.Request.Context())
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary Export global error statistics
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/analytics/global-errors/export [get]
func (c *AnalyticsController) ExportGlobalErrorStats(ctx *gin.Context) {
	filename := fmt.Sprintf("global-errors-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := c.ExportService.WriteGlobalErrorsXLSX(ctx.Request.Context(), ctx.Writer); err != nil {
		util.LogInternalError(ctx, err)
	}
}

// @Summary Skill error statistics
// @Tags analytics
// @Produce json
// @Param skill_id path string true "Skill ID"
// @Success 200 {object} util.Response{data=model.SkillErrorStats}
// @Failure 404 {object} util.Response
// @Router /api/analytics/skill/{skill_id}/errors [get]
func (c *AnalyticsController) GetSkillErrorStats(ctx *gin.Context) {
	stats, err := c.AnalyticsService.GetSkillErrorStats(ctx.Request.Context(), ctx.Param("skill_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
