package controller

import (
	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// SkillSource 技能目录的只读接口
type SkillSource interface {
	Skills() []model.SkillCatalogEntry
	Steps(skillID string) (*model.SkillSteps, error)
}

type SkillController struct {
	Catalog SkillSource
}

func NewSkillController(catalog SkillSource) *SkillController {
	return &SkillController{Catalog: catalog}
}

// @Summary List skills
// @Tags skills
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/skills [get]
func (c *SkillController) ListSkills(ctx *gin.Context) {
	skills := c.Catalog.Skills()
	if skills == nil {
		skills = []model.SkillCatalogEntry{}
	}
	util.Success(ctx, gin.H{"skills": skills})
}

// @Summary Skill steps
// @Tags skills
// @Produce json
// @Param skill_id path string true "Skill ID"
// @Success 200 {object} util.Response{data=model.SkillSteps}
// @Failure 404 {object} util.Response
// @Router /api/skills/{skill_id}/steps [get]
func (c *SkillController) GetSkillSteps(ctx *gin.Context) {
	steps, err := c.Catalog.Steps(ctx.Param("skill_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, steps)
}
