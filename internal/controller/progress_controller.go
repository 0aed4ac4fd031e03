package controller

import (
	"errors"
	"io"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/service"
	"skilltrack_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// StepProvider 提供技能的步骤定义，开始尝试时返回
type StepProvider interface {
	Steps(skillID string) (*model.SkillSteps, error)
}

type ProgressController struct {
	ProgressService *service.ProgressService
	Steps           StepProvider
}

func NewProgressController(progressService *service.ProgressService, steps StepProvider) *ProgressController {
	return &ProgressController{ProgressService: progressService, Steps: steps}
}

type RecordInputRequest struct {
	StepNumber    int        `json:"step_number"`
	ExpectedInput string     `json:"expected_input"`
	ActualInput   string     `json:"actual_input"`
	Timestamp     *time.Time `json:"timestamp"`
}

type RecordErrorRequest struct {
	StepNumber     int    `json:"step_number"`
	ErrorType      string `json:"error_type"`
	ExpectedAction string `json:"expected_action"`
	ActualAction   string `json:"actual_action"`
}

type CompleteAttemptRequest struct {
	Success *bool `json:"success" binding:"required"`
}

// @Summary Create user
// @Description Create a user in the Foundation phase, or return the existing one
// @Tags progress
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/user/{user_id}/create [post]
func (c *ProgressController) CreateUser(ctx *gin.Context) {
	user, err := c.ProgressService.CreateUser(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// @Summary Get user progress
// @Tags progress
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user, err := c.ProgressService.GetUser(ctx.Request.Context(), ctx.Param("user_id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// @Summary Start attempt
// @Description Open an attempt for a skill. The skill's steps are returned when the catalog has them.
// @Tags progress
// @Produce json
// @Param user_id path string true "User ID"
// @Param skill_id path string true "Skill ID"
// @Success 200 {object} util.Response
// @Router /api/user/{user_id}/skill/{skill_id}/start-attempt [post]
func (c *ProgressController) StartAttempt(ctx *gin.Context) {
	skillID := ctx.Param("skill_id")
	attemptID, err := c.ProgressService.StartAttempt(ctx.Request.Context(), ctx.Param("user_id"), skillID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	var steps *model.SkillSteps
	if c.Steps != nil {
		steps, err = c.Steps.Steps(skillID)
		if err != nil && !errors.Is(err, util.ErrSkillNotFound) {
			util.LogInternalError(ctx, err)
			return
		}
	}

	util.Success(ctx, gin.H{
		"attempt_id":  attemptID,
		"skill_id":    skillID,
		"skill_steps": steps,
	})
}

// @Summary Record step input
// @Tags progress
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body RecordInputRequest true "Input"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempt/{attempt_id}/record-input [post]
func (c *ProgressController) RecordInput(ctx *gin.Context) {
	var req RecordInputRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.ProgressService.RecordInput(ctx.Param("attempt_id"), req.StepNumber, req.ExpectedInput, req.ActualInput, req.Timestamp)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Input recorded"})
}

// @Summary Record step error
// @Tags progress
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body RecordErrorRequest true "Error"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempt/{attempt_id}/record-error [post]
func (c *ProgressController) RecordError(ctx *gin.Context) {
	var req RecordErrorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.ProgressService.RecordError(ctx.Param("attempt_id"), req.StepNumber, req.ErrorType, req.ExpectedAction, req.ActualAction)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Error recorded"})
}

// @Summary Record step telemetry
// @Description Accepts camelCase or snake_case keys (stepNumber/step_number, holdDuration/hold_duration, ...)
// @Tags progress
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempt/{attempt_id}/record-step [post]
func (c *ProgressController) RecordStep(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 1<<20))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if !gjson.ValidBytes(body) {
		util.BadRequest(ctx, "request body is not valid JSON")
		return
	}

	if err := c.ProgressService.RecordTelemetry(ctx.Param("attempt_id"), body); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Step telemetry recorded"})
}

// @Summary Complete attempt
// @Tags progress
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body CompleteAttemptRequest true "Outcome"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempt/{attempt_id}/complete [post]
func (c *ProgressController) CompleteAttempt(ctx *gin.Context) {
	var req CompleteAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProgressService.CompleteAttempt(ctx.Request.Context(), ctx.Param("attempt_id"), *req.Success); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Attempt completed"})
}

// @Summary Clear user progress
// @Description Reset skill progress and delete the user's completed attempts
// @Tags progress
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/user/{user_id}/clear-progress [delete]
func (c *ProgressController) ClearProgress(ctx *gin.Context) {
	userID := ctx.Param("user_id")
	if err := c.ProgressService.ClearUserProgress(ctx.Request.Context(), userID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Progress cleared for user " + userID})
}
