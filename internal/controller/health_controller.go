package controller

import (
	"net/http"

	"skilltrack_backend/internal/ledger"
	"skilltrack_backend/internal/repository"
	"skilltrack_backend/internal/util"
	"skilltrack_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthController struct {
	Repo   *repository.ProgressRepository
	Ledger *ledger.Ledger
}

func NewHealthController(repo *repository.ProgressRepository, l *ledger.Ledger) *HealthController {
	return &HealthController{Repo: repo, Ledger: l}
}

// @Summary Health check
// @Description Checks that the progress document is readable
// @Tags system
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	if err := c.Repo.Check(ctx.Request.Context()); err != nil {
		logger.Log.Warn("Health check failed", zap.Error(err))
		util.Error(ctx, http.StatusServiceUnavailable, "Progress store unavailable")
		return
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"store":         "up",
			"open_attempts": c.Ledger.Len(),
		},
	})
}
