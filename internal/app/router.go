package app

import (
	"skilltrack_backend/docs"
	"skilltrack_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		a.registerSkillRoutes(api, c)
		a.registerUserRoutes(api, c)
		a.registerAttemptRoutes(api, c)
		a.registerAnalyticsRoutes(api, c)
	}
}

func (a *App) registerSkillRoutes(api *gin.RouterGroup, c *controllers) {
	skills := api.Group("/skills")
	{
		skills.GET("", c.skill.ListSkills)
		skills.GET("/:skill_id/steps", c.skill.GetSkillSteps)
	}
}

func (a *App) registerUserRoutes(api *gin.RouterGroup, c *controllers) {
	user := api.Group("/user/:user_id")
	{
		user.POST("/create", c.progress.CreateUser)
		user.GET("/progress", c.progress.GetProgress)
		user.DELETE("/clear-progress", c.progress.ClearProgress)
		user.POST("/skill/:skill_id/start-attempt", c.progress.StartAttempt)

		user.GET("/skill/:skill_id/stats", c.analytics.GetSkillStats)
		user.GET("/skill/:skill_id/success-rate", c.analytics.GetSuccessRate)
		user.GET("/common-errors", c.analytics.GetCommonErrors)
		user.GET("/weak-steps", c.analytics.GetWeakSteps)
		user.GET("/skill-comparisons", c.analytics.GetSkillComparisons)

		user.GET("/recommended-skills", c.recommendation.GetRecommendedSkills)
		user.POST("/update-phase", c.recommendation.UpdatePhase)
		user.POST("/generate-plan", c.recommendation.GenerateTrainingPlan)
	}
}

func (a *App) registerAttemptRoutes(api *gin.RouterGroup, c *controllers) {
	attempt := api.Group("/attempt/:attempt_id")
	{
		attempt.POST("/record-input", c.progress.RecordInput)
		attempt.POST("/record-error", c.progress.RecordError)
		attempt.POST("/record-step", c.progress.RecordStep)
		attempt.POST("/complete", c.progress.CompleteAttempt)
	}
}

func (a *App) registerAnalyticsRoutes(api *gin.RouterGroup, c *controllers) {
	analytics := api.Group("/analytics")
	{
		analytics.GET("/global-errors", c.analytics.GetGlobalErrorStats)
		analytics.GET("/global-errors/export", c.analytics.ExportGlobalErrorStats)
		analytics.GET("/skill/:skill_id/errors", c.analytics.GetSkillErrorStats)
	}
}
