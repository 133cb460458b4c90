package app

import (
	"edu_assess_backend/internal/middleware"
	"edu_assess_backend/internal/util"
	"edu_assess_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	authorized := router.Group("/api")
	authorized.Use(middleware.AuthMiddleware())
	{
		assessments := authorized.Group("/assessments")
		assessments.Use(middleware.RoleMiddleware(util.RoleStudent, util.RoleTeacher))
		{
			assessments.POST("", c.assessment.Create)
			assessments.POST("/:id/submit", c.assessment.Submit)
			assessments.GET("/:id/report", c.assessment.GetReport)
		}
	}
}
