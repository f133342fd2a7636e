package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/careloop/priorauth/internal/config"
	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/pkg/auth"
	"github.com/careloop/priorauth/pkg/metrics"
)

type RouterDeps struct {
	Config     *config.Config
	Log        *zap.Logger
	Metrics    *metrics.Collector
	JWTManager *auth.JWTManager

	AuthHandler   *AuthHandler
	CaseHandler   *CaseHandler
	ReviewHandler *ReviewHandler
	AuditHandler  *AuditHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Log))
	r.Use(MetricsMiddleware(deps.Metrics))
	r.Use(CORSMiddleware(deps.Config.CORS))
	r.Use(RateLimitMiddleware(deps.Config.RateLimit.RequestsPerSecond, deps.Config.RateLimit.BurstSize))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": deps.Config.App.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	// Credential endpoints get a stricter per-IP limit
	authGroup.Use(RateLimitMiddleware(
		float64(deps.Config.RateLimit.AuthRequestsPerMinute)/60.0,
		deps.Config.RateLimit.AuthRequestsPerMinute,
	))
	{
		authGroup.POST("/login", deps.AuthHandler.Login)
		authGroup.POST("/refresh", deps.AuthHandler.Refresh)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.JWTManager))
	{
		protected.POST("/auth/register",
			RequireRoles(domain.RoleAdmin),
			deps.AuthHandler.Register)

		cases := protected.Group("/cases")
		{
			cases.GET("", deps.CaseHandler.List)
			cases.POST("",
				RequireRoles(domain.RoleAdmin, domain.RoleCaseManager),
				deps.CaseHandler.Intake)
			cases.GET("/:id", deps.CaseHandler.Get)
			cases.POST("/:id/claim", deps.CaseHandler.Claim)
			cases.POST("/:id/transition", deps.CaseHandler.Transition)
			cases.POST("/:id/physician-decision",
				RequireRoles(domain.RoleAdmin, domain.RolePhysician),
				deps.CaseHandler.PhysicianDecision)
			cases.POST("/:id/submit", deps.CaseHandler.Submit)
			cases.POST("/:id/appeal", deps.CaseHandler.Appeal)
			cases.GET("/:id/history", deps.CaseHandler.History)
			cases.GET("/:id/audit", deps.AuditHandler.ListForCase)
			cases.POST("/:id/notes", deps.CaseHandler.AddNote)
			cases.GET("/:id/notes", deps.CaseHandler.ListNotes)

			cases.PATCH("/:id/payer-rules/:ruleID", deps.ReviewHandler.UpdateRule)
			cases.PATCH("/:id/risk-factors/:riskID", deps.ReviewHandler.UpdateRisk)
			cases.PATCH("/:id/policy-gaps/:gapID", deps.ReviewHandler.UpdateGap)
			cases.PATCH("/:id/recommendations/:recID", deps.ReviewHandler.UpdateRecommendation)
			cases.PUT("/:id/analysis",
				RequireRoles(domain.RoleAdmin, domain.RolePhysician),
				deps.ReviewHandler.RegradeAnalysis)
		}

		protected.GET("/audit",
			RequireRoles(domain.RoleAdmin, domain.RoleAuditor),
			deps.AuditHandler.ListGlobal)
	}

	return r
}
