package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/config"
	"github.com/kimeia/alientu-engine/internal/api/handler"
	"github.com/kimeia/alientu-engine/internal/api/middleware"
	"github.com/kimeia/alientu-engine/pkg/jwt"
	"github.com/kimeia/alientu-engine/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可以为 nil：此时限流与 Token 黑名单降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "redis": rdb != nil}
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(503, gin.H{"status": "db_unavailable"})
				return
			}
		}
		c.JSON(200, status)
	})

	publicLimit := middleware.RateLimit(rdb, cfg.RateLimit.PublicLimit, cfg.RateLimit.PublicWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开报名（按 IP 限流，请求体上限更小）
		public := v1.Group("/public", publicLimit, middleware.BodyLimit(cfg.Server.PublicMaxBodyBytes))
		{
			public.POST("/campaigns/:campaign/registrations", h.Public.Submit)
			public.GET("/registrations/:code", h.Public.Status)
		}

		// 运营人员登录（同样限流，防暴力破解）
		v1.POST("/auth/login", publicLimit, h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 报名模块
			registrations := authorized.Group("/registrations")
			{
				registrations.GET("", h.Registration.List)
				registrations.GET("/:id", h.Registration.Get)
				registrations.PUT("/:id/contact", h.Registration.UpdateContact)
				registrations.POST("/:id/transition", h.Registration.Transition)
				registrations.POST("/:id/notes", h.Registration.AddNote)
			}
			authorized.PUT("/participants/:id", h.Registration.UpdateParticipant)

			// 队伍模块
			teams := authorized.Group("/teams")
			{
				teams.GET("", h.Team.List)
				teams.POST("", h.Team.Create)
				teams.GET("/:id", h.Team.Get)
				teams.PUT("/:id", h.Team.Update)
				teams.DELETE("/:id", h.Team.Delete)
				teams.POST("/:id/transition", h.Team.Transition)
				teams.POST("/:id/members", h.Team.AddMembers)
				teams.DELETE("/:id/members", h.Team.RemoveMembers)
				teams.POST("/:id/members/move", h.Team.MoveMembers)
			}

			// 导出模块
			authorized.GET("/export/registrations", h.Export.ExportRegistrations)
		}
	}

	return r
}
