package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KirtanKRP/chrono-campus-app/config"
	"github.com/KirtanKRP/chrono-campus-app/internal/api/handler"
	"github.com/KirtanKRP/chrono-campus-app/internal/api/middleware"
	"github.com/KirtanKRP/chrono-campus-app/pkg/jwt"
	"github.com/KirtanKRP/chrono-campus-app/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(4 << 20)) // 4MB，覆盖名册上传

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证，Token 由校园统一登录签发） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 分配周期模块
		cycles := v1.Group("/cycles")
		{
			cycles.GET("", h.Cycle.ListCycles)
			cycles.GET("/:id", h.Cycle.GetCycle)
			cycles.GET("/:id/calendar.ics", h.Cycle.GetCycleCalendar)
			cycles.POST("", middleware.RoleAuth("admin"), h.Cycle.CreateCycle)
			cycles.PATCH("/:id", middleware.RoleAuth("admin"), h.Cycle.UpdateCycle)
			cycles.POST("/:id/close", middleware.RoleAuth("admin"), h.Cycle.CloseCycle)
		}

		// 学生模块
		students := v1.Group("/students")
		students.Use(middleware.RoleAuth("admin"))
		{
			students.GET("", h.Student.ListStudents)
			students.GET("/:id", h.Student.GetStudent)
			students.POST("", h.Student.CreateStudent)
			students.PATCH("/:id", h.Student.UpdateStudent)
			students.DELETE("/:id", h.Student.DeleteStudent)
			students.POST("/import", h.Student.ImportStudents)
		}

		// 选修课模块
		electives := v1.Group("/electives")
		{
			electives.GET("", h.Elective.ListElectives)
			electives.GET("/:id", h.Elective.GetElective)
			electives.POST("", middleware.RoleAuth("admin"), h.Elective.CreateElective)
			electives.PATCH("/:id", middleware.RoleAuth("admin"), h.Elective.UpdateElective)
			electives.DELETE("/:id", middleware.RoleAuth("admin"), h.Elective.DeleteElective)

			// 分配运行（触发接口限流：防止误触发风暴）
			electives.POST("/allocate",
				middleware.RoleAuth("admin"),
				middleware.RateLimit(rdb, 5, time.Minute),
				h.Allocation.RunAllocation)
			electives.GET("/allocation-result", h.Allocation.GetAllocationResult)
			electives.GET("/allocation-result/me", h.Allocation.GetMyAllocationResult)
		}

		// 志愿模块（学生本人）
		preferences := v1.Group("/preferences")
		{
			preferences.PUT("", h.Preference.SubmitPreferences)
			preferences.GET("/me", h.Preference.GetMyPreferences)
		}

		// 运行审计模块
		runs := v1.Group("/allocation-runs")
		runs.Use(middleware.RoleAuth("admin"))
		{
			runs.GET("", h.Allocation.ListRuns)
			runs.GET("/:id", h.Allocation.GetRun)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/allocation-result", middleware.RoleAuth("admin"), h.Export.ExportAllocationResult)
		}
	}

	return r
}
