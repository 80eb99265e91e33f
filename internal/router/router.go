package router

import (
	"strconv"

	"github.com/UPool-Fun/UPool-sub000/internal/handler"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/metrics"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Deps 路由依赖，Relay 为空时不开放中继入口
type Deps struct {
	Service    *logic.Service
	Relay      *relay.Relay
	Metrics    *metrics.Collector
	RelayToken string
	// RelayLimiter 为空时中继入口不限流
	RelayLimiter *rate.Limiter
}

func Setup(deps Deps) *gin.Engine {
	if deps.Metrics == nil {
		deps.Metrics = metrics.GetCollector()
	}

	handler.RegisterValidators()
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(metricsMiddleware(deps.Metrics))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		stats := deps.Service.Registry().Stats()
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "upool-service",
			"pools":   stats.TotalPools,
			"paused":  stats.Paused,
		})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// API版本组
	v1 := r.Group("/api/v1")
	{
		poolHandler := handler.NewPoolHandler(deps.Service)
		registryHandler := handler.NewRegistryHandler(deps.Service)
		authed := handler.RequireCaller()

		// 资金池相关路由
		pools := v1.Group("/pools")
		{
			pools.POST("", authed, poolHandler.CreatePool)
			pools.GET("", poolHandler.GetPools)
			pools.GET("/:ref", poolHandler.GetPool)
			pools.GET("/:ref/stats", poolHandler.GetPoolStats)
			pools.GET("/:ref/milestones", poolHandler.GetMilestones)
			pools.GET("/:ref/members", poolHandler.GetMembers)
			pools.GET("/:ref/contributions", poolHandler.GetContributions)
			pools.GET("/:ref/releases", poolHandler.GetReleases)
			pools.POST("/:ref/milestones", authed, poolHandler.AddMilestone)
			pools.POST("/:ref/submitter", authed, poolHandler.DesignateSubmitter)
			pools.POST("/:ref/milestones/:id/proof", authed, poolHandler.SubmitProof)
			pools.POST("/:ref/milestones/:id/votes", authed, poolHandler.Vote)
			pools.POST("/:ref/milestones/:id/approve", authed, poolHandler.Approve)
			pools.POST("/:ref/milestones/:id/reject", authed, poolHandler.Reject)
			pools.PUT("/:ref/status", authed, poolHandler.UpdateStatus)
		}

		v1.GET("/vanity/:slug", poolHandler.GetByVanity)
		v1.GET("/vanity/:slug/available", poolHandler.VanityAvailable)
		v1.GET("/creators/:address/pools", poolHandler.GetCreatorPools)

		// 注册表管理路由
		reg := v1.Group("/registry")
		{
			reg.GET("", registryHandler.GetRegistry)
			reg.POST("/pools", registryHandler.RegisterPool)
			reg.DELETE("/pools/:ref", authed, registryHandler.RemovePool)
			reg.PUT("/creation-fee", authed, registryHandler.UpdateCreationFee)
			reg.PUT("/max-pools", authed, registryHandler.UpdateMaxPools)
			reg.PUT("/treasury", authed, registryHandler.UpdateTreasury)
			reg.POST("/pause", authed, registryHandler.Pause)
			reg.POST("/unpause", authed, registryHandler.Unpause)
			reg.POST("/withdraw", authed, registryHandler.WithdrawFees)
			reg.POST("/owner", authed, registryHandler.TransferOwnership)
		}

		templates := v1.Group("/templates")
		{
			templates.GET("", registryHandler.GetTemplates)
			templates.POST("", authed, registryHandler.AddTemplate)
			templates.PUT("/:name/status", authed, registryHandler.UpdateTemplateStatus)
		}

		if deps.Relay != nil {
			relayHandler := handler.NewRelayHandler(deps.Relay)
			v1.POST("/relay/contributions",
				handler.RequireRelayToken(deps.RelayToken),
				handler.RateLimit(deps.RelayLimiter),
				relayHandler.SubmitContributions)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, "+handler.CallerHeader+", "+handler.RelayTokenHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// 请求计数，按路由模板聚合
func metricsMiddleware(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
