package api

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/api/handler"
	"github.com/transcriptflow/server/internal/api/middleware"
)

// Handlers 路由依赖的全部 handler
type Handlers struct {
	Auth          *handler.AuthHandler
	User          *handler.UserHandler
	Transcription *handler.TranscriptionHandler
	Media         *handler.MediaHandler
	GPT           *handler.GPTHandler
	TTS           *handler.TTSHandler
	History       *handler.HistoryHandler
	Dashboard     *handler.DashboardHandler
	APIKey        *handler.APIKeyHandler
	Admin         *handler.AdminHandler
	WebSocket     *handler.WebSocketHandler
}

type Router struct {
	h       Handlers
	roles   middleware.RoleLookup
	limiter *middleware.RateLimiter
	cfg     *config.Config
}

func NewRouter(h Handlers, roles middleware.RoleLookup, cfg *config.Config) *Router {
	return &Router{
		h:       h,
		roles:   roles,
		limiter: middleware.NewRateLimiter(cfg.RateLimit),
		cfg:     cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.h.WebSocket.Handle)

		// 公开接口
		api.GET("/plans", handler.ListPlans)
		api.GET("/tts/voices", r.h.TTS.Voices)

		auth := api.Group("/auth")
		{
			auth.POST("/register", r.h.Auth.Register)
			auth.POST("/login", r.h.Auth.Login)
			auth.POST("/forgot-password", r.h.Auth.ForgotPassword)
			auth.POST("/reset-password", r.h.Auth.ResetPassword)
			auth.GET("/github", r.h.Auth.GithubAuth)
			auth.GET("/github/callback", r.h.Auth.GithubCallback)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.LoadRole(r.roles))
		{
			authenticated.POST("/auth/change-password", r.h.Auth.ChangePassword)

			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.h.User.GetProfile)
				user.PUT("/profile", r.h.User.UpdateProfile)
				user.GET("/usage", r.h.User.GetUsage)
			}

			keys := authenticated.Group("/api-keys")
			{
				keys.GET("", r.h.APIKey.List)
				keys.PUT("", r.h.APIKey.Save)
				keys.DELETE("/:service", r.h.APIKey.Delete)
			}

			history := authenticated.Group("/history")
			{
				history.GET("", r.h.History.List)
				history.GET("/:id", r.h.History.Get)
				history.GET("/:id/chapters", r.h.History.Chapters)
				history.GET("/:id/download", r.h.History.Download)
				history.POST("/:id/export", r.h.History.Export)
				history.DELETE("/:id", r.h.History.Delete)
			}

			authenticated.GET("/dashboard", r.h.Dashboard.Get)
			authenticated.GET("/transcriptions/tasks/:task_id", r.h.Transcription.GetTask)

			// 调用外部引擎的接口，按用户限流
			engineRoutes := authenticated.Group("")
			engineRoutes.Use(r.limiter.Middleware())
			{
				engineRoutes.POST("/transcriptions", r.h.Transcription.Upload)
				engineRoutes.POST("/transcriptions/from-ref", r.h.Transcription.FromRef)
				engineRoutes.POST("/media/youtube", r.h.Media.ExtractYouTube)
				engineRoutes.POST("/media/video", r.h.Media.ExtractVideo)
				engineRoutes.POST("/gpt/summarize", r.h.GPT.Summarize)
				engineRoutes.POST("/gpt/keywords", r.h.GPT.Keywords)
				engineRoutes.POST("/gpt/answer", r.h.GPT.Answer)
				engineRoutes.POST("/tts", r.h.TTS.Synthesize)
			}

			admin := authenticated.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/users", r.h.Admin.ListUsers)
				admin.PUT("/users/:id/plan", r.h.Admin.SetPlan)
				admin.GET("/users/:id/subscriptions", r.h.Admin.ListSubscriptions)
			}
		}
	}

	return engine
}
