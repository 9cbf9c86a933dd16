package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/api"
	"github.com/transcriptflow/server/internal/api/handler"
	"github.com/transcriptflow/server/internal/database"
	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/pkg/cache"
	"github.com/transcriptflow/server/internal/pkg/cron"
	"github.com/transcriptflow/server/internal/pkg/email"
	"github.com/transcriptflow/server/internal/pkg/oauth"
	"github.com/transcriptflow/server/internal/pkg/pubsub"
	"github.com/transcriptflow/server/internal/pkg/queue"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/pkg/ws"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Printf("Database connected (%s)", cfg.Database.Driver)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化存储和引擎
	store := storage.NewFromConfig(ctx, &cfg.Storage)
	oa := engine.NewOpenAI(&cfg.OpenAI)
	transcriber := engine.NewTranscriber(cfg, oa)
	log.Printf("Transcription backend: %s", cfg.Whisper.Backend)

	jobQueue := queue.NewQueue(rdb, cfg.Queue.TranscriptionQueue)

	// WebSocket Hub，转发 worker 发布的进度
	wsHub := ws.NewHub()
	go func() {
		if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, wsHub.RelayProgress); err != nil && ctx.Err() == nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// 可选组件，未配置时保持 nil
	var mailer service.Mailer
	if m := email.NewService(&cfg.Email); m.Configured() {
		mailer = m
	} else {
		log.Println("Email not configured, password reset disabled")
	}
	var github service.GithubProvider
	gh := cfg.OAuth.Github
	if g := oauth.NewGithubOAuth(gh.ClientID, gh.ClientSecret, gh.RedirectURI); g.Configured() {
		github = g
	}

	// 初始化 Service
	quotaService := service.NewQuotaService(subRepo, transcriptionRepo, activityRepo, jobRepo)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, cfg)
	authService := service.NewAuthService(userRepo, quotaService, mailer, github, oauth.NewStateStore(rdb), cfg)
	userService := service.NewUserService(userRepo, quotaService)
	transcriptionService := service.NewTranscriptionService(quotaService, apiKeyService,
		transcriptionRepo, jobRepo, store, transcriber, jobQueue, cfg)
	mediaService := service.NewMediaService(quotaService, store,
		engine.NewYtDlp(cfg.Tools.YtDlpPath), engine.NewFFmpeg(cfg.Tools.FFmpegPath), cfg.Upload.TempDir,
		cache.New(rdb, "youtube_audio:", time.Duration(cfg.Cache.YouTubeTTLSeconds)*time.Second))
	gptService := service.NewGPTService(quotaService, apiKeyService, transcriptionRepo, oa)
	ttsService := service.NewTTSService(quotaService, apiKeyService, store, oa)
	historyService := service.NewHistoryService(transcriptionRepo, store)
	dashboardService := service.NewDashboardService(activityRepo, quotaService)
	adminService := service.NewAdminService(userRepo, subRepo, quotaService)

	// 定时任务
	cronService := cron.NewService(subRepo, jobRepo, cfg.Upload.TempDir, cfg.Upload.ExpireHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	handlers := api.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		User:          handler.NewUserHandler(userService, quotaService),
		Transcription: handler.NewTranscriptionHandler(transcriptionService),
		Media:         handler.NewMediaHandler(mediaService),
		GPT:           handler.NewGPTHandler(gptService),
		TTS:           handler.NewTTSHandler(ttsService),
		History:       handler.NewHistoryHandler(historyService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		APIKey:        handler.NewAPIKeyHandler(apiKeyService),
		Admin:         handler.NewAdminHandler(adminService),
		WebSocket:     handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
	}
	roles := func(userID int64) (bool, error) {
		user, err := userRepo.GetByID(userID)
		if err != nil {
			return false, err
		}
		return user.IsAdmin, nil
	}
	router := api.NewRouter(handlers, roles, cfg)
	r := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
