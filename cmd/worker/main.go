package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/database"
	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/pkg/pubsub"
	"github.com/transcriptflow/server/internal/pkg/queue"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/service"
	"github.com/transcriptflow/server/internal/worker"
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
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewFromConfig(ctx, &cfg.Storage)
	transcriber := engine.NewTranscriber(cfg, engine.NewOpenAI(&cfg.OpenAI))

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.TranscriptionQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository
	subRepo := repository.NewSubscriptionRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	jobRepo := repository.NewJobRepository(db)

	quotaService := service.NewQuotaService(subRepo, transcriptionRepo, activityRepo, jobRepo)
	apiKeyService := service.NewAPIKeyService(repository.NewAPIKeyRepository(db), cfg)
	transcriptionService := service.NewTranscriptionService(quotaService, apiKeyService,
		transcriptionRepo, jobRepo, store, transcriber, jobQueue, cfg)

	// 创建任务处理器
	processor := worker.NewProcessor(jobRepo, transcriptionService, publisher)

	// 主存储恢复后把本地对象迁回
	go worker.NewReuploader(transcriptionRepo, store).Start(ctx)

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	log.Printf("Worker started, max workers: %d", maxWorkers)

	// 启动 worker 循环
	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := jobQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop job: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing job %s", workerID, msg.TaskID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: job %s failed: %v", workerID, msg.TaskID, err)
					}
				}
			}
		}(i)
	}

	// 等待进行中的任务结束
	wg.Wait()
	log.Println("Worker shutdown complete")
}
