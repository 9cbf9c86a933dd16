package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/database"
	"github.com/transcriptflow/server/internal/pkg/cron"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/worker"
)

var (
	expireHours = flag.Int("expire-hours", 0, "Hours before temp dirs and stale jobs expire (0 = use config)")
	reupload    = flag.Bool("reupload", true, "Move local:// objects back to the primary storage backend")
)

func main() {
	flag.Parse()

	log.Println("Starting cleanup task...")

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	hours := cfg.Upload.ExpireHours
	if *expireHours > 0 {
		hours = *expireHours
	}

	svc := cron.NewService(
		repository.NewSubscriptionRepository(db),
		repository.NewJobRepository(db),
		cfg.Upload.TempDir,
		hours,
	)
	summary := svc.RunOnce()

	moved := 0
	if *reupload {
		ctx := context.Background()
		store := storage.NewFromConfig(ctx, &cfg.Storage)
		if store.HasPrimary() {
			moved = worker.NewReuploader(repository.NewTranscriptionRepository(db), store).RunOnce(ctx)
		} else {
			log.Println("No primary storage configured, skipping reupload")
		}
	}

	// 输出统计
	log.Println(strings.Repeat("=", 60))
	log.Println("Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Expired subscriptions: %d", summary.ExpiredSubscriptions)
	log.Printf("Failed stale jobs: %d", summary.FailedJobs)
	log.Printf("Removed temp dirs: %d", summary.RemovedTempDirs)
	log.Printf("Reuploaded objects: %d", moved)
	log.Println(strings.Repeat("=", 60))
}
