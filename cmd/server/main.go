package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"contact-form-guard/internal/api"
	"contact-form-guard/internal/config"
	"contact-form-guard/internal/feedback"
	"contact-form-guard/internal/formspree"
	"contact-form-guard/internal/security"
	"contact-form-guard/internal/signature"
	"contact-form-guard/internal/store"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	var limiter security.RateLimiter = security.NewFixedWindowLimiter()
	var kv store.KV

	switch cfg.StoreBackend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		pingErr := redisClient.Ping(ctx).Err()
		cancel()
		if pingErr != nil {
			log.Printf("Redis 连接失败，回退到内存存储: %v", pingErr)
			kv = store.NewMemoryKV()
		} else {
			log.Printf("Redis 已连接，启用全局限流与去重")
			limiter = security.NewRedisFixedWindowLimiter(redisClient, cfg.RedisKeyPrefix)
			kv = store.NewRedisKV(redisClient, cfg.RedisKeyPrefix, cfg.DuplicateWindow)
		}
	case config.BackendSQLite:
		sqliteKV, err := store.OpenSQLiteKV(filepath.Join(cfg.DataDir, "submissions.db"))
		if err != nil {
			log.Fatalf("SQLite 存储初始化失败: %v", err)
		}
		defer sqliteKV.Close()
		kv = sqliteKV
	case config.BackendFile:
		fileKV, err := store.NewFileKV(cfg.DataDir)
		if err != nil {
			log.Fatalf("文件存储初始化失败: %v", err)
		}
		kv = fileKV
	default:
		kv = store.NewMemoryKV()
	}

	submissions := store.NewSubmissionStore(kv,
		store.WithKey(cfg.StoreKey),
		store.WithWindow(cfg.DuplicateWindow),
		store.WithMaxRecords(cfg.MaxRecords),
	)

	hasher := signature.NewHasher(signature.SHA256Digester{})
	log.Printf("签名摘要能力: %s", hasher.Capability())

	orchestrator := feedback.NewOrchestrator(feedback.Options{
		Endpoint:      cfg.FormEndpoint,
		Hasher:        hasher,
		Gate:          security.NewDuplicateGate(submissions),
		Transport:     formspree.NewClient("Contact-Form-Guard"),
		Timeout:       cfg.SubmitTimeout,
		Cooldown:      cfg.SuccessCooldown,
		SubjectPrefix: cfg.SubjectPrefix,
	})

	srv := api.NewServer(cfg, orchestrator, limiter)

	log.Printf("Contact Form Guard 启动: :%s (store=%s)", cfg.Port, cfg.StoreBackend)
	if err := srv.Run(); err != nil {
		log.Fatalf("服务异常退出: %v", err)
	}
}
