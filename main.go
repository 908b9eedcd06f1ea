// NearDoer - a local task marketplace where posters publish small jobs and
// nearby helpers browse, accept and complete them.
//
// Modules:
//   - user:     profiles and session tokens (gorm + SQLite, JWT)
//   - task:     task lifecycle over SQLite, PostgreSQL, JetStream KV or memory
//   - cache:    Redis listing cache invalidated by task events (optional)
//   - matching: TF-IDF relevance ranking of Open tasks
//   - feed:     WebSocket push of task events by ZIP
//   - api:      Fiber HTTP API
package main

import (
	"context"
	"log"
	"os"

	"github.com/example/neardoer/config"
	"github.com/example/neardoer/modules/api"
	"github.com/example/neardoer/modules/api/ratelimit"
	"github.com/example/neardoer/modules/cache"
	"github.com/example/neardoer/modules/feed"
	"github.com/example/neardoer/modules/matching"
	"github.com/example/neardoer/modules/task"
	"github.com/example/neardoer/modules/user"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("=== NearDoer ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == "error" {
		logLevel = mono.LogLevelError
	}
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	if cfg.Session.SecretKey == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET_KEY not set, using development secret")
	}

	userModule := user.NewModule(user.Config{
		DBPath: cfg.Store.UserDBPath,
		Session: user.SessionConfig{
			SecretKey: cfg.Session.SecretKey,
			TTL:       cfg.Session.TTL,
		},
	}, logger)
	taskModule := task.NewModule(task.Config{
		Backend:     cfg.Store.Backend,
		DBPath:      cfg.Store.TaskDBPath,
		DatabaseURL: cfg.Store.DatabaseURL,
		NATSURL:     cfg.Store.NATSURL,
		Bucket:      cfg.Store.Bucket,
	}, logger)
	feedModule := feed.NewModule(logger)

	// Redis backs both the listing cache and rate limiting; without it both
	// are disabled.
	var (
		redisClient *redis.Client
		cacheModule *cache.CacheModule
		listings    matching.ListingCache
		limiter     *ratelimit.Limiter
	)
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheModule = cache.NewModule(redisClient, cfg.Redis.CacheTTL, logger)
		listings = cacheModule.Cache()
		limiter = ratelimit.NewLimiter(redisClient, "neardoer:ratelimit:")
	}

	matchingModule := matching.NewModule(listings, logger)
	apiModule := api.NewModule(api.Config{
		Addr:          cfg.HTTP.Addr(),
		AcceptLimit:   cfg.Limits.AcceptLimit,
		AcceptWindow:  cfg.Limits.AcceptWindow,
		ProfileLimit:  cfg.Limits.ProfileLimit,
		ProfileWindow: cfg.Limits.ProfileWindow,
	}, limiter, feedModule.Handler(), logger)

	app.Register(userModule)
	app.Register(taskModule)
	if cacheModule != nil {
		app.Register(cacheModule)
	}
	app.Register(feedModule)
	app.Register(matchingModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				if err := app.Stop(ctx); err != nil {
					return err
				}
				if redisClient != nil {
					return redisClient.Close()
				}
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Printf("  Task store: %s", cfg.Store.Backend)
	if cfg.Redis.Enabled() {
		log.Printf("  Redis: %s (cache TTL %s)", cfg.Redis.Addr, cfg.Redis.CacheTTL)
	} else {
		log.Println("  Redis: disabled (no listing cache, no rate limiting)")
	}
	log.Println("")
	log.Printf("HTTP API (http://localhost%s):", cfg.HTTP.Addr())
	log.Println("  GET  /health                     - Health check")
	log.Println("  POST /api/v1/profile             - Save or switch profile, returns token")
	log.Println("  GET  /api/v1/profile             - Current profile")
	log.Println("  POST /api/v1/tasks               - Post a task (Poster)")
	log.Println("  GET  /api/v1/tasks/browse        - Ranked Open tasks (Helper)")
	log.Println("  GET  /api/v1/tasks/mine          - My tasks by status")
	log.Println("  GET  /api/v1/tasks/:id           - Task details")
	log.Println("  POST /api/v1/tasks/:id/accept    - Accept a task (Helper)")
	log.Println("  POST /api/v1/tasks/:id/complete  - Complete a task (owning Poster)")
	log.Println("  GET  /ws/feed?zip=               - Live task events for a ZIP")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
