package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meligy/internal/api"
	"meligy/internal/auth"
	"meligy/internal/config"
	"meligy/internal/learning"
	"meligy/internal/limit"
	"meligy/internal/redis"
	"meligy/internal/service/ai"
	"meligy/internal/service/assistant"
	"meligy/internal/service/image"
	"meligy/internal/service/router"
	"meligy/internal/service/search"
	"meligy/internal/service/table"
	"meligy/internal/storage"
	"meligy/internal/store"
	"meligy/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv("MELIGY_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbType := cfg.BasicConfig.Database
	logger.Info("opening database", zap.String("driver", dbType))
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	// Limit and learning data live in redis when enabled, in memory otherwise.
	var (
		kv  store.Store = store.NewMemory()
		rdb *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("create redis client", zap.Error(err))
		}
		defer rdb.Close()
		kv = store.NewRedis(rdb)
	} else {
		logger.Warn("redis disabled, limit and learning data are kept in memory")
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.BasicConfig.HTTPTimeout) * time.Second}

	var gemini *genai.Client
	if key := cfg.Provider("gemini").APIKey; key != "" {
		gemini, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			logger.Fatal("create gemini client", zap.Error(err))
		}
	}

	chat := ai.NewService(newCompleter(ctx, cfg, gemini, logger), logger.Named("ai"))

	sources := []search.Source{
		search.NewInstantAnswer(cfg.Search.InstantAnswerURL, httpClient),
		search.NewWikipedia(cfg.Search.WikipediaURL, httpClient),
		search.OpenSources{},
	}
	if cfg.Search.WebTool {
		if web := search.NewWebTool(ctx, cfg.Search.GoogleAPIKey, cfg.Search.GoogleSearchEngineID, logger.Named("web")); web != nil {
			sources = append(sources, web)
		}
	}
	searcher := search.NewService(logger.Named("search"), sources...)

	var strategies []image.Strategy
	if gemini != nil {
		strategies = append(strategies, image.NewGemini(gemini.Models, cfg.Image.Model))
	}
	strategies = append(strategies,
		image.NewPollinations(cfg.Image.PollinationsURL, httpClient),
		image.Picsum{BaseURL: cfg.Image.PicsumURL},
	)
	images := image.NewService(logger.Named("image"), strategies...)

	msgRouter := router.New(chat, searcher, table.NewGenerator(logger.Named("table")), images, logger.Named("router"))

	loc, err := time.LoadLocation(cfg.BasicConfig.TimeZone)
	if err != nil {
		logger.Warn("unknown time zone, using local", zap.String("tz", cfg.BasicConfig.TimeZone), zap.Error(err))
		loc = time.Local
	}
	gate := limit.NewGate(kv, cfg.Limits.Daily, logger.Named("limit"), limit.WithLocation(loc))
	learner := learning.NewService(kv, logger.Named("learning"))

	assistantService := assistant.NewService(db)
	authService := auth.NewService(db, rdb, time.Duration(cfg.BasicConfig.TokenTTL)*time.Hour, logger.Named("auth"))
	authService.StartSweeper(ctx, time.Duration(cfg.BasicConfig.TokenSweep)*time.Minute)

	workers := worker.NewManager(assistantService, gate, learner, msgRouter, worker.DispatcherConfig{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	}, logger.Named("worker"))
	defer workers.Close()

	handlers := api.NewHandler(api.Deps{
		Assistant:        assistantService,
		Auth:             authService,
		Workers:          workers,
		Limits:           gate,
		Learning:         learner,
		Search:           searcher,
		Images:           images,
		Logger:           logger.Named("api"),
		MaxSearchResults: cfg.Search.MaxResults,
	})

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	handlers.RegisterRoutes(engine)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// newCompleter picks the chat backend. A nil result leaves every reply to
// the rule-based fallback.
func newCompleter(ctx context.Context, cfg *config.Config, gemini *genai.Client, logger *zap.Logger) ai.Completer {
	name := cfg.BasicConfig.ChatProvider
	switch name {
	case "gemini":
		if gemini == nil {
			logger.Warn("gemini api key missing, using fallback replies")
			return nil
		}
		return ai.NewGeminiCompleter(gemini.Models, cfg.Provider(name).Model)
	default:
		completer, err := ai.NewProviderCompleter(ctx, name, cfg.Provider(name))
		if err != nil {
			logger.Warn("chat provider unavailable, using fallback replies", zap.String("provider", name), zap.Error(err))
			return nil
		}
		return completer
	}
}
