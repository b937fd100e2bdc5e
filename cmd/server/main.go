package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suPer8Hu/health-assistant/internal/ai"
	"github.com/suPer8Hu/health-assistant/internal/assistant"
	"github.com/suPer8Hu/health-assistant/internal/auth"
	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/config"
	"github.com/suPer8Hu/health-assistant/internal/db"
	"github.com/suPer8Hu/health-assistant/internal/gateway"
	"github.com/suPer8Hu/health-assistant/internal/history"
	"github.com/suPer8Hu/health-assistant/internal/httpapi"
	"github.com/suPer8Hu/health-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/health-assistant/internal/logging"
	"github.com/suPer8Hu/health-assistant/internal/prefs"
	"github.com/suPer8Hu/health-assistant/internal/store/redisstore"
)

const (
	sessionIdleTTL   = 2 * time.Hour
	pruneInterval    = 10 * time.Minute
	shutdownDeadline = 10 * time.Second
)

func main() {
	issueToken := flag.String("issue-token", "", "print a development JWT for the given profile id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *issueToken != "" {
		tok, err := auth.SignJWT(*issueToken, cfg.JWTSecret, 24*time.Hour)
		if err != nil {
			logger.Fatal("issue token", zap.Error(err))
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gdb *gorm.DB
	if cfg.HistoryBackend == "sql" || cfg.PrefsBackend == "sql" {
		gdb, err = db.Connect(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			logger.Fatal("database connect", zap.String("driver", cfg.DBDriver), zap.Error(err))
		}
		defer func() { _ = db.Close(gdb) }()
		if err := db.Migrate(gdb); err != nil {
			logger.Fatal("database migrate", zap.Error(err))
		}
	}

	var rds *redisstore.Store
	if cfg.HistoryBackend == "redis" || cfg.PrefsBackend == "redis" {
		rds, err = redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("redis connect", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = rds.Close() }()
	}

	histories, err := historyBackend(cfg.HistoryBackend, gdb, rds)
	if err != nil {
		logger.Fatal("history backend", zap.Error(err))
	}
	prefStore, err := prefsStore(cfg.PrefsBackend, gdb, rds)
	if err != nil {
		logger.Fatal("preferences backend", zap.Error(err))
	}

	reg := newRegistry(cfg)
	model := cfg.AIGatewayModel
	if cfg.AIProvider == "ollama" {
		model = cfg.OllamaModel
	}
	if cfg.AIProvider == "gateway" && cfg.AIGatewayAPIKey == "" {
		logger.Warn("AI_GATEWAY_API_KEY is not set, health-chat calls will fail")
	}
	logger.Info("ai providers registered",
		zap.Strings("providers", reg.Names()),
		zap.String("active", cfg.AIProvider),
		zap.String("model", model),
	)

	svc := assistant.NewService(reg, cfg.AIProvider, model, logger.Named("assistant"))
	manager := chat.NewManager(gateway.NewLocal(svc), histories.For, logger.Named("chat"))
	go pruneSessions(ctx, manager)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandler(cfg, manager, svc, prefStore, logger.Named("http"))
	router := httpapi.NewRouter(cfg, h, logger.Named("access"))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("gateway", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.AIGatewayModel
		}
		p := ai.NewCompletionsProvider(cfg.AIGatewayBaseURL, cfg.AIGatewayAPIKey, m, cfg.AITemperature)
		p.Client.Timeout = cfg.GatewayTimeout
		return p, nil
	})

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		p := ai.NewOllamaProvider(cfg.OllamaBaseURL, m, cfg.AITemperature)
		p.Client.Timeout = cfg.GatewayTimeout
		return p, nil
	})

	return reg
}

func historyBackend(kind string, gdb *gorm.DB, rds *redisstore.Store) (history.Backend, error) {
	switch kind {
	case "memory":
		return history.NewMemoryBackend(), nil
	case "sql":
		return history.NewSQLBackend(gdb), nil
	case "redis":
		return history.NewRedisBackend(rds.Client), nil
	default:
		return nil, fmt.Errorf("unsupported HISTORY_BACKEND=%q", kind)
	}
}

func prefsStore(kind string, gdb *gorm.DB, rds *redisstore.Store) (prefs.Store, error) {
	switch kind {
	case "memory":
		return prefs.NewMemoryStore(), nil
	case "sql":
		return prefs.NewSQLStore(gdb), nil
	case "redis":
		return prefs.NewRedisStore(rds.Client), nil
	default:
		return nil, fmt.Errorf("unsupported PREFS_BACKEND=%q", kind)
	}
}

func pruneSessions(ctx context.Context, m *chat.Manager) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.PruneIdle(now.Add(-sessionIdleTTL))
		}
	}
}
