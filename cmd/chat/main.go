// Command chat is a terminal client for the health assistant. It talks to
// the backend function over HTTP and keeps history and preferences in the
// configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/config"
	"github.com/suPer8Hu/health-assistant/internal/db"
	"github.com/suPer8Hu/health-assistant/internal/gateway"
	"github.com/suPer8Hu/health-assistant/internal/history"
	"github.com/suPer8Hu/health-assistant/internal/logging"
	"github.com/suPer8Hu/health-assistant/internal/prefs"
	"github.com/suPer8Hu/health-assistant/internal/store/redisstore"
)

func main() {
	profile := flag.String("profile", "local", "profile whose history and preferences are used")
	url := flag.String("url", "", "backend function URL (default FUNCTION_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *url != "" {
		cfg.FunctionURL = *url
	}
	// keep the terminal for the conversation
	cfg.Logging.Level = "error"

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, ps, closeFn, err := openStores(ctx, cfg, *profile)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer closeFn()

	gw := gateway.NewClient(cfg.FunctionURL, cfg.FunctionAPIKey, cfg.GatewayTimeout)
	r, err := newREPL(ctx, gw, store, ps, *profile, os.Stdout, logger)
	if err != nil {
		log.Fatalf("chat: %v", err)
	}
	fmt.Println("type /help for commands")
	if err := r.run(ctx, os.Stdin); err != nil {
		log.Fatalf("chat: %v", err)
	}
}

func openStores(ctx context.Context, cfg config.Config, profile string) (chat.Store, prefs.Store, func(), error) {
	switch {
	case cfg.HistoryBackend == "redis":
		rds, err := redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, err
		}
		return history.NewRedisBackend(rds.Client).For(profile), prefs.NewRedisStore(rds.Client), func() { _ = rds.Close() }, nil
	case cfg.HistoryBackend == "memory":
		return history.NewMemoryBackend().For(profile), prefs.NewMemoryStore(), func() {}, nil
	default:
		gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(gdb); err != nil {
			_ = db.Close(gdb)
			return nil, nil, nil, err
		}
		return history.NewSQLBackend(gdb).For(profile), prefs.NewSQLStore(gdb), func() { _ = db.Close(gdb) }, nil
	}
}
