package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"fuelninja/config"
	"fuelninja/engine"
	"fuelninja/messaging"
	"fuelninja/store"
	"fuelninja/viewstate"
	"fuelninja/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "fuelninja.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("fuelninja", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("fuelninja: database open (%s)", cfg.Database.Driver)

	// Redis (optional cache for live tracking state)
	var viewStore *viewstate.RedisStore
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("fuelninja: redis not available (%v), running without cache", err)
	} else {
		log.Printf("fuelninja: redis connected (%s)", cfg.Redis.Address)
		viewStore = viewstate.NewRedisStore(redisClient)
	}
	cancel()
	defer redisClient.Close()

	view := viewstate.NewManager(db, viewStore)

	// Messaging client (optional order event publishing)
	var msgClient *messaging.Client
	if len(cfg.Messaging.Kafka.Brokers) > 0 || cfg.Messaging.Backend == "mqtt" {
		msgClient = messaging.NewClient(&cfg.Messaging)
		if err := msgClient.Connect(); err != nil {
			log.Printf("fuelninja: messaging connect failed (%v)", err)
		} else {
			log.Printf("fuelninja: messaging connected (%s)", cfg.Messaging.Backend)
		}
		defer msgClient.Close()
	} else {
		log.Printf("fuelninja: no messaging backend configured, events stay local")
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		View:       view,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("fuelninja: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("fuelninja: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("fuelninja: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("fuelninja: stopped")
}
