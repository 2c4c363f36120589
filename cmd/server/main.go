package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"yaothink/internal/auth"
	"yaothink/internal/codestore"
	"yaothink/internal/config"
	"yaothink/internal/database"
	"yaothink/internal/logger"
	"yaothink/internal/server"
	"yaothink/internal/sms"
	"yaothink/internal/storage"
	"yaothink/internal/user"
)

func main() {
	lgr := logger.New("yaothink-api")
	logger.SetDefault(lgr)

	if err := config.ValidateEnv("DATABASE_URL", "TOKEN_SECRET"); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	port := config.GetEnvOrDefault("PORT", "8080")
	tokenTTL := config.GetEnvDuration("TOKEN_TTL", auth.DefaultTokenTTL)

	ctx := context.Background()

	db, err := database.New(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	lgr.Info("connected to database")

	// Without REDIS_ADDR codes live in process memory; fine for development,
	// not for multi-instance deployments.
	var codes codestore.Store
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		codes = codestore.NewRedisStore(redisAddr, os.Getenv("REDIS_PASSWORD"), config.GetEnvInt("REDIS_DB", 0))
		lgr.Info("using redis code store", "addr", redisAddr)
	} else {
		codes = codestore.NewMemoryStore()
		lgr.Warn("REDIS_ADDR not set, using in-memory code store")
	}

	smsConfig := sms.NewConfig()
	sender := sms.NewSender(smsConfig)
	lgr.Info("sms sender ready", "mode", smsConfig.Mode)

	var avatars storage.Service
	if os.Getenv("S3_BUCKET") != "" {
		avatars, err = storage.New(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize avatar storage: %v", err)
		}
		lgr.Info("avatar storage ready", "bucket", os.Getenv("S3_BUCKET"))
	} else {
		lgr.Warn("S3_BUCKET not set, avatar uploads disabled")
	}

	tokens := auth.NewTokenIssuer(os.Getenv("TOKEN_SECRET"), tokenTTL)
	users := database.NewUserRepository(db)
	records := database.NewRecordRepository(db)

	authService := auth.NewService(users, codes, sender, tokens, lgr)
	authHandler := auth.NewHandler(authService, lgr)
	userHandler := user.NewHandler(authService, records, avatars, lgr)

	router := server.NewRouter(server.Deps{
		Auth:   authHandler,
		User:   userHandler,
		Tokens: tokens,
		Log:    lgr,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lgr.Info("api service listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	lgr.Info("stopped")
}
