package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"unihive/auth"
	"unihive/chats"
	"unihive/config"
	"unihive/db"
	"unihive/filemgr"
	"unihive/hives"
	"unihive/middleware"
	"unihive/mq"
	"unihive/ratelim"
	"unihive/rdx"
	"unihive/routes"
	"unihive/sweeper"
)

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func mailer(cfg config.Config) auth.Mailer {
	if cfg.SMTPHost == "" {
		log.Printf("SMTP_HOST not set; OTP mails go to the log")
		return auth.LogMailer{}
	}
	return auth.SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)
	middleware.SetSecret(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	if err := rdx.Init(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}

	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, 10*time.Minute)

	// initialize chat hub
	hub := chats.NewHub()
	go hub.Run()

	// fan listing changes from every instance out to hive sockets
	go func() {
		if err := mq.Listen(ctx, rdx.Conn, hub.PushHiveEvent); err != nil {
			log.Printf("[mq] listener stopped: %v", err)
		}
	}()

	listings := hives.NewMongoRepository(db.ListingsCollection)
	sweep := sweeper.New(listings, cfg.SweepSpec)
	if err := sweep.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("sweeper")
	}

	router := httprouter.New()
	routes.RoutesWrapper(router, rateLimiter, routes.Handlers{
		Auth:      auth.NewHandler(auth.NewMongoUsers(db.UserCollection), auth.RedisOTPStore{TTL: cfg.OTPTTL}, mailer(cfg), cfg.TokenTTL),
		Hives:     hives.NewHandler(listings, filemgr.New(cfg.UploadDir, "listing"), mq.Emit, cfg.PublicBaseURL),
		Chats:     chats.NewHandler(chats.NewMongoRepository(db.ChatsCollection, db.MessagesCollection), hub),
		UploadDir: cfg.UploadDir,
	})

	// logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := middleware.Logging(routes.Pattern(router))(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Printf("Shutting down chat hub...")
		hub.Stop()
	})

	go func() {
		log.Printf("Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	sweep.Stop()
	rateLimiter.Stop()
	rdx.Close()
	db.Disconnect(shutdownCtx)

	log.Printf("Server stopped cleanly")
}
