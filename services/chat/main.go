package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatroom/internal/config"
	"github.com/chatroom/internal/engine"
	"github.com/chatroom/internal/handler"
	"github.com/chatroom/internal/limits"
	"github.com/chatroom/internal/logger"
	"github.com/chatroom/internal/middleware"
	"github.com/chatroom/internal/repository"
	"github.com/chatroom/internal/startup"
	"github.com/chatroom/internal/storage"
	memstore "github.com/chatroom/internal/storage/memory"
	redisstore "github.com/chatroom/internal/storage/redis"
	"github.com/chatroom/internal/ws"
	"github.com/chatroom/migrations"
)

func main() {
	logger.SetPrefix("chat")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting chat service")
	cfg := config.Load()

	backend := cfg.StorageBackend
	if *dev {
		backend = "postgres"
	}

	var store storage.RoomStore
	switch backend {
	case "memory", "":
		store = memstore.New()
		logger.Info("storage: in-memory (rooms are lost on restart)")
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rs, err := redisstore.New(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Errorf("redis store: %v", err)
			os.Exit(1)
		}
		store = rs
		logger.Info("storage: redis")
	case "postgres":
		var embeddedDB *embeddedpostgres.EmbeddedPostgres
		if *dev {
			var err error
			embeddedDB, err = startEmbeddedPostgres(cfg)
			if err != nil {
				logger.Errorf("embedded postgres: %v", err)
				os.Exit(1)
			}
			defer func() {
				logger.Info("stopping embedded postgres...")
				if err := embeddedDB.Stop(); err != nil {
					logger.Errorf("embedded postgres stop: %v", err)
				}
			}()
		}

		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
		if err != nil {
			logger.Errorf("parse db config: %v", err)
			os.Exit(1)
		}
		poolCfg.MaxConns = int32(cfg.DBMaxConnections())
		poolCfg.MinConns = 4

		pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
		defer pool.Close()

		runMigrations(pool)
		if *migrate && !*dev {
			return
		}
		logger.Info("database connected, migrations applied")
		store = repository.NewStore(pool)
	default:
		logger.Errorf("unknown storage backend %q (expected memory, redis or postgres)", backend)
		os.Exit(1)
	}
	defer store.Close()

	eng := engine.New(limits.Default(), store)
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := eng.Restore(restoreCtx); err != nil {
		restoreCancel()
		logger.Errorf("restore rooms: %v", err)
		os.Exit(1)
	}
	restoreCancel()
	logger.Infof("rooms restored, backend=%s", backend)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(eng, cfg.MaxWSConnections, cfg.WSSendBufferSize, time.Duration(cfg.WSWriteTimeoutMS)*time.Millisecond)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	roomH := handler.NewRoomHandler(eng)
	msgH := handler.NewMessageHandler(eng)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)
	validateH := handler.NewValidateHandler()

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	if os.Getenv("APP_ENV") == "production" {
		r.Use(middleware.InternalOnly)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Post("/api/validate", validateH.ValidateField)
	r.Post("/api/validate/profile", validateH.ValidateProfile)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Get("/api/rooms", roomH.ListRooms)
		r.Post("/api/rooms", roomH.CreateRoom)
		r.Get("/api/rooms/{roomId}", roomH.GetRoom)
		r.Put("/api/rooms/{roomId}", roomH.RenameRoom)
		r.Delete("/api/rooms/{roomId}", roomH.DeleteRoom)
		r.Get("/api/rooms/{roomId}/members", roomH.GetMembers)
		r.Post("/api/rooms/{roomId}/join", roomH.Join)
		r.Post("/api/rooms/{roomId}/leave", roomH.Leave)
		r.Post("/api/rooms/{roomId}/kick", roomH.Kick)
		r.Post("/api/rooms/{roomId}/ban", roomH.Ban)
		r.Put("/api/rooms/{roomId}/roles", roomH.GrantRole)
		r.Get("/api/rooms/{roomId}/messages", msgH.GetMessages)
		r.Post("/api/rooms/{roomId}/messages", msgH.CreateMessage)
		r.Put("/api/rooms/{roomId}/messages/{messageId}", msgH.EditText)
		r.Delete("/api/rooms/{roomId}/messages/{messageId}", msgH.DeleteMessage)
		r.Post("/api/rooms/{roomId}/messages/{messageId}/attachments", msgH.AddAttachments)
		r.Delete("/api/rooms/{roomId}/messages/{messageId}/attachments", msgH.RemoveAttachments)
		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files := []string{
		"001_init.sql",
	}
	for _, f := range files {
		data, err := migrations.Files.ReadFile(f)
		if err != nil {
			logger.Errorf("read migration %s: %v", f, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", f, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chatroom"
		password = "chatroom_secret"
		database = "chatroom"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
