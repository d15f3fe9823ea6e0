package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/inkboard/inkboard/internal/asset"
	"github.com/inkboard/inkboard/internal/auth"
	"github.com/inkboard/inkboard/internal/board"
	"github.com/inkboard/inkboard/internal/collab"
	"github.com/inkboard/inkboard/internal/config"
	"github.com/inkboard/inkboard/internal/db"
	"github.com/inkboard/inkboard/internal/export"
	mw "github.com/inkboard/inkboard/internal/middleware"
	"github.com/inkboard/inkboard/internal/storage"
	"github.com/inkboard/inkboard/internal/stroke"
	"github.com/inkboard/inkboard/internal/thumbnail"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assets, closeAssets, err := openAssets(ctx, cfg)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}
	defer closeAssets()

	// An explicitly empty DATABASE_URL runs everything in memory.
	var (
		repo  storage.Repository
		users auth.UserStore
	)
	if cfg.DatabaseURL == "" {
		slog.Warn("no database configured, documents will not survive a restart")
		repo = storage.NewMemory()
		users = auth.NewMemoryUsers()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		repo = storage.NewPostgres(pool, assets)
		users = auth.NewPostgresUsers(pool)
	}

	authService := auth.NewService(users, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	hub := collab.NewHub()
	go hub.Run(ctx)

	editorOpts := cfg.EditorOptions()
	outline := stroke.Freehand{}
	thumbs := thumbnail.New(thumbnail.DefaultOptions(), outline, editorOpts.Stroke.Brush)
	exporter := export.New(outline, editorOpts.Stroke.Brush)

	boardService := board.NewService(repo, hub, thumbs, exporter)
	boardHandler := board.NewHandler(boardService, authService, hub, cfg.Origins())

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Public auth routes go first so the authenticated subrouter does not
	// shadow them.
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	api.HandleFunc("/config/editor", board.EditorSettings(editorOpts.Settings())).Methods(http.MethodGet)
	boardHandler.Routes(api)

	r.HandleFunc("/ws/documents/{id}", boardHandler.WebSocket)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		// CORS wraps the router so preflights reach it before method matching.
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		// Stopping the hub closes every subscriber before connections drain.
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openAssets picks Cloud Storage when a bucket is configured and the local
// directory otherwise.
func openAssets(ctx context.Context, cfg *config.Config) (asset.Store, func(), error) {
	if cfg.ThumbnailBucket != "" {
		gcs, err := asset.NewGCSStore(ctx, cfg.ThumbnailBucket, cfg.GCPCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("thumbnails in cloud storage", "bucket", cfg.ThumbnailBucket)
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				slog.Error("close asset store", "error", err)
			}
		}, nil
	}
	local, err := asset.NewLocalStore(cfg.AssetDir)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("thumbnails on disk", "dir", cfg.AssetDir)
	return local, func() {}, nil
}
