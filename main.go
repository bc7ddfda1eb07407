package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/whisper-im/whisper/internal/auth"
	"github.com/whisper-im/whisper/internal/config"
	"github.com/whisper-im/whisper/internal/handlers"
	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/middleware"
	"github.com/whisper-im/whisper/internal/store/mongostore"
	"github.com/whisper-im/whisper/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(cfg.Debug)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.FatalF("Database init failed: %v", err)
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	hub := ws.NewHub(st, verifier, cfg.AllowedOrigins)

	authHandler := &handlers.AuthHandler{Store: st, Verifier: verifier}
	chatHandler := &handlers.ChatHandler{Store: st}
	userHandler := &handlers.UserHandler{Store: st}
	requireAuth := middleware.Auth(verifier, st)

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/api/auth/sync", authHandler.Sync).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(requireAuth)
	api.HandleFunc("/users", userHandler.GetUsers).Methods("GET")
	api.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	api.HandleFunc("/chats", chatHandler.GetChats).Methods("GET")
	api.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")

	r.HandleFunc("/ws", hub.ServeWS)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: corsHandler.Handler(r),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoF("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WarnF("Server shutdown: %v", err)
		}
		return st.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.FatalF("Server error: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.DebugF("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
