package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lancehub/auth"
	"lancehub/chats"
	"lancehub/db"
	"lancehub/escrow"
	"lancehub/globals"
	"lancehub/jobs"
	"lancehub/live"
	"lancehub/mq"
	"lancehub/notify"
	"lancehub/orders"
	"lancehub/profile"
	"lancehub/proposals"
	"lancehub/ratelim"
	"lancehub/reviews"
	"lancehub/routes"
	"lancehub/store"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func setupRouter(rateLimiter *ratelim.RateLimiter, hub *live.Hub) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	st := store.NewMongo()
	dispatcher := notify.NewDispatcher(st, &notify.RedisEvents{})
	executor := notify.NewExecutor(dispatcher)

	routes.AddAuthRoutes(router, auth.NewHandlers(st), rateLimiter)
	routes.AddJobRoutes(router, jobs.NewHandlers(st, executor), rateLimiter)
	routes.AddProposalRoutes(router, proposals.NewHandlers(st, executor), rateLimiter)
	routes.AddEscrowRoutes(router, escrow.NewHandlers(st, executor, globals.ExplorerBaseURL), rateLimiter)
	routes.AddOrderRoutes(router, orders.NewHandlers(st, executor), rateLimiter)
	routes.AddNotificationRoutes(router, notify.NewHandlers(st, notify.RedisUnread{}))
	routes.AddChatRoutes(router, chats.NewHandlers(st), rateLimiter)
	routes.AddProfileRoutes(router, profile.NewHandlers(st), reviews.NewHandlers(st), rateLimiter)
	routes.AddLiveRoutes(router, hub)
	routes.AddStaticRoutes(router)

	return router
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := db.CreateIndexes(ctx); err != nil {
		log.Printf("index creation: %v", err)
	}
	cancel()

	rateLimiter := ratelim.NewRateLimiter()

	// live hub fans workflow events out to websocket clients
	hub := live.NewHub()
	go hub.Run()
	go mq.StartEventWorker(hub)

	router := setupRouter(rateLimiter, hub)

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("shutting down live hub...")
		hub.Stop()
	})

	go func() {
		log.Printf("🚀 Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
