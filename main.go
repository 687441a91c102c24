package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"musa/admin"
	"musa/api"
	"musa/cart"
	"musa/catalog"
	"musa/config"
	"musa/db"
	"musa/gallery"
	"musa/idempotency"
	"musa/inquiries"
	"musa/invoices"
	"musa/livesync"
	"musa/middleware"
	"musa/orders"
	"musa/ratelim"
	"musa/rdx"
	"musa/routes"
	"musa/session"
)

const (
	// login, registration and the public contact form
	limitPerMinute = 10
	limitBurst     = 5
)

func setupRouter(d *routes.Deps) *httprouter.Router {
	router := httprouter.New()
	routes.RoutesWrapper(router, d)
	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	kv, err := rdx.Connect(startCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if err := db.Connect(startCtx, cfg.MongoURI, cfg.MongoDB); err != nil {
		log.Fatalf("mongo: %v", err)
	}
	cancelStart()

	client, err := api.NewClient(cfg.APIBaseURL, nil)
	if err != nil {
		log.Fatalf("api client: %v", err)
	}
	client.Timeout = cfg.UpstreamTimeout

	auth := middleware.NewAuthenticator([]byte(cfg.JWTSecret), cfg.SessionTTL)

	// live sync hub, fed across instances through redis pub/sub
	relayCtx, stopRelay := context.WithCancel(context.Background())
	hub := livesync.NewHub(kv)
	go hub.Run()
	go func() {
		if err := hub.Relay(relayCtx); err != nil {
			log.Printf("livesync relay: %v", err)
		}
	}()

	rateLimiter := ratelim.NewRateLimiter(limitPerMinute, limitBurst)
	stopCleanup := make(chan struct{})
	go rateLimiter.Run(time.Minute, stopCleanup)

	deps := &routes.Deps{
		Auth: auth,
		Sessions: &session.Manager{
			Store:  session.NewStore(kv, cfg.SessionTTL),
			API:    client,
			Auth:   auth,
			Events: hub,
		},
		Cart:      &cart.Handler{Store: cart.NewStore(kv, cfg.SessionTTL), API: client, Events: hub},
		Orders:    &orders.Handler{API: client},
		Invoices:  &invoices.Handler{API: client, Drafts: invoices.NewMongoDrafts(db.InvoiceDraftsCollection), Signer: invoices.Signer{Key: []byte(cfg.InvoiceSigningKey)}},
		Catalog:   &catalog.Handler{API: client},
		Inquiries: &inquiries.Handler{API: client},
		Admin:     &admin.Handler{API: client},
		Gallery:   &gallery.Handler{API: client, Dir: cfg.GalleryDir},
		Hub:       hub,

		RateLimiter: rateLimiter,
		Idempotency: idempotency.NewMongoStore(db.IdempotencyCollection),
	}
	router := setupRouter(deps)

	// apply middleware: correlation id → logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.HeaderCorrelationID, idempotency.Header},
		ExposedHeaders: []string{middleware.HeaderCorrelationID},
	}).Handler(router)

	handler := middleware.CorrelationID(middleware.Logging(middleware.SecurityHeaders(corsHandler)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("Shutting down live sync hub...")
		stopRelay()
		hub.Stop()
		close(stopCleanup)
	})

	go func() {
		log.Printf("Server listening on %s (backend %s)", server.Addr, cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	db.Disconnect(ctx)
	if err := kv.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}

	log.Println("Server stopped cleanly")
}
