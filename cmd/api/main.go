package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"campushub.org/internal/auth"
	"campushub.org/internal/config"
	"campushub.org/internal/event"
	"campushub.org/internal/httpapi"
	"campushub.org/internal/obs"
	"campushub.org/internal/store/mongo"
	"campushub.org/internal/store/pg"
	"campushub.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var (
		events    event.Service
		authStore auth.Store
		probe     httpapi.ReadyProbe
		closeFn   func()
	)

	switch cfg.Store {
	case config.StorePostgres:
		st, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		events = st
		authStore = pg.NewAuthStore(st.DB())
		probe = httpapi.ReadyProbe{DB: st.DB()}
		closeFn = func() { _ = st.Close() }

	case config.StoreMongo:
		st, client, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("open mongo: %v", err)
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		as := mongo.NewAuthStore(client.Database(cfg.MongoDB))
		if err := as.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo auth indexes: %v", err)
		}
		events = st
		authStore = as
		probe = httpapi.ReadyProbe{Fn: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}}
		closeFn = func() { _ = disconnect(client) }

	default:
		events = event.NewInMemory()
		authStore = auth.NewMemoryStore()
		probe = httpapi.ReadyProbe{}
		closeFn = func() {}
	}

	authSvc, err := auth.NewService(authStore, cfg.AuthSecret, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	api := httpapi.New(authSvc, events, stream.New(), probe, version,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE responses outlive normal requests
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting campushub-api %s (store=%s) on %s", version, cfg.Store, cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	closeFn()
	log.Println("Stopped")
}

func disconnect(client *mongodrv.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
