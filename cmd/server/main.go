package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"padron/internal/afipws"
	"padron/internal/audit"
	"padron/internal/identifier"
	"padron/internal/jwtauth"
	"padron/internal/party"
	"padron/internal/platform/config"
	"padron/internal/platform/httpserver"
	"padron/internal/platform/logger"
	platformredis "padron/internal/platform/redis"
	"padron/internal/registry"
	syncengine "padron/internal/sync"
	"padron/internal/ticket"
	httptransport "padron/internal/transport/http"
)

// main wires the dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	cert, key, err := cfg.Credential()
	if err != nil {
		log.Error("failed to load credential files", "error", err)
		os.Exit(1)
	}
	cred := ticket.Credential{Certificate: cert, PrivateKey: key}
	if cred.Empty() {
		log.Warn("no certificate or private key configured; sync requests will fail until provided")
	}

	transport := afipws.NewHTTPTransport()
	signer := afipws.NewOpenSSLSigner()

	// Redis shares the ticket cache across instances; without it each
	// instance keeps its own file cache.
	var ticketStore ticket.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		ticketStore = ticket.NewRedisStore(redisClient.Client)
		log.Info("using redis ticket cache")
	} else {
		fileStore, err := ticket.NewFileStore(cfg.CacheDir)
		if err != nil {
			log.Error("failed to initialize ticket cache dir", "error", err, "dir", cfg.CacheDir)
			os.Exit(1)
		}
		ticketStore = fileStore
		log.Info("using file ticket cache", "dir", cfg.CacheDir)
	}

	auth, err := ticket.NewAuthenticator(ticketStore, signer, transport,
		ticket.AuthEndpointURL(cfg.Mode),
		ticket.WithLogger(log),
		ticket.WithTTL(cfg.TicketTTL))
	if err != nil {
		log.Error("failed to build authenticator", "error", err)
		os.Exit(1)
	}

	var (
		partyStore party.Store
		foreign    identifier.ForeignRegistry
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		partyStore = party.NewPostgres(db)
		foreign = identifier.NewPostgresForeignRegistry(db)
		log.Info("using postgres party store")
	} else {
		partyStore = party.NewMemoryStore()
		foreign = identifier.NewMemoryForeignRegistry()
		log.Warn("no postgres DSN configured, using in-memory party store")
	}

	registryClient := afipws.NewRegistryClient(transport, cfg.RepresentedCUIT)

	engineOpts := []syncengine.Option{
		syncengine.WithLogger(log),
		syncengine.WithForeignRegistry(foreign),
		syncengine.WithWorkers(cfg.SyncWorkers),
	}
	if cfg.TaxCodeFile != "" {
		table, err := syncengine.LoadCodeTable(cfg.TaxCodeFile)
		if err != nil {
			log.Error("failed to load tax code table", "error", err, "file", cfg.TaxCodeFile)
			os.Exit(1)
		}
		engineOpts = append(engineOpts, syncengine.WithCodeTable(table))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := audit.New(cfg.KafkaBrokers, cfg.KafkaTopic, audit.WithLogger(log))
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		engineOpts = append(engineOpts, syncengine.WithPublisher(publisher))
		log.Info("publishing sync outcomes", "topic", cfg.KafkaTopic)
	}

	engine, err := syncengine.New(partyStore, registryClient, auth, cred, cfg.Mode, engineOpts...)
	if err != nil {
		log.Error("failed to build sync engine", "error", err)
		os.Exit(1)
	}

	jwtService := jwtauth.NewService(cfg.JWTSigningKey, "padron")
	handler := httptransport.NewHandler(engine, partyStore, auth, cred, registry.Service, log)
	router := httptransport.NewRouter(handler, jwtService, log)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting padron server", "addr", cfg.Addr, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
