// @title                       Event Booker API
// @version                     1.0
// @description                 Event listing and seat booking with token-based access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/eventbooker/event-booker/internal/api"
	"github.com/eventbooker/event-booker/internal/api/handler"
	"github.com/eventbooker/event-booker/internal/api/metrics"
	"github.com/eventbooker/event-booker/internal/core/auth"
	"github.com/eventbooker/event-booker/internal/core/ports"
	"github.com/eventbooker/event-booker/internal/core/service"
	"github.com/eventbooker/event-booker/internal/infrastructure/config"
	"github.com/eventbooker/event-booker/internal/infrastructure/db/memory"
	mongodb "github.com/eventbooker/event-booker/internal/infrastructure/db/mongo"
	redisdb "github.com/eventbooker/event-booker/internal/infrastructure/db/redis"
	"github.com/eventbooker/event-booker/internal/infrastructure/http/handlers"
	"github.com/eventbooker/event-booker/internal/infrastructure/jobs"
	"github.com/eventbooker/event-booker/internal/infrastructure/queue"
	"github.com/eventbooker/event-booker/pkg/events"
	"github.com/eventbooker/event-booker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var errNATSDown = errors.New("nats disconnected")

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

// stores groups the repositories selected by STORE.
type stores struct {
	users    ports.UserRepository
	events   ports.EventRepository
	bookings ports.BookingRepository
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, envconfig.OsLookuper())
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "event-booker",
	})

	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()
	probes := map[string]handlers.Probe{}

	// --- Storage ---
	st, err := openStores(ctx, cfg, log, probes, &cleanups)
	if err != nil {
		return err
	}

	var idem ports.IdempotencyStore = memory.NewIdempotencyStore()
	if cfg.Redis.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Mongo.Timeout,
		})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("redis close error")
			}
		})
		idem = redisdb.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		probes["redis"] = handlers.RedisProbe(rdb)
	}

	// --- Notifications ---
	var publisher events.Publisher = events.NewLogPublisher(logger.Component("notices"))
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, logger.Component("nats"))
		if err != nil {
			return err
		}
		publisher = nc
		probes["nats"] = handlers.ConnectedProbe(nc.Connected, errNATSDown)
	}
	cleanups = append(cleanups, func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("publisher close error")
		}
	})
	dispatcher := queue.NewDispatcher(cfg.Worker.NotifyWorkers, publisher, logger.Component("dispatcher"),
		queue.WithDropHook(metrics.NoticesDroppedTotal.Inc))

	// --- Access control ---
	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TTL:      cfg.Auth.JWTExpire,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		return err
	}
	pipeline := auth.NewPipeline(codec, auth.NewResolver(st.users), logger.Component("access"),
		auth.WithObserver(metrics.ObserveAuthDecision))

	// --- Services ---
	authService := service.NewAuthService(st.users, hasher, codec, logger.Component("auth"))
	eventService := service.NewEventService(st.events, st.bookings, idem, dispatcher, logger.Component("events"))

	scheduler := jobs.NewScheduler(eventService, cfg.Worker.SweepSchedule, logger.Component("sweeper"))
	if err := scheduler.Start(); err != nil {
		return err
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:          log,
		Pipeline:     pipeline,
		AuthService:  authService,
		EventService: eventService,
		Cookie: handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.IsProduction(),
			MaxAge: cfg.Auth.JWTExpire,
		},
		Probes: probes,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
		}
		stopWorkers()
		dispatcher.Wait()
		return nil
	})

	err = g.Wait()
	log.Info().Msg("server exited")
	return err
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger, probes map[string]handlers.Probe, cleanups *[]func()) (stores, error) {
	if cfg.Store == "memory" {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return stores{
			users:    memory.NewUserRepository(),
			events:   memory.NewEventRepository(),
			bookings: memory.NewBookingRepository(),
		}, nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return stores{}, err
	}
	*cleanups = append(*cleanups, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect error")
		}
	})
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return stores{}, err
	}
	probes["mongodb"] = handlers.MongoProbe(db)

	return stores{
		users:    mongodb.NewUserRepository(db, cfg.Mongo.Timeout),
		events:   mongodb.NewEventRepository(db, cfg.Mongo.Timeout),
		bookings: mongodb.NewBookingRepository(db, cfg.Mongo.Timeout),
	}, nil
}
