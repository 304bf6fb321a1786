// Courier Forwarder — хост доставки сообщений.
//
// Forwarder:
//   - Читает конфигурацию store'ов, endpoint'ов, sequence'ов и процессоров
//   - Поднимает message store'ы (memory, RabbitMQ, PostgreSQL, Redis)
//   - Запускает процессоры, доставляющие сообщения на HTTP endpoints
//   - Отдаёт admin API, /healthz и /metrics
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Courier/internal/api"
	"github.com/shaiso/Courier/internal/config"
	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/forwarder"
	"github.com/shaiso/Courier/internal/mq"
	"github.com/shaiso/Courier/internal/processor"
	"github.com/shaiso/Courier/internal/redisq"
	"github.com/shaiso/Courier/internal/repo"
	"github.com/shaiso/Courier/internal/sequence"
	"github.com/shaiso/Courier/internal/store"
	"github.com/shaiso/Courier/internal/telemetry"
	"github.com/shaiso/Courier/internal/transport"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_api_http_requests_total",
		Help: "Total HTTP requests handled by courier API",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting courier-forwarder")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Конфигурация
	cfg, err := config.Load(os.Getenv("COURIER_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if v := os.Getenv("API_PORT"); v != "" {
		cfg.Host.APIAddr = ":" + v
	}

	// Store'ы. Соединения с backend'ами разделяются между store'ами
	// одного типа и создаются при первом использовании.
	var (
		mqConn   *mq.Connection
		pgPool   *pgxpool.Pool
		redisCli *redis.Client
	)

	stores := store.NewRegistry()
	for _, sc := range cfg.Stores {
		var (
			st  store.Store
			err error
		)

		switch sc.Type {
		case config.StoreTypeMemory:
			st = store.NewInMemory(sc.Name)

		case config.StoreTypeRabbitMQ:
			if mqConn == nil {
				mqConn, err = mq.NewConnection(mq.URLFromEnv(), logger)
				if err != nil {
					logger.Error("failed to connect to RabbitMQ", "error", err)
					os.Exit(1)
				}
				defer mqConn.Close()
			}
			st, err = mq.NewStore(sc.Name, sc.Queue, mqConn, logger)

		case config.StoreTypePostgres:
			if pgPool == nil {
				pgPool, err = repo.NewPool(ctx)
				if err != nil {
					logger.Error("failed to connect to database", "error", err)
					os.Exit(1)
				}
				defer pgPool.Close()
			}
			st, err = repo.NewStore(ctx, sc.Name, pgPool, logger)

		case config.StoreTypeRedis:
			if redisCli == nil {
				redisCli, err = redisq.NewClient(ctx, redisq.URLFromEnv())
				if err != nil {
					logger.Error("failed to connect to Redis", "error", err)
					os.Exit(1)
				}
				defer redisCli.Close()
			}
			st, err = redisq.NewStore(ctx, sc.Name, sc.Stream, sc.Group, redisCli, logger)
		}

		if err != nil {
			logger.Error("failed to create store", "store", sc.Name, "error", err)
			os.Exit(1)
		}
		if err := stores.Register(st); err != nil {
			logger.Error("failed to register store", "store", sc.Name, "error", err)
			os.Exit(1)
		}

		depthOf := st
		telemetry.RegisterStoreDepth(sc.Name, func() float64 {
			depthCtx, depthCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer depthCancel()
			depth, err := depthOf.Depth(depthCtx)
			if err != nil {
				return -1
			}
			return float64(depth)
		})

		logger.Info("registered message store", "store", sc.Name, "type", sc.Type)
	}

	// Endpoint'ы
	endpoints := forwarder.EndpointMap{}
	for _, ec := range cfg.Endpoints {
		endpoints[ec.Name] = &domain.Endpoint{
			Name:             ec.Name,
			URL:              ec.URL,
			Timeout:          ec.Timeout,
			BreakerThreshold: ec.BreakerThreshold,
		}
	}

	// Sequence'ы
	sequences := sequence.NewRegistry()
	for _, qc := range cfg.Sequences {
		var seq sequence.Sequence

		switch qc.Type {
		case config.SequenceTypeStore:
			target, err := stores.Get(qc.Store)
			if err != nil {
				logger.Error("failed to resolve sequence store", "sequence", qc.Name, "error", err)
				os.Exit(1)
			}
			producer, err := target.Producer()
			if err != nil {
				logger.Error("failed to create sequence producer", "sequence", qc.Name, "error", err)
				os.Exit(1)
			}
			seq = sequence.NewStoreSequence(producer)

		default:
			seq = sequence.NewLogSequence(logger, seqLevel(qc.Level))
		}

		if err := sequences.Register(qc.Name, seq); err != nil {
			logger.Error("failed to register sequence", "sequence", qc.Name, "error", err)
			os.Exit(1)
		}
	}

	// Дефолтный sequence: доступен процессорам, даже когда
	// в конфигурации нет ни одного
	if _, lookupErr := sequences.Lookup("log"); lookupErr != nil {
		if err := sequences.Register("log", sequence.NewLogSequence(logger, slog.LevelInfo)); err != nil {
			logger.Error("failed to register default sequence", "error", err)
			os.Exit(1)
		}
	}

	// Транспорт общий для всех процессоров
	sender := transport.NewBlockingSender(transport.Config{Logger: logger})

	// Процессоры
	processors := processor.NewRegistry()
	for _, pc := range cfg.Processors {
		params, err := pc.ForwarderParams()
		if err != nil {
			logger.Error("invalid processor parameters", "processor", pc.Name, "error", err)
			os.Exit(1)
		}

		st, err := stores.Get(pc.Store)
		if err != nil {
			logger.Error("failed to resolve processor store", "processor", pc.Name, "error", err)
			os.Exit(1)
		}

		p, err := processor.New(processor.Config{
			Name:      pc.Name,
			Params:    params,
			Store:     st,
			Sender:    sender,
			Endpoints: endpoints,
			Sequences: sequences,
			Active:    pc.IsActive(),
			Stats:     telemetry.StatsFor(pc.Name),
			Logger:    logger,
		})
		if err != nil {
			logger.Error("failed to create processor", "processor", pc.Name, "error", err)
			os.Exit(1)
		}
		if err := processors.Register(p); err != nil {
			logger.Error("failed to register processor", "processor", pc.Name, "error", err)
			os.Exit(1)
		}
	}

	for _, p := range processors.List() {
		if err := p.Start(ctx); err != nil {
			logger.Error("failed to start processor", "processor", p.Name(), "error", err)
			os.Exit(1)
		}
	}

	// API handler
	handler := api.NewHandler(api.Config{
		Processors: processors,
		Stores:     stores,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Host.APIAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Host.APIAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Сначала процессоры: Stop ждёт конца цикла доставки,
	// чтобы не бросить неподтверждённое сообщение
	for _, p := range processors.List() {
		p.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Host.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// seqLevel переводит уровень из конфигурации в slog.Level.
func seqLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
