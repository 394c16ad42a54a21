package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/eventtix/internal/health"
	"github.com/vladislavdragonenkov/eventtix/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/eventtix/internal/service/idempotency"
	"github.com/vladislavdragonenkov/eventtix/internal/service/notifier"
	"github.com/vladislavdragonenkov/eventtix/internal/service/outbox"
	"github.com/vladislavdragonenkov/eventtix/internal/service/rest"
	"github.com/vladislavdragonenkov/eventtix/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second

	// Пороги для health-проверки outbox backlog.
	outboxBacklogThreshold = 1000
	outboxBacklogMaxAge    = 10 * time.Minute
)

// Run собирает и запускает сервис бронирования, блокируясь до отмены ctx
// или фатальной ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	kafkaProducer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	if kafkaErr != nil {
		logger.WithError(kafkaErr).Warn("kafka is unavailable, events stay in the outbox")
	}
	defer closeKafka(kafkaProducer, logger)

	dispatcher := notifier.NewDispatcher(deps.BaseNotifier, notifier.DefaultDispatcherConfig())
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	orchestrator := createOrchestrator(deps, dispatcher, kafkaProducer)
	defer orchestrator.Wait()

	// Фоновые воркеры: публикация outbox (только при живом Kafka) и
	// чистка истёкших idempotency-ключей.
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicReservationEvents)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		go worker.Run(ctx)
	} else {
		logger.Info("outbox worker disabled: kafka is not configured")
	}

	cleanup := idempotency.NewCleanupWorker(
		deps.Idempotency,
		idempotency.WithLogger(logger.WithField("layer", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanup.Run(ctx)

	restOpts := []rest.Option{
		rest.WithIdempotency(deps.Idempotency),
		rest.WithLogger(logger.WithField("layer", "rest")),
	}
	// Локальный симулятор публикуется как /pay: процесс сам себе платёжный шлюз.
	if cfg.PaymentServiceURL == "" {
		restOpts = append(restOpts, rest.WithPaymentEndpoint(deps.Payments))
	}

	restServer := rest.NewServer(
		orchestrator,
		deps.UsersSvc,
		deps.Events,
		deps.Reservations,
		deps.Timeline,
		restOpts...,
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.Store.Ping(pingCtx)
		}))
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.Outbox, outboxBacklogThreshold, outboxBacklogMaxAge))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: restServer.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health-пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
