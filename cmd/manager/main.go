package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/manager/api"
	"github.com/absmach/flaas/manager/middleware"
	"github.com/absmach/flaas/pkg/blob"
	"github.com/absmach/flaas/pkg/mqtt"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName            = "manager"
	defHTTPPort        = "7070"
	envPrefix          = "MANAGER_"
	envPrefixHTTP      = "MANAGER_HTTP_"
	envPrefixMQTT      = "MANAGER_MQTT_"
	envPrefixPushwoosh = "MANAGER_PUSHWOOSH_"
	pathEnv            = ".env"
)

var errUnknownNotifier = errors.New("unknown notifier type")

type envConfig struct {
	LogLevel      string  `env:"MANAGER_LOG_LEVEL"             envDefault:"info"`
	InstanceID    string  `env:"MANAGER_INSTANCE_ID"`
	BlobType      string  `env:"MANAGER_BLOB_TYPE"             envDefault:"fs"`
	BlobPath      string  `env:"MANAGER_BLOB_PATH"             envDefault:"./data"`
	Notifier      string  `env:"MANAGER_NOTIFIER"              envDefault:"noop"`
	MQTTEnabled   bool    `env:"MANAGER_MQTT_ENABLED"          envDefault:"false"`
	TickSchedule  string  `env:"MANAGER_TICK_SCHEDULE"         envDefault:"* * * * *"`
	Questionnaire bool    `env:"MANAGER_QUESTIONNAIRE_ENABLED" envDefault:"false"`
	OTELURL       url.URL `env:"MANAGER_OTEL_URL"`
	TraceRatio    float64 `env:"MANAGER_TRACE_RATIO"           envDefault:"0"`
	Storage       storage.Config
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	repos, err := storage.NewRepositories(cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))

		return
	}
	if repos.Closer != nil {
		defer repos.Closer.Close()
	}

	blobs, closeBlobs, err := newBlobStore(cfg.BlobType, cfg.BlobPath)
	if err != nil {
		logger.Error("failed to initialize blob store", slog.String("error", err.Error()))

		return
	}
	defer closeBlobs.Close()

	var pubsub mqtt.PubSub
	if cfg.MQTTEnabled || cfg.Notifier == "mqtt" {
		mqttCfg := mqtt.Config{}
		if err := env.ParseWithOptions(&mqttCfg, env.Options{Prefix: envPrefixMQTT}); err != nil {
			logger.Error("failed to load MQTT configuration", slog.String("error", err.Error()))

			return
		}
		if pubsub, err = mqtt.NewPubSub(mqttCfg, logger); err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect from MQTT broker", slog.String("error", err.Error()))
			}
		}()
	}

	svcCfg := manager.Config{}
	if err := env.ParseWithOptions(&svcCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error("failed to load manager configuration", slog.String("error", err.Error()))

		return
	}

	notifier, err := newNotifier(cfg.Notifier, pubsub, svcCfg.TopicPrefix, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.String("error", err.Error()))

		return
	}

	opts := []manager.Option{}
	if cfg.MQTTEnabled {
		opts = append(opts, manager.WithPubSub(pubsub))
	}

	svc := manager.NewService(repos, blobs, notifier, svcCfg, logger, opts...)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		logger.Error("failed to subscribe to device topics", slog.String("error", err.Error()))

		return
	}

	ticker, err := manager.NewTickScheduler(svc, cfg.TickSchedule, cfg.Questionnaire, logger)
	if err != nil {
		logger.Error("failed to create tick scheduler", slog.String("error", err.Error()))

		return
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		if err := ticker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newBlobStore(kind, path string) (blob.Store, io.Closer, error) {
	switch kind {
	case "badger":
		store, err := blob.NewBadgerStore(path)
		if err != nil {
			return nil, nil, err
		}

		return store, store, nil
	case "memory":
		return blob.NewMemoryStore(), nopCloser{}, nil
	default:
		store, err := blob.NewFSStore(path)
		if err != nil {
			return nil, nil, err
		}

		return store, nopCloser{}, nil
	}
}

func newNotifier(kind string, pubsub mqtt.PubSub, topicPrefix string, logger *slog.Logger) (notify.Notifier, error) {
	switch kind {
	case "mqtt":
		return notify.NewMQTT(pubsub, topicPrefix), nil
	case "pushwoosh":
		cfg := notify.PushwooshConfig{}
		if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefixPushwoosh}); err != nil {
			return nil, err
		}

		return notify.NewPushwoosh(cfg, &http.Client{Timeout: cfg.Timeout}), nil
	case "noop", "":
		return notify.NewNoop(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownNotifier, kind)
	}
}
