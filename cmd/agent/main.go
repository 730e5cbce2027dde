package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/flaas/agent"
	"github.com/absmach/flaas/pkg/mqtt"
	"github.com/absmach/flaas/pkg/sdk"
	"github.com/absmach/supermq/pkg/server"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "agent"
	envPrefix     = "AGENT_"
	envPrefixMQTT = "AGENT_MQTT_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel        string `env:"AGENT_LOG_LEVEL"        envDefault:"info"`
	ManagerURL      string `env:"AGENT_MANAGER_URL"      envDefault:"http://localhost:7070"`
	TLSVerification bool   `env:"AGENT_TLS_VERIFICATION" envDefault:"false"`
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

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	agentCfg := agent.Config{}
	if err := env.ParseWithOptions(&agentCfg, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s configuration : %s", svcName, err.Error()))

		return
	}
	if agentCfg.Username == "" {
		agentCfg.Username = namegenerator.NewGenerator().Generate()
	}

	mqttCfg := mqtt.Config{}
	if err := env.ParseWithOptions(&mqttCfg, env.Options{Prefix: envPrefixMQTT}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s MQTT configuration : %s", svcName, err.Error()))

		return
	}
	if _, ok := os.LookupEnv(envPrefixMQTT + "CLIENT_ID"); !ok {
		mqttCfg.ClientID = "flaas-agent-" + agentCfg.Username
	}
	pubsub, err := mqtt.NewPubSub(mqttCfg, logger)
	if err != nil {
		logger.Error("failed to initialize mqtt client", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := pubsub.Disconnect(context.Background()); err != nil {
			logger.Warn("failed to disconnect mqtt client", slog.Any("error", err))
		}
	}()

	client := sdk.NewSDK(sdk.Config{
		ManagerURL:      cfg.ManagerURL,
		TLSVerification: cfg.TLSVerification,
	})
	trainer := agent.NewSimulatedTrainer(agentCfg.Seed, agentCfg.Samples, agentCfg.Accuracy)

	svc, err := agent.NewService(ctx, agentCfg, pubsub, client, trainer, logger)
	if err != nil {
		logger.Error("failed to initialize service", slog.String("error", err.Error()))

		return
	}
	logger.Info("agent started", slog.String("device_id", svc.DeviceID()), slog.String("username", agentCfg.Username))

	g.Go(func() error {
		return svc.Run(ctx)
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
