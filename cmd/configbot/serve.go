package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/classifier"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/config"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/configstore"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/healthcheck"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/logging"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/oracle"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/pipeline"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the configuration bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				host, port, err := splitListen(listen)
				if err != nil {
					return err
				}
				cfg.Server = config.ServerConfig{Host: host, Port: port}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBot(cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, 0.0.0.0:5003)")
	return cmd
}

func runBot(cfg *config.Config) error {
	logger := logging.WithComponent("main")
	logger.Info("Starting configbot", "version", version, "model", cfg.Oracle.Model)

	ollama, err := oracle.NewOllamaClient(&oracle.OllamaConfig{
		URL:     cfg.Oracle.URL,
		Model:   cfg.Oracle.Model,
		Timeout: cfg.Oracle.GetTimeout(),
		NumCtx:  cfg.Oracle.NumCtx,
	}, logging.WithComponent("oracle"))
	if err != nil {
		return err
	}

	store, err := configstore.NewClient(configstore.Config{
		SchemaURL: cfg.Collaborators.SchemaURL,
		ValuesURL: cfg.Collaborators.ValuesURL,
		Timeout:   cfg.Collaborators.GetTimeout(),
	}, logging.WithComponent("configstore"))
	if err != nil {
		return err
	}

	orch := pipeline.New(
		classifier.New(ollama, logging.WithComponent("classifier")),
		store,
		ollama,
		logging.WithComponent("pipeline"),
	)

	checker := healthcheck.New(cfg.Health.Schedule, logging.WithComponent("healthcheck"))
	checker.Register("oracle", ollama.Health)
	checker.Register("schema", healthcheck.HTTPProbe(nil, strings.TrimRight(cfg.Collaborators.SchemaURL, "/")+"/health"))
	checker.Register("values", healthcheck.HTTPProbe(nil, strings.TrimRight(cfg.Collaborators.ValuesURL, "/")+"/health"))
	if err := checker.Start(); err != nil {
		return err
	}

	srv := server.New(cfg, orch, checker, logging.WithComponent("server"))

	return runUntilSignal(logger, srv.Start, func(ctx context.Context) error {
		logger.Info("Stopping health checks")
		checker.Stop()
		logger.Info("Stopping HTTP server")
		return srv.Shutdown(ctx)
	})
}
