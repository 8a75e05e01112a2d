package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/config"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/keystore"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/logging"
)

type collaboratorOpts struct {
	kind    string
	suffix  string
	dir     string
	listen  string
	backend string
}

func newSchemaServerCmd() *cobra.Command {
	opts := &collaboratorOpts{kind: "schema", suffix: ".schema.json"}
	cmd := &cobra.Command{
		Use:   "schema-server",
		Short: "Serve JSON schemas by application name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollaborator(cmd, opts, "schema-dir", func(s config.StoreConfig) string { return s.SchemaDir })
		},
	}
	cmd.Flags().StringVar(&opts.dir, "schema-dir", "/data/schemas", "directory holding <app>.schema.json files")
	cmd.Flags().StringVar(&opts.listen, "listen", "0.0.0.0:5001", "listen address")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "document backend: file or redis (default from config)")
	return cmd
}

func newValuesServerCmd() *cobra.Command {
	opts := &collaboratorOpts{kind: "values", suffix: ".value.json"}
	cmd := &cobra.Command{
		Use:   "values-server",
		Short: "Serve current configuration values by application name",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirFlag := "values-dir"
			if !cmd.Flags().Changed("values-dir") && cmd.Flags().Changed("schema-dir") {
				dirFlag = "schema-dir"
			}
			return runCollaborator(cmd, opts, dirFlag, func(s config.StoreConfig) string { return s.ValuesDir })
		},
	}
	cmd.Flags().StringVar(&opts.dir, "values-dir", "/data/values", "directory holding <app>.value.json files")
	cmd.Flags().StringVar(&opts.dir, "schema-dir", "/data/values", "alias of --values-dir")
	cmd.Flags().MarkHidden("schema-dir")
	cmd.Flags().StringVar(&opts.listen, "listen", "0.0.0.0:5002", "listen address")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "document backend: file or redis (default from config)")
	return cmd
}

func runCollaborator(cmd *cobra.Command, opts *collaboratorOpts, dirFlag string, fromConfig func(config.StoreConfig) string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.WithComponent(opts.kind + "-server")

	backend := cfg.Store.Backend
	if opts.backend != "" {
		backend = opts.backend
	}
	dir := opts.dir
	if !cmd.Flags().Changed(dirFlag) {
		if d := fromConfig(cfg.Store); d != "" {
			dir = d
		}
	}

	var source keystore.Source
	switch backend {
	case "", "file":
		source = keystore.NewFileSource(dir, opts.suffix)
		logger.Info("Serving documents from directory", "dir", dir)
	case "redis":
		rdb, err := keystore.NewRedisClient(keystore.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		source = keystore.NewRedisSource(rdb, cfg.Store.Redis.Prefix, opts.kind)
		logger.Info("Serving documents from redis", "addr", cfg.Store.Redis.Addr, "prefix", cfg.Store.Redis.Prefix)
	default:
		return fmt.Errorf("unknown store backend: %q", backend)
	}

	h := keystore.NewHandler(opts.kind, source, logger)
	return serveHandler(logger, opts.listen, h.Router())
}
