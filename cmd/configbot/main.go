package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/config"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/logging"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/server"
)

var (
	// Version information (set at build time)
	version = "dev"

	configPath string
	verbose    bool
)

const shutdownTimeout = 30 * time.Second

func main() {
	server.Version = version

	rootCmd := &cobra.Command{
		Use:   "configbot",
		Short: "Natural-language configuration bot",
		Long: `configbot turns a free-text request such as "increase replicas" into a
validated configuration document for one of the known applications.

It also ships the schema and values collaborator servers the bot reads from.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newSchemaServerCmd(),
		newValuesServerCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println("configbot", version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and configures the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitListen parses host:port.
func splitListen(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen port %q", portStr)
	}
	return host, port, nil
}

// runUntilSignal runs start in the background until SIGINT/SIGTERM or a
// start failure, then calls stop with a bounded context.
func runUntilSignal(logger *slog.Logger, start func() error, stop func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	go func() { errc <- start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
		return nil
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

// serveHandler runs a plain HTTP server for h until a signal arrives.
func serveHandler(logger *slog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return runUntilSignal(logger,
		func() error {
			logger.Info("HTTP server starting", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		srv.Shutdown,
	)
}
