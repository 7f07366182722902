package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/server"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServer,
	}
	cmd.Flags().String("host", "", "listen host (overrides config)")
	cmd.Flags().Int("port", 0, "listen port (overrides config)")
	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		env.cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		env.cfg.Server.Port = port
	}
	env.logger.Info("config loaded",
		zap.String("config_path", env.configPath),
		zap.Bool("debug", env.debug),
		zap.String("blob_backend", env.cfg.Blob.Backend),
		zap.String("embedding_provider", env.cfg.Embedding.Provider),
	)

	ctx := cmd.Context()
	components, err := initializeComponents(ctx, env.cfg, env.logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, components.Indexer, components.Storage, env.cfg, env.logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	env.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
