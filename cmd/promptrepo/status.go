package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hyperjump/promptrepo/internal/cli"
	"github.com/hyperjump/promptrepo/internal/storage"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage, vector store and embedder status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

type statusOutput struct {
	ConfigPath     string      `json:"config_path,omitempty"`
	Stats          interface{} `json:"stats"`
	DiskUsageBytes int64       `json:"disk_usage_bytes"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	components, err := initializeComponents(cmd.Context(), env.cfg, env.logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	stats, err := components.Engine.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	disk, err := storage.DiskUsageBytes(env.cfg.Storage.DatabasePath, env.cfg.Storage.FallbackIndexPath, env.cfg.Blob.SQLitePath)
	if err != nil {
		return fmt.Errorf("disk usage: %w", err)
	}

	if env.format == cli.OutputJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), statusOutput{ConfigPath: env.configPath, Stats: stats, DiskUsageBytes: disk})
	}
	configPath := env.configPath
	if configPath == "" {
		configPath = "(defaults)"
	}
	vectors := strconv.Itoa(stats.Vectors)
	if stats.VectorError != "" {
		vectors = "unavailable: " + stats.VectorError
	}
	cli.WriteKeyValues(cmd.OutOrStdout(), [][2]string{
		{"Config", configPath},
		{"Prompts", strconv.FormatInt(stats.Prompts, 10)},
		{"Vectors", vectors},
		{"Dimensions", strconv.Itoa(stats.Dimensions)},
		{"Blob backend", stats.BlobBackend},
		{"Embedder", stats.Embedder},
		{"Fallback documents", strconv.FormatUint(stats.FallbackDocs, 10)},
		{"Disk usage", cli.FormatBytes(disk)},
	})
	return nil
}
