package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/cli"
	"github.com/hyperjump/promptrepo/internal/config"
	"github.com/hyperjump/promptrepo/pkg/utils"
)

const defaultConfigPath = "/usr/local/etc/promptrepo/config.yaml"

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "promptrepo",
		Short:         "Share AI prompts and find them by meaning",
		Long:          `A prompt-sharing backend with semantic search over a shared embedding matrix.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with API keys (skipped when missing)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(
		NewServerCmd(),
		NewSearchCmd(),
		NewAddCmd(),
		NewDeleteCmd(),
		NewStatusCmd(),
		NewVersionCmd(version),
	)
	return rootCmd
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development), and when neither
// exists it falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(local); statErr == nil {
				cfg, loadErr := config.Load(local)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, local, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// runEnv is what every subcommand needs before doing work.
type runEnv struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	debug      bool
	format     cli.OutputFormat
}

// setup reads the persistent flags, loads env files and config and builds
// the logger. server selects the long-running logger.
func setup(cmd *cobra.Command, server bool) (*runEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	debugFlag, _ := cmd.Flags().GetBool("debug")
	asJSON, _ := cmd.Flags().GetBool("json")

	if err := config.LoadEnvFiles(envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	debug := cfg.Debug || debugFlag
	newLogger := utils.NewCLILogger
	if server {
		newLogger = utils.NewLogger
	}
	logger, err := newLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	return &runEnv{
		cfg:        cfg,
		configPath: resolved,
		logger:     logger,
		debug:      debug,
		format:     cli.FormatFromFlag(asJSON),
	}, nil
}

// buildSearchQuery joins positional args into one query string.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
