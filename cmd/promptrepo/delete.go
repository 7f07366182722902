package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/promptrepo/internal/cli"
)

func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a prompt and its vector",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := components.Indexer.DeletePrompt(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if env.format == cli.OutputJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "status": "deleted"})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
