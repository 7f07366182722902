package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/promptrepo/internal/cli"
	"github.com/hyperjump/promptrepo/internal/models"
)

func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [prompt text...]",
		Short: "Add a prompt",
		Long:  `Store a prompt and index it for search. Reads the prompt text from stdin if none is given.`,
		Example: `  promptrepo add --title "SQL helper" --tool ChatGPT --tag sql "You write PostgreSQL queries."
  cat prompt.txt | promptrepo add --title "Reviewer"`,
		RunE: runAdd,
	}
	cmd.Flags().String("title", "", "prompt title (required)")
	cmd.Flags().String("description", "", "short description")
	cmd.Flags().StringSlice("tool", nil, "tool the prompt was used with (repeatable)")
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	cmd.Flags().String("username", "", "author name")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	text, err := resolvePromptText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	input := &models.PromptInput{PromptText: text}
	input.Title, _ = cmd.Flags().GetString("title")
	input.Description, _ = cmd.Flags().GetString("description")
	input.ToolUsed, _ = cmd.Flags().GetStringSlice("tool")
	input.Tags, _ = cmd.Flags().GetStringSlice("tag")
	input.Username, _ = cmd.Flags().GetString("username")

	components, err := initializeComponents(cmd.Context(), env.cfg, env.logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	p, status, err := components.Indexer.IndexPrompt(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("add prompt: %w", err)
	}
	return cli.WritePrompt(cmd.OutOrStdout(), p, status, env.format)
}

func resolvePromptText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
