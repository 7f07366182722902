package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/promptrepo/internal/cli"
	"github.com/hyperjump/promptrepo/internal/models"
)

func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search prompts",
		Long: `Search prompts by meaning. The query is all arguments joined by spaces.
When embeddings or the blob store are unavailable, results come from a
case-insensitive substring match instead and carry no score.`,
		Example: `  promptrepo search sql query helper
  promptrepo search --limit 3 --json "code review"
  promptrepo search --server http://localhost:8080 haiku`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
	cmd.Flags().IntP("limit", "n", 0, "maximum results (default from config)")
	cmd.Flags().String("server", "", "query a running server at this base URL instead of opening the stores")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	limit, _ := cmd.Flags().GetInt("limit")
	serverURL, _ := cmd.Flags().GetString("server")
	query := &models.SearchQuery{Query: buildSearchQuery(args), Limit: limit}

	var response *models.SearchResponse
	if serverURL != "" {
		response, err = searchViaHTTP(cmd, serverURL, query)
	} else {
		response, err = searchInProcess(cmd, env, query)
	}
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), response, env.format)
}

func searchInProcess(cmd *cobra.Command, env *runEnv, query *models.SearchQuery) (*models.SearchResponse, error) {
	components, err := initializeComponents(cmd.Context(), env.cfg, env.logger, false)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	response, err := components.Engine.Search(cmd.Context(), query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return response, nil
}

func searchViaHTTP(cmd *cobra.Command, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	params := url.Values{"q": {query.Query}}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	target := strings.TrimRight(serverURL, "/") + "/api/v1/search?" + params.Encode()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 70 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, body.Error)
	}
	var out models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}
