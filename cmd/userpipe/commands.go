package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kalambet/userpipe/internal/api"
	"github.com/kalambet/userpipe/internal/config"
	"github.com/kalambet/userpipe/internal/pipeline"
	"github.com/kalambet/userpipe/internal/source"
	"github.com/kalambet/userpipe/internal/storage"
)

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline batch",
	Long: `Run one pipeline batch and print the report.

By default the batch runs on the server named by --server or the config.
With --local the pipeline runs in this process against the configured storage.

Examples:
  userpipe run --email ops@example.com
  userpipe run --email ops@example.com --source "CRM export"
  userpipe run --email ops@example.com --local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		src, _ := cmd.Flags().GetString("source")
		local, _ := cmd.Flags().GetBool("local")
		sourceSet := cmd.Flags().Changed("source")

		printStep("Running pipeline for %s", email)
		var (
			resp pipeline.Response
			err  error
		)
		if local {
			resp, err = runLocal(cmd.Context(), email, src, sourceSet)
		} else {
			client, cerr := newAPIClient()
			if cerr != nil {
				return cerr
			}
			resp, err = runRemote(cmd.Context(), client, email, src, sourceSet)
		}
		if err != nil {
			return err
		}

		printReport(resp)
		return nil
	},
}

func init() {
	runCmd.Flags().String("email", "", "destination for the completion notification")
	runCmd.Flags().String("source", pipeline.DefaultSource, "label stored with each result")
	runCmd.Flags().Bool("local", false, "run in-process instead of calling a server")
	runCmd.MarkFlagRequired("email")
}

func runRemote(ctx context.Context, client *apiClient, email, src string, sourceSet bool) (pipeline.Response, error) {
	body := map[string]any{"email": email}
	if sourceSet {
		body["source"] = src
	}

	resp, err := client.post(ctx, "/pipeline", body)
	if err != nil {
		return pipeline.Response{}, err
	}
	defer resp.Body.Close()

	var out pipeline.Response
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return pipeline.Response{}, decodeJSON(resp, &out)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pipeline.Response{}, fmt.Errorf("decoding report: %w", err)
	}
	out.RunID = resp.Header.Get("X-Run-ID")
	if resp.StatusCode == http.StatusBadRequest {
		return out, fmt.Errorf("request rejected: %s", strings.Join(out.Errors, "; "))
	}
	return out, nil
}

func runLocal(ctx context.Context, email, src string, sourceSet bool) (pipeline.Response, error) {
	cfg, err := config.Load()
	if err != nil {
		return pipeline.Response{}, err
	}
	a, err := newApp(ctx, cfg, newLogger(cfg))
	if err != nil {
		return pipeline.Response{}, err
	}
	defer a.Close()

	req := pipeline.Request{Email: email, Source: pipeline.DefaultSource}
	if sourceSet {
		req.Source = src
	}
	resp, err := a.pipeline.Run(ctx, req)
	if err != nil {
		return resp, fmt.Errorf("request rejected: %w", err)
	}
	return resp, nil
}

func printReport(resp pipeline.Response) {
	for _, item := range resp.Items {
		stored := styled(successStyle, "stored")
		if !item.Stored {
			stored = styled(errorStyle, "not stored")
		}
		fmt.Printf("%s  %-12s  %s\n    %s\n",
			styled(labelStyle, item.Original),
			styled(sentimentStyle(item.Sentiment), item.Sentiment),
			stored,
			item.Analysis,
		)
	}

	for _, e := range resp.Errors {
		printWarning("%s", e)
	}
	if resp.NotificationSent {
		printSuccess("Processed %d items, notification sent", len(resp.Items))
	} else {
		printError("Processed %d items, notification not sent", len(resp.Items))
	}
	if resp.RunID != "" {
		printStatus("Run", "%s", resp.RunID)
	}
	printStatus("Processed at", "%s", resp.ProcessedAt)
}

// --- results ---

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Browse stored results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		results, total, err := listResults(cmd.Context(), client, limit, offset)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for _, r := range results {
			fmt.Printf("%s  %s  %s  %s\n",
				styled(stepStyle, fmt.Sprintf("%6d", r.ID)),
				r.Timestamp,
				styled(sentimentStyle(r.Sentiment), fmt.Sprintf("%-11s", r.Sentiment)),
				truncate(r.Analysis, 80),
			)
		}
		if total >= 0 {
			fmt.Println(styled(mutedStyle, fmt.Sprintf("showing %d of %d", len(results), total)))
		}
		return nil
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid result id %q", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/results/%d", id))
		if err != nil {
			return err
		}
		var result storage.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		return printResult(result)
	},
}

func init() {
	resultsListCmd.Flags().Int("limit", 20, "maximum number of results to show")
	resultsListCmd.Flags().Int("offset", 0, "number of results to skip")
	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
}

// listResults fetches one page of results. total is -1 when the server did
// not report a count.
func listResults(ctx context.Context, client *apiClient, limit, offset int) ([]storage.Result, int, error) {
	resp, err := client.get(ctx, fmt.Sprintf("/results?limit=%d&offset=%d", limit, offset))
	if err != nil {
		return nil, 0, err
	}

	total := -1
	if v := resp.Header.Get(api.TotalCountHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			total = n
		}
	}

	var results []storage.Result
	if err := decodeJSON(resp, &results); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func printResult(r storage.Result) error {
	out := map[string]any{
		"id":        r.ID,
		"source":    r.Source,
		"analysis":  r.Analysis,
		"sentiment": r.Sentiment,
		"timestamp": r.Timestamp,
		"raw_data":  r.RawData,
	}
	if rec, err := source.Decode(r.RawData); err == nil {
		out["raw_data"] = rec
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and storage status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			// Still show partial status even if config fails.
			printError("config error: %v", err)
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := checkHealth(cmd.Context(), client); err != nil {
			printStatus("Server", "stopped (%s)", client.baseURL)
		} else {
			printStatus("Server", "running at %s", client.baseURL)
			if _, total, err := listResults(cmd.Context(), client, 1, 0); err == nil && total >= 0 {
				printStatus("Stored results", "%d", total)
			}
		}

		printStatus("Source", "%s", cfg.Source.URL)
		printStatus("Storage", "%s", storageLabel(cfg.Storage))
		printStatus("Notifier", "%s", cfg.Notify.Kind)
		return nil
	},
}

func checkHealth(ctx context.Context, client *apiClient) error {
	resp, err := client.get(ctx, "/health")
	if err != nil {
		return err
	}
	var body map[string]string
	if err := decodeJSON(resp, &body); err != nil {
		return err
	}
	if body["status"] != "ok" {
		return errors.New("unhealthy: " + body["status"])
	}
	return nil
}

func storageLabel(s config.StorageConfig) string {
	if s.Driver == storage.DriverPostgres {
		return "postgres"
	}
	return fmt.Sprintf("sqlite (%s)", s.DataDir)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printStatus("File", "%s", config.FilePath())
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", styled(labelStyle, k.Key), k.Value, styled(mutedStyle, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
