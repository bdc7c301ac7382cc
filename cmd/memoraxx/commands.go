package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/memoraxx/internal/api"
	"github.com/kalambet/memoraxx/internal/config"
	"github.com/kalambet/memoraxx/internal/dispatch"
	"github.com/kalambet/memoraxx/internal/ollama"
	"github.com/kalambet/memoraxx/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <prompt...>",
	Short: "Send one line through the dispatcher and print the reply",
	Long: `Send one line through the same dispatcher as the chat session.

The reply is recorded into conversation memory, so a later chat session or
ask call sees it.

Examples:
  memoraxx ask "What is the capital of France?"
  memoraxx ask clear`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := strings.Join(args, " ")
		if remote, _ := cmd.Flags().GetBool("remote"); remote {
			return askRemote(cmd, line)
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := a.dispatcher.Dispatch(cmd.Context(), line)
		return writeOutcome(cmd.OutOrStdout(), out)
	},
}

func init() {
	askCmd.Flags().Bool("remote", false, "send the line to a running `memoraxx serve` instead")
}

// askRemote posts line to the serve API so it shares that session's memory.
func askRemote(cmd *cobra.Command, line string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Every attempt at the request timeout, plus room for backoff.
	timeout := time.Duration(cfg.Request.MaxAttempts)*cfg.Request.Timeout + 30*time.Second
	resp, err := newAPIClient(cfg, timeout).dispatch(cmd.Context(), line)
	if err != nil {
		return err
	}
	return writeRemoteOutcome(cmd.OutOrStdout(), resp)
}

func writeRemoteOutcome(w io.Writer, resp api.DispatchResponse) error {
	if resp.Kind != dispatch.KindQuery.String() {
		fmt.Fprintln(w, resp.Message)
		return nil
	}
	fmt.Fprintln(w, resp.Response)
	if resp.Error != "" {
		return fmt.Errorf("completion failed after %d attempt(s)", resp.Attempts)
	}
	return nil
}

// writeOutcome prints the visible part of a dispatch outcome. A failed
// completion is printed and also returned as an error for the exit status.
func writeOutcome(w io.Writer, out dispatch.Outcome) error {
	if out.Kind != dispatch.KindQuery {
		fmt.Fprintln(w, out.Message)
		return nil
	}
	fmt.Fprintln(w, out.Result.Text)
	if out.Result.Failed() {
		return fmt.Errorf("completion failed after %d attempt(s)", out.Result.Attempts)
	}
	return nil
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the interaction archive",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		query, _ := cmd.Flags().GetString("query")

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		var items []storage.Interaction
		if query != "" {
			items, err = store.SearchInteractions(query, limit, 0)
		} else {
			items, err = store.ListInteractions(limit, 0)
		}
		if err != nil {
			return err
		}
		writeInteractionList(cmd.OutOrStdout(), items)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.GetInteraction(args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("interaction %s not found", args[0])
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole archive as JSON lines or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		if format != "jsonl" && format != "yaml" {
			return fmt.Errorf("unknown format %q (want jsonl or yaml)", format)
		}

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := exportInteractions(w, store, format)
		if err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d interactions to %s", n, output)
		}
		return nil
	},
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every archived interaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL archived interactions. Use --confirm to proceed.")
			return nil
		}

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		printStep("Deleting interactions...")
		n, err := store.DeleteAllInteractions()
		if err != nil {
			return err
		}
		printSuccess("Purged %d interactions", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	historyListCmd.Flags().StringP("query", "q", "", "only list interactions containing all of these words")
	historyExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	historyExportCmd.Flags().String("format", "jsonl", "output format: jsonl or yaml")
	historyPurgeCmd.Flags().Bool("confirm", false, "confirm archive purge")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyPurgeCmd)
}

// openArchive opens the archive named by the current config.
var openArchive = func() (*storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)
	if !cfg.Storage.Archive {
		return nil, errors.New("the interaction archive is disabled (storage.archive = false)")
	}
	return storage.Open(cfg.Storage.DataDir)
}

func writeInteractionList(w io.Writer, items []storage.Interaction) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No interactions found.")
		return
	}
	for _, it := range items {
		prompt := strings.ReplaceAll(it.Prompt, "\n", " ")
		if utf8.RuneCountInString(prompt) > 80 {
			prompt = string([]rune(prompt)[:80]) + "..."
		}
		status := ""
		if it.Status != storage.StatusCompleted {
			status = " " + styled(errorStyle, "["+it.Status+"]")
		}
		fmt.Fprintf(w, "%s  %s  %s%s\n",
			styled(stepStyle, it.ID),
			it.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			prompt,
			status,
		)
	}
}

// exportInteractions writes every archived interaction, oldest first, and
// returns how many were written.
func exportInteractions(w io.Writer, store *storage.Store, format string) (int, error) {
	total, err := store.CountInteractions()
	if err != nil {
		return 0, err
	}

	// ListInteractions pages newest first; collect and reverse.
	var all []storage.Interaction
	for offset := 0; offset < total; {
		page, err := store.ListInteractions(100, offset)
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		offset += len(page)
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(all); err != nil {
			return 0, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return 0, err
		}
	default:
		enc := json.NewEncoder(w)
		for _, it := range all {
			if err := enc.Encode(it); err != nil {
				return 0, fmt.Errorf("encoding interaction %s: %w", it.ID, err)
			}
		}
	}
	return len(all), nil
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

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n",
				styled(labelStyle, k.Key), k.Value, styled(mutedStyle, "($"+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- pull ---

var pullCmd = &cobra.Command{
	Use:   "pull [model]",
	Short: "Download the configured model (or the one named) into Ollama",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		model := cfg.Ollama.Model
		if len(args) == 1 {
			model = args[0]
		}

		client := ollama.New(cfg.Ollama.BaseURL)
		if !client.IsRunning(cmd.Context()) {
			return fmt.Errorf("%w at %s", ollama.ErrNotRunning, cfg.Ollama.BaseURL)
		}

		printStep("Pulling %s...", model)
		last := ""
		err = client.PullModel(cmd.Context(), model, func(p ollama.PullProgress) {
			line := p.Status
			if p.Total > 0 {
				line = fmt.Sprintf("%s %.0f%%", p.Status, float64(p.Completed)/float64(p.Total)*100)
			}
			if line != last {
				fmt.Fprintln(cmd.ErrOrStderr(), "  "+line)
				last = line
			}
		})
		if err != nil {
			return fmt.Errorf("pulling %s: %w", model, err)
		}
		printSuccess("Model %s is ready", model)
		return nil
	},
}
