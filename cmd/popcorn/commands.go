package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/popcorn/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <request...>",
	Short: "Ask for movies or shows in plain language",
	Long: `Ask for movies or shows in plain language.

Examples:
  popcorn ask top 5 90s sci-fi movies with Keanu Reeves
  popcorn ask --session 3f2a... only the ones rated above 7`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.ask(cmd.Context(), sessionID, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(resp)
		}
		fmt.Print(formatResponse(resp))
		fmt.Println(colorize(dimStyle, "session "+resp.SessionID))
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "", "continue an existing session")
	askCmd.Flags().Bool("json", false, "print the raw response")
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		id, err := client.createSession(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's current filter and turns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		snap, err := client.getSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printStatus("Session", "%s", snap.ID)
		printStatus("Created", "%s", snap.CreatedAt.Format("2006-01-02 15:04:05"))
		if snap.Filter != nil {
			printStatus("Filter", "%s", snap.Filter.Summary)
		} else {
			printStatus("Filter", "(none yet)")
		}
		for i, turn := range snap.Turns {
			fmt.Printf("%2d. %s\n    %s\n", i+1, turn.Utterance, colorize(dimStyle, turn.Filter.Summary))
		}
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Forget a session's accumulated filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.resetSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Session %s reset", args[0])
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.deleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Session %s deleted", args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past requests",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		page, err := client.listInteractions(cmd.Context(), sessionID, limit, 0)
		if err != nil {
			return err
		}

		if len(page.Interactions) == 0 {
			fmt.Println("No requests found.")
			return nil
		}

		for _, ix := range page.Interactions {
			id := ix.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%s  %s  %-8s %3d  %s\n",
				colorize(stepStyle, id),
				ix.CreatedAt.Local().Format("2006-01-02 15:04"),
				ix.Status,
				ix.ResultCount,
				truncate(ix.Utterance, 80),
			)
		}
		if page.Total > len(page.Interactions) {
			fmt.Println(colorize(dimStyle, fmt.Sprintf("showing %d of %d", len(page.Interactions), page.Total)))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single request with its resolved filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		raw, err := client.getInteraction(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(raw)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a request from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.deleteInteraction(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Deleted %s", args[0])
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of requests to list")
	historyListCmd.Flags().String("session", "", "only show requests from this session")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
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

		fmt.Println(colorize(dimStyle, "# "+config.ConfigFilePath()))
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(boldStyle, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. Secrets (API keys, the API token) are stored in " +
		"the secrets file instead of config.toml.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a value from config.toml so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
