package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"habrsum/internal/analysis"
	"habrsum/internal/api"
	"habrsum/internal/config"
	"habrsum/internal/render"
	"habrsum/internal/session"
	"habrsum/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "habrsum",
	Short:   "Habr article summarization client",
	Long:    "habrsum submits Habr article URLs to the summarizer backend, polls for summaries and comment sentiment, and keeps an authenticated analysis history.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recentCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("habrsum", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/habrsum/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your summarizer backend.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the analysis queue accepts new jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		available, err := mgr.CheckQueueStatus(cmd.Context())
		if err != nil {
			return err
		}
		if available {
			fmt.Println("Queue is available.")
		} else {
			fmt.Println("Queue is full, try again later.")
		}
		return nil
	},
}

// --- auth commands ---

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		reader := bufio.NewReader(os.Stdin)
		password, err := promptLine(reader, "Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptLine(reader, "Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		if err := mgr.Register(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Println("Account created. Log in with 'habrsum login'.")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		password, err := promptLine(bufio.NewReader(os.Stdin), "Password: ")
		if err != nil {
			return err
		}

		if err := mgr.Login(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s.\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		mgr.Logout()
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		if !mgr.IsAuthenticated() {
			fmt.Println("Not logged in.")
			return nil
		}
		fmt.Println(mgr.Username())
		return nil
	},
}

// --- analyze command ---

var analyzeAnon bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "Submit a Habr article for analysis and wait for results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		controller := analysis.New(mgr, mgr, analysis.Config{
			QueueRetryInterval: cfg.QueueRetryInterval(),
			PollInterval:       cfg.PollInterval(),
			MaxPollAttempts:    cfg.Analysis.MaxPollAttempts,
		})
		controller.OnStatus = func(u analysis.Update) {
			switch u.Stage {
			case analysis.StageQueueFull:
				fmt.Printf("Queue is full, retrying in %s...\n", cfg.QueueRetryInterval())
			case analysis.StageSubmitted:
				fmt.Println("Submitted, waiting for results...")
			}
		}

		authenticated := mgr.IsAuthenticated() && !analyzeAnon
		job, err := controller.Analyze(ctx, args[0], authenticated)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("no URL given")
		}

		fmt.Println()
		fmt.Print(render.Job(job))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeAnon, "anon", false, "Analyze without attaching the session (no history entry)")
}

// --- history commands ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the analysis history",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		if !mgr.IsAuthenticated() {
			return fmt.Errorf("not logged in; history requires an account")
		}

		if err := mgr.RefreshHistory(cmd.Context()); err != nil {
			return err
		}
		fmt.Print(render.HistoryTable(mgr.History()))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid history ID: %s", args[0])
		}

		if err := mgr.DeleteHistoryItem(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted history entry %d.\n", id)
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyDeleteCmd)
}

// --- recent command ---

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently analyzed public articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, st, err := newManager()
		if err != nil {
			return err
		}
		defer st.Close()

		articles, err := mgr.LatestArticles(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(render.RecentTable(articles))
		return nil
	},
}

// --- helpers ---

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "habrsum.db"))
}

func newManager() (*session.Manager, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	client := api.New(cfg.API.BaseURL, cfg.API.AuthURL, cfg.RequestTimeout())
	mgr := session.New(client, st, cfg.History.PageSize)
	if err := mgr.Load(); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}
	return mgr, st, nil
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
