// AlphaGraph — AI-powered financial news sentiment analysis.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alphagraph/alphagraph/api"
	"github.com/alphagraph/alphagraph/internal/analysis"
	"github.com/alphagraph/alphagraph/internal/config"
	"github.com/alphagraph/alphagraph/internal/dashboard"
	"github.com/alphagraph/alphagraph/internal/ingest"
	"github.com/alphagraph/alphagraph/internal/llm"
	"github.com/alphagraph/alphagraph/internal/store"
	"github.com/alphagraph/alphagraph/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alphagraph",
	Short: "AlphaGraph — AI-powered financial news sentiment analysis",
	Long: `AlphaGraph analyzes financial news with LLMs, tracks company
sentiment and market impact, and serves a live dashboard over an HTTP
and WebSocket API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(populateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
}

// newAnalyzer builds the analyzer from config. Without any configured
// LLM provider it falls back to keyword-based scoring.
func newAnalyzer() *analysis.Analyzer {
	router, err := llm.NewRouterFromConfig(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNoProviders) {
			fmt.Fprintln(os.Stderr, "⚠️  No LLM provider configured; using keyword-based analysis")
			return analysis.NewAnalyzer(nil)
		}
		fmt.Fprintf(os.Stderr, "⚠️  LLM setup failed (%v); using keyword-based analysis\n", err)
		return analysis.NewAnalyzer(nil)
	}
	return analysis.NewAnalyzer(router, analysis.WithChatOptions(llm.ChatOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}))
}

func openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("AlphaGraph %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		srv := api.NewServer(cfg, st, newAnalyzer())
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting AlphaGraph API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Dashboard Command ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the sentiment dashboard in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		populate, _ := cmd.Flags().GetBool("populate")

		client := dashboard.NewClient(cfg.Dashboard.BackendURL)
		ctrl := dashboard.NewController(client, dashboard.WithNewsLimit(cfg.Dashboard.NewsLimit))

		ctx := cmd.Context()
		if err := ctrl.LoadDashboardData(ctx); err != nil {
			return fmt.Errorf("dashboard refresh failed: %w", err)
		}

		if populate && ctrl.CanPopulate() {
			fmt.Println("📊 Empty dashboard, seeding demo data...")
			if err := ctrl.PopulateSampleData(ctx); err != nil {
				return fmt.Errorf("populate failed: %w", err)
			}
		}

		dashboard.RenderText(os.Stdout, ctrl.Snapshot())
		return nil
	},
}

func init() {
	dashboardCmd.Flags().Bool("populate", false, "seed demo data when the dashboard is empty")
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [headline]",
	Short: "Analyze a news article via the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		source, _ := cmd.Flags().GetString("source")
		url, _ := cmd.Flags().GetString("url")

		client := dashboard.NewClient(cfg.Dashboard.BackendURL)
		result, err := client.Analyze(cmd.Context(), models.DraftArticle{
			Headline: args[0],
			Content:  content,
			Source:   source,
			URL:      url,
		})
		if err != nil {
			return err
		}

		fmt.Printf("🔍 %s\n", result.Headline)
		fmt.Printf("   Sentiment: %s (%.2f)\n", result.SentimentLabel, result.SentimentScore)
		fmt.Printf("   Impact:    %d/10 [%s]\n", result.ImpactScore, dashboard.ImpactTier(result.ImpactScore))
		if len(result.MentionedCompanies) > 0 {
			fmt.Printf("   Companies: %s\n", strings.Join(result.MentionedCompanies, ", "))
		}
		for _, p := range dashboard.TopKeyPoints(result.KeyPoints) {
			fmt.Printf("   • %s\n", p)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("content", "", "article body (required)")
	analyzeCmd.Flags().String("source", "", "article source")
	analyzeCmd.Flags().String("url", "", "article URL")
	_ = analyzeCmd.MarkFlagRequired("content")
}

// --- Populate Command ---

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Seed the backend with sample analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := dashboard.NewClient(cfg.Dashboard.BackendURL)
		if err := client.PopulateDemo(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✅ Sample analyses populated")
		return nil
	},
}

// --- Ingest Command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch news feeds and analyze new articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		fetcher := ingest.NewFetcher(cfg.Ingest)
		pipeline := ingest.NewPipeline(fetcher, newAnalyzer(), st)

		fmt.Println("📰 Fetching news feeds...")
		stored, err := pipeline.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✅ Stored %d new analyses\n", stored)
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  AlphaGraph — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Store:         %s\n", cfg.Store.Path)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Dashboard URL: %s\n", cfg.Dashboard.BackendURL)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-20s %s\n", k.Name+":", status)
		}

		// Provider health
		if router, err := llm.NewRouterFromConfig(cfg); err == nil {
			fmt.Println()
			fmt.Println("  LLM Providers:")
			for name, pingErr := range router.HealthCheck(cmd.Context()) {
				state := "✅ reachable"
				if pingErr != nil {
					state = fmt.Sprintf("❌ %v", pingErr)
				}
				fmt.Printf("    %-20s %s\n", name+":", state)
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
