package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON     string
	outMD       string
	question    string
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	noCache     bool
	noFooter    bool
	httpProxy   string
	httpsProxy  string
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <location>",
	Short: "Reconcile one location across all configured weather sources",
	Long: `Report queries every configured weather provider for a location and:
- Normalizes each answer into a common observation schema
- Weighs observations by source reliability
- Builds per-metric consensus values with agreement scores
- Classifies extreme values and inconsistencies into severity alerts
- Produces a transparent, explainable report

Example:
  stratus report "Oslo"
  stratus report "Oslo" --json report.json --md report.md
  stratus report "Oslo" --question "Do I need an umbrella?" --llm openai`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Output flags
	reportCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	reportCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	// HTTP flags
	reportCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall report timeout")
	reportCmd.Flags().StringVar(&userAgent, "ua", "Stratus/0.1 (+https://github.com/avetisov/stratus)", "HTTP User-Agent")
	reportCmd.Flags().Int64Var(&maxBytes, "max-bytes", 1_000_000, "max response bytes to read per provider")
	reportCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetches)")
	reportCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	reportCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	reportCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	reportCmd.Flags().StringVar(&question, "question", "", "optional question for the narrative to answer")
	reportCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM narrative generation")
	reportCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	reportCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runReport(cmd *cobra.Command, args []string) error {
	location := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Location: %s\n", location)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Querying %d providers...\n", len(cfg.Providers))
	}

	report, err := p.Report(ctx, location, question)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d sources succeeded, %d failed\n", report.Quality.SourcesSucceeded, report.Quality.SourcesFailed)
		fmt.Fprintf(os.Stderr, "✓ Data quality: %.2f\n", report.Quality.Score)
		if report.Narrative != nil && report.Narrative.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated narrative using %s/%s\n", report.Narrative.Provider, report.Narrative.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}

// buildConfig assembles configuration from defaults, environment, and flags,
// then validates it.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	applyProviderKeys(cfg)

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		// Get API key from environment
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			baseURL := os.Getenv("OLLAMA_BASE_URL")
			if baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyProviderKeys fills missing provider API keys from the environment,
// e.g. OPENWEATHERMAP_API_KEY for the openweathermap provider.
func applyProviderKeys(cfg *model.Config) {
	for i := range cfg.Providers {
		if cfg.Providers[i].APIKey != "" {
			continue
		}
		envName := strings.ToUpper(cfg.Providers[i].Name) + "_API_KEY"
		if key := os.Getenv(envName); key != "" {
			cfg.Providers[i].APIKey = key
		}
	}
}
