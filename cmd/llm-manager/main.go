package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drimal/llm-manager/pkg/adapter"
	"github.com/drimal/llm-manager/pkg/config"
	"github.com/drimal/llm-manager/pkg/logging"
	"github.com/drimal/llm-manager/pkg/reflection"
)

const defaultQuery = "why is sky blue?"

var (
	configFile string
	modelsFile string
	logLevel   string
	logFormat  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "llm-manager",
		Short: "Query LLM providers and refine answers through reflection",
		Long: `llm-manager sends prompts to OpenAI, Anthropic, Gemini, Bedrock, Ollama
or DeepSeek through one interface, and can refine an answer over several
rounds of self-reflection.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default ~/.llm-manager/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modelsFile, "models", "", "path to models.yaml registry")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(reflectCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(strategiesCmd())
	rootCmd.AddCommand(modelsCmd())

	return rootCmd
}

// generationFlags are shared by reflect and ask.
type generationFlags struct {
	provider    string
	model       string
	modelID     string
	temperature float64
	maxTokens   int
	topP        float64
	stop        []string
	timeout     time.Duration
}

func (g *generationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&g.provider, "provider", "p", "", "provider to use (default from config, else ollama)")
	cmd.Flags().StringVarP(&g.model, "model", "m", "", "model name (default per provider)")
	cmd.Flags().StringVar(&g.modelID, "model-id", "", "model ID from the models.yaml registry")
	cmd.Flags().Float64Var(&g.temperature, "temperature", adapter.DefaultTemperature, "sampling temperature")
	cmd.Flags().IntVar(&g.maxTokens, "max-tokens", adapter.DefaultMaxTokens, "maximum tokens to generate")
	cmd.Flags().Float64Var(&g.topP, "top-p", adapter.DefaultTopP, "nucleus sampling probability")
	cmd.Flags().StringSliceVar(&g.stop, "stop", nil, "stop sequences")
	cmd.Flags().DurationVar(&g.timeout, "timeout", 0, "overall deadline, e.g. 2m (0 for none)")
}

// options builds generation options. Registry params apply first and
// explicitly set flags override them.
func (g *generationFlags) options(cmd *cobra.Command, base adapter.Options) (adapter.Options, error) {
	override := adapter.Options{Model: g.model, Stop: g.stop}
	if cmd.Flags().Changed("temperature") {
		override.Temperature = adapter.Float(g.temperature)
	}
	if cmd.Flags().Changed("max-tokens") {
		override.MaxTokens = adapter.Int(g.maxTokens)
	}
	if cmd.Flags().Changed("top-p") {
		override.TopP = adapter.Float(g.topP)
	}
	opts := base.Merge(override)
	if err := opts.Validate(); err != nil {
		return adapter.Options{}, err
	}
	return opts, nil
}

func (g *generationFlags) deadline() (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(context.Background(), g.timeout)
	}
	return context.WithCancel(context.Background())
}

// session bundles what a command needs to generate.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	adapter adapter.Adapter
	opts    adapter.Options
}

func (g *generationFlags) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(logging.Config{Level: logLevel, Format: logFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}

	provider := g.provider
	var base adapter.Options
	var resolved *config.ResolvedModel
	if g.modelID != "" {
		registry, err := loadRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to load model registry: %w", err)
		}
		resolved, err = registry.Configure(g.modelID)
		if err != nil {
			return nil, err
		}
		base = resolved.Options
		if provider == "" {
			provider = resolved.Provider
		}
	}
	if provider == "" {
		provider = cfg.DefaultProvider
	}

	opts, err := g.options(cmd, base)
	if err != nil {
		return nil, err
	}

	a, err := createAdapter(ctx, cfg, provider, resolved, logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, adapter: a, opts: opts}, nil
}

func reflectCmd() *cobra.Command {
	var gen generationFlags
	var strategyFlag string
	var iterations int
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "reflect [query]",
		Short: "Answer a query, then refine it through rounds of reflection",
		Long: `Asks the model the query, then feeds the answer back through a reflection
strategy for --iterations rounds. Use "llm-manager strategies" to list them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := defaultQuery
			if len(args) == 1 {
				query = args[0]
			}
			if outputFlag != "json" && outputFlag != "text" {
				return fmt.Errorf("invalid --output %q (want json or text)", outputFlag)
			}

			ctx, cancel := gen.deadline()
			defer cancel()

			s, err := gen.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer logging.Sync(s.logger)

			if !cmd.Flags().Changed("strategy") {
				strategyFlag = s.cfg.Reflection.Strategy
			}
			if !cmd.Flags().Changed("iterations") && s.cfg.Reflection.Iterations != nil {
				iterations = *s.cfg.Reflection.Iterations
			}

			engine := reflection.NewEngine(s.adapter,
				reflection.WithLogger(s.logger),
				reflection.WithPricing(s.cfg.Pricing),
			)

			fmt.Fprintf(cmd.ErrOrStderr(), "Reflecting with %s (%s, %d iterations)...\n", s.adapter.Name(), strategyFlag, iterations)
			result, err := engine.Reflect(ctx, query, strategyFlag, iterations, s.opts)
			if err != nil {
				return err
			}

			if outputFlag == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeReflectionText(cmd.OutOrStdout(), result)
		},
	}

	gen.register(cmd)
	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", string(reflection.DefaultStrategy), "reflection strategy")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 3, "number of reflection rounds")
	cmd.Flags().StringVar(&outputFlag, "output", "text", "output format (text, json)")

	return cmd
}

func askCmd() *cobra.Command {
	var gen generationFlags
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a single prompt to a provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := defaultQuery
			if len(args) == 1 {
				prompt = args[0]
			}

			ctx, cancel := gen.deadline()
			defer cancel()

			s, err := gen.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer logging.Sync(s.logger)

			resp, err := s.adapter.Generate(ctx, prompt, s.opts)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			if jsonFlag {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n[%s/%s tokens: in=%d out=%d total=%d]\n",
				s.adapter.Name(), resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)
			return nil
		},
	}

	gen.register(cmd)
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full response as JSON")

	return cmd
}

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List reflection strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STRATEGY\tDESCRIPTION")
			for _, s := range reflection.Strategies() {
				fmt.Fprintf(w, "%s\t%s\n", s, s.Description())
			}
			return w.Flush()
		},
	}
}

func modelsCmd() *cobra.Command {
	var tagFlag string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List providers and registry models",
		Long: `Lists each provider with its suggested models and whether its credentials
are configured, followed by the models.yaml registry (filtered by --tag).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")
			for _, provider := range adapter.Providers() {
				status := "no key"
				if cfg.HasProvider(provider) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", provider, formatList(suggestedModels[provider]), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			registry, err := loadRegistry()
			if err != nil {
				return fmt.Errorf("failed to load model registry: %w", err)
			}
			ids := registry.List()
			if tagFlag != "" {
				ids = registry.ByTag(tagFlag)
			}
			if len(ids) == 0 {
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout())
			w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL ID\tPROVIDER\tMODEL\tTAGS")
			for _, id := range ids {
				entry, _ := registry.Get(id)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, entry.Provider, entry.ModelName, formatList(entry.Tags))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tagFlag, "tag", "", "only list registry models with this tag")

	return cmd
}

// suggestedModels mirrors each adapter's Models list without constructing
// clients that need credentials.
var suggestedModels = map[string][]string{
	"anthropic": {"claude-3-5-sonnet-20241022", "claude-sonnet-4-20250514"},
	"bedrock":   {"anthropic.claude-3-sonnet-20240229-v1:0", "anthropic.claude-3-haiku-20240307-v1:0"},
	"deepseek":  {"deepseek-chat", "deepseek-reasoner"},
	"gemini":    {"gemini-1.5-flash", "gemini-1.5-pro"},
	"lorem":     {"lorem-fast", "lorem-small"},
	"mock":      {"mock-1"},
	"ollama":    {"nemotron-mini", "llama3.2"},
	"openai":    {"gpt-4o-mini", "gpt-4o"},
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func loadRegistry() (*config.ModelRegistry, error) {
	if modelsFile != "" {
		return config.LoadModelRegistry(modelsFile)
	}
	return config.LoadModelRegistryWithFallback("models.yaml")
}

func createAdapter(ctx context.Context, cfg *config.Config, provider string, resolved *config.ResolvedModel, logger *zap.Logger) (adapter.Adapter, error) {
	settings := cfg.AdapterSettings(provider)
	if resolved != nil {
		settings = resolved.Apply(settings)
	}

	a, err := adapter.New(ctx, provider, settings)
	if err != nil {
		return nil, err
	}
	a = adapter.WithRateLimit(a, cfg.RateLimit.Calls, cfg.RateLimit.Period())
	return adapter.WithRetry(a, cfg.RetryPolicy(), logger), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReflectionText(w io.Writer, result *reflection.Result) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n", result.OriginalQuery)
	fmt.Fprintf(&sb, "Strategy: %s\n", result.StrategyUsed)
	for _, it := range result.Iterations {
		fmt.Fprintf(&sb, "\n--- Iteration %d ---\n%s\n", it.Iteration, it.Response)
	}
	fmt.Fprintf(&sb, "\n=== Final response ===\n%s\n", result.FinalResponse)
	fmt.Fprintf(&sb, "\nTokens: %d (in=%d out=%d)", result.TotalTokens, result.Usage.InputTokens, result.Usage.OutputTokens)
	if result.Cost != nil {
		fmt.Fprintf(&sb, "  Cost: %.6f %s", result.Cost.Amount, result.Cost.Currency)
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
