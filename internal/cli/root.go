package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/grantscout/internal/catalog"
	"github.com/ppiankov/grantscout/internal/llm"
	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/pipeline"
)

// Version is overridden at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "0.1.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grantscout",
	Short: "Grantscout - funding discovery for documentary projects",
	Long: `Grantscout searches the web for grants, funds and partners that fit
each documentary project in the catalog, scores what it finds, keeps it in a
local database and mails a digest.

Replies to the digest drive follow-up work:
  deeper <id>    search further around one result
  details <id>   show the stored record
  draft <id>     draft an application note
  pivot <id>     suggest alternative framings`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, cancelling on SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "grantscout v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.grantscout/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log encoding (json, console)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	configureViper(viper.GetViper(), cfgFile)

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// credentialEnv lists conventional variables honored after GRANTSCOUT_* for secret keys
var credentialEnv = map[string][]string{
	"search.brave_api_key":   {"BRAVE_API_KEY"},
	"search.serpapi_api_key": {"SERPAPI_API_KEY"},
	"search.bing_api_key":    {"BING_API_KEY"},
	"search.tavily_api_key":  {"TAVILY_API_KEY"},
	"search.gemini_api_key":  {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"llm.base_url":           {"OLLAMA_BASE_URL"},
	"email.smtp_host":        {"SMTP_HOST"},
	"email.smtp_port":        {"SMTP_PORT"},
	"email.smtp_user":        {"SMTP_USER"},
	"email.smtp_pass":        {"SMTP_PASS"},
	"email.imap_host":        {"IMAP_HOST"},
	"email.imap_port":        {"IMAP_PORT"},
	"email.imap_user":        {"IMAP_USER"},
	"email.imap_pass":        {"IMAP_PASS"},
	"email.from":             {"EMAIL_FROM"},
	"email.to":               {"EMAIL_TO"},
}

// configureViper registers defaults, the config file location and env bindings on v
func configureViper(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(model.HomeDir())
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	for key, value := range defaultSettings() {
		v.SetDefault(key, value)
	}

	// GRANTSCOUT_SEARCH_MAX_QUERIES -> search.max_queries
	v.SetEnvPrefix("GRANTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range credentialEnv {
		own := "GRANTSCOUT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, own}, names...)...)
	}
	// keys omitted from the default YAML when empty
	for _, key := range []string{
		"llm.api_key", "schedule.discovery_cron", "schedule.reply_cron", "schedule.metrics_addr",
		"http.http_proxy", "http.https_proxy", "http.no_proxy",
	} {
		_ = v.BindEnv(key)
	}
}

// defaultSettings flattens model.DefaultConfig into dotted viper keys so
// every key is known to AutomaticEnv.
func defaultSettings() map[string]any {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil
	}
	out := make(map[string]any)
	flatten("", tree, out)
	return out
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

// loadConfig resolves the effective configuration from v
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		if env := llm.APIKeyEnv(cfg.LLM.Provider); env != "" {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}
	cfg.Catalog.Path = expandHome(cfg.Catalog.Path)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	return cfg, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// newLogger builds the process logger from the --verbose and --log-format flags
func newLogger(debug bool, format string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	switch format {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q (supported: json, console)", format)
	}
	return config.Build()
}

// app is everything a command needs, built once per invocation
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
}

// setup loads config, catalog and logger and wires the pipeline
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(verbose, logFormat)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'grantscout config init' to create an example catalog)", err)
	}

	p, err := pipeline.NewPipeline(cmd.Context(), cfg, cat, logger, metrics.NewMetrics())
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, pipeline: p}, nil
}

func (a *app) close() {
	if err := a.pipeline.Close(); err != nil {
		a.logger.Warn("Failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
