package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/model"
)

// isolate points HOME at a temp dir and clears credentials that would switch backends on
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"BRAVE_API_KEY", "SERPAPI_API_KEY", "BING_API_KEY", "TAVILY_API_KEY",
		"SMTP_HOST", "IMAP_HOST", "EMAIL_TO", "EMAIL_FROM",
	} {
		t.Setenv(name, "")
	}
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolate(t)
	v := viper.New()
	configureViper(v, "")

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.MaxResultsPerQuery)
	assert.Equal(t, 30, cfg.Search.MaxQueries)
	assert.Equal(t, "broad", cfg.Search.Strategy)
	assert.Equal(t, 24*time.Hour, cfg.Schedule.DiscoveryInterval)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.ReplyInterval)
	assert.Equal(t, filepath.Join(home, ".grantscout", "results.db"), cfg.Store.Path)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GRANTSCOUT_SEARCH_MAX_QUERIES", "12")
	t.Setenv("GRANTSCOUT_SEARCH_PROVIDERS", "brave,mock")
	t.Setenv("GRANTSCOUT_SCHEDULE_REPLY_INTERVAL", "5m")
	t.Setenv("GRANTSCOUT_SCHEDULE_DISCOVERY_CRON", "0 9 * * 1")
	t.Setenv("BRAVE_API_KEY", "brave-key")
	t.Setenv("GRANTSCOUT_SEARCH_TAVILY_API_KEY", "own-key")
	t.Setenv("TAVILY_API_KEY", "fallback-key")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	v := viper.New()
	configureViper(v, "")
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Search.MaxQueries)
	assert.Equal(t, []string{"brave", "mock"}, cfg.Search.Providers)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.ReplyInterval)
	assert.Equal(t, "0 9 * * 1", cfg.Schedule.DiscoveryCron)
	assert.Equal(t, "brave-key", cfg.Search.BraveAPIKey)
	assert.Equal(t, "own-key", cfg.Search.TavilyAPIKey)
	assert.Equal(t, "smtp.example.org", cfg.Email.SMTPHost)
	assert.Equal(t, "gemini-key", cfg.Search.GeminiAPIKey)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey, "llm key falls back to the provider's variable")
}

func TestLoadConfig_File(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  strategy: outreach
digest:
  min_score: 0.7
store:
  path: ~/data/grants.db
`), 0o600))
	t.Setenv("GRANTSCOUT_DIGEST_MIN_SCORE", "0.9")

	v := viper.New()
	configureViper(v, path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "outreach", cfg.Search.Strategy)
	assert.Equal(t, 0.9, cfg.Digest.MinScore, "env wins over file")
	assert.Equal(t, filepath.Join(home, "data", "grants.db"), cfg.Store.Path)
	assert.Equal(t, 30, cfg.Search.MaxQueries, "unset keys keep defaults")
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.Email.SMTPPass = "hunter2"

	out := redact(cfg)
	assert.Equal(t, "****", out.LLM.APIKey)
	assert.Equal(t, "****", out.Email.SMTPPass)
	assert.Empty(t, out.Email.IMAPPass)
	assert.Equal(t, "secret", cfg.LLM.APIKey, "original untouched")
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		logger, err := newLogger(true, format)
		require.NoError(t, err, format)
		_ = logger.Sync()
	}
	_, err := newLogger(false, "xml")
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_OfflineFlow(t *testing.T) {
	home := isolate(t)
	t.Setenv("GRANTSCOUT_LLM_PROVIDER", "none")
	t.Setenv("GRANTSCOUT_SEARCH_PROVIDERS", "mock")
	t.Setenv("GRANTSCOUT_CACHE_ENABLED", "false")

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "grantscout v"+Version)

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+filepath.Join(home, ".grantscout", "config.yaml"))
	assert.FileExists(t, filepath.Join(home, ".grantscout", "projects.yaml"))

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Exists, left unchanged")

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: broad")

	out, err = execute(t, "init-db")
	require.NoError(t, err)
	assert.Contains(t, out, "results.db")

	out, err = execute(t, "discover", "--project-id", "iron-lotus", "--depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "FILM FUNDING DIGEST")

	out, err = execute(t, "report", "--project-id", "iron-lotus", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "[RID:")

	jsonPath := filepath.Join(home, "report.json")
	_, err = execute(t, "report", "--project-id", "iron-lotus", "--output", jsonPath)
	require.NoError(t, err)
	assert.FileExists(t, jsonPath)
}

func TestCommands_MissingCatalog(t *testing.T) {
	isolate(t)
	t.Setenv("GRANTSCOUT_LLM_PROVIDER", "none")

	_, err := execute(t, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config init")
}
