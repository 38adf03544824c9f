package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/grantscout/internal/catalog"
	"github.com/ppiankov/grantscout/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Grantscout configuration",
	Long: `Manage Grantscout configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (GRANTSCOUT_*, then GEMINI_API_KEY, BRAVE_API_KEY, SMTP_HOST, ...)
3. Config file (~/.grantscout/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after merging defaults, config file and environment. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", file)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults)\n\n")
		}
		return writeConfig(cmd.OutOrStdout(), redact(cfg))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and an example project catalog",
	Long: `Create ~/.grantscout/config.yaml with every option at its default and
~/.grantscout/projects.yaml with an example project. Existing files are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := model.HomeDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		out := cmd.OutOrStdout()

		configPath := filepath.Join(dir, "config.yaml")
		created, err := createFile(configPath, func(w io.Writer) error {
			if _, err := fmt.Fprint(w, configHeader); err != nil {
				return err
			}
			return writeConfig(w, model.DefaultConfig())
		})
		if err != nil {
			return err
		}
		report(out, configPath, created)

		catalogPath := filepath.Join(dir, "projects.yaml")
		created, err = createFile(catalogPath, func(w io.Writer) error {
			_, err := io.WriteString(w, catalog.Example)
			return err
		})
		if err != nil {
			return err
		}
		report(out, catalogPath, created)

		fmt.Fprintf(out, "\nTo view the configuration:\n  grantscout config show\n")
		return nil
	},
}

const configHeader = `# Grantscout configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (GRANTSCOUT_*, e.g. GRANTSCOUT_SEARCH_STRATEGY)
#   3. This config file
#   4. Built-in defaults
#
# Keep secrets out of this file:
#   export GEMINI_API_KEY=...
#   export BRAVE_API_KEY=...
#   export SMTP_PASS=... IMAP_PASS=...

`

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func writeConfig(w io.Writer, cfg *model.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// createFile writes path through fill unless it already exists
func createFile(path string, fill func(io.Writer) error) (created bool, err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	if err := fill(f); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func report(w io.Writer, path string, created bool) {
	if created {
		fmt.Fprintf(w, "Created %s\n", path)
		return
	}
	fmt.Fprintf(w, "Exists, left unchanged: %s\n", path)
}

// redact returns a copy of cfg with secrets masked
func redact(cfg *model.Config) *model.Config {
	out := *cfg
	for _, s := range []*string{
		&out.LLM.APIKey,
		&out.Search.BraveAPIKey, &out.Search.SerpAPIKey, &out.Search.BingAPIKey,
		&out.Search.TavilyAPIKey, &out.Search.GeminiAPIKey,
		&out.Email.SMTPPass, &out.Email.IMAPPass,
	} {
		if *s != "" {
			*s = "****"
		}
	}
	return &out
}
