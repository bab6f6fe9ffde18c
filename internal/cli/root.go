package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/commentpulse/internal/llm"
	"github.com/ppiankov/commentpulse/internal/logging"
	"github.com/ppiankov/commentpulse/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

const envPrefix = "COMMENTPULSE"

var (
	cfgFile  string
	envFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "commentpulse",
	Short: "CommentPulse - sentiment and toxicity analysis for YouTube comments",
	Long: `CommentPulse scores batches of YouTube comments for sentiment and toxicity.

Comments are sent to a generative backend (Gemini by default) with retries
and backoff. When the backend is unavailable or keeps answering with
unusable output, a local analyzer scores the batch instead, so every
request ends in a result of the same shape.

Results include per-comment scores, sentiment and toxicity distributions,
toxicity category counts, topics and keywords.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := viper.GetString("logging.level")
		if verbose {
			level = "debug"
		}
		lvl, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		logging.Init(lvl, os.Stderr)
		return nil
	},
}

// Execute runs the root command. Cancelling ctx stops running analyses
// and shuts down the server.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of CommentPulse.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "commentpulse %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.commentpulse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the dotenv file, config file and ENV variables
func initConfig() {
	if err := loadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if used := viper.ConfigFileUsed(); used != "" && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
	}
}

// loadEnvFile loads KEY=value pairs without overriding variables that are
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// setupViper registers defaults for every config key, the config file and
// the COMMENTPULSE_* environment. A missing default config file is fine;
// an explicit one must exist.
func setupViper(v *viper.Viper, file string) error {
	if err := registerDefaults(v); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".commentpulse"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// registerDefaults makes every key of model.DefaultConfig known to viper, so
// that AutomaticEnv can override keys absent from the config file.
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for key, val := range node {
			if sub, ok := val.(map[string]any); ok {
				walk(prefix+key+".", sub)
				continue
			}
			v.SetDefault(prefix+key, val)
		}
	}
	walk("", tree)

	// Keys omitted from the YAML defaults because they are empty.
	for _, key := range []string{
		"generative.api_key", "generative.base_url",
		"generative.http_proxy", "generative.https_proxy", "generative.no_proxy",
		"local.model_path", "local.model_name", "local.toxicity_model_path",
		"cache.redis_addr", "cache.redis_password",
	} {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
	return nil
}

// loadConfig builds the effective configuration from v.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills the API key and Ollama URL from the conventional
// provider variables when the config does not set them.
func applyProviderEnv(cfg *model.Config) {
	if cfg.Generative.APIKey == "" {
		if env := llm.APIKeyEnv(cfg.Generative.Provider); env != "" {
			cfg.Generative.APIKey = os.Getenv(env)
		}
	}
	if strings.EqualFold(cfg.Generative.Provider, "ollama") && cfg.Generative.BaseURL == "" {
		cfg.Generative.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}
