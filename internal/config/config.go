package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insightloom/internal/ai"
	"github.com/KaramelBytes/insightloom/internal/anomaly"
	"github.com/KaramelBytes/insightloom/internal/report"
	"github.com/KaramelBytes/insightloom/internal/table"
)

// EnvPrefix is prepended to every environment override, e.g. INSIGHT_API_KEY.
const EnvPrefix = "INSIGHT"

// Global configuration structure.
type Global struct {
	// Narrative generation
	APIKey              string  `mapstructure:"api_key" yaml:"api_key"`
	Provider            string  `mapstructure:"provider" yaml:"provider"`
	Model               string  `mapstructure:"model" yaml:"model"`
	BaseURL             string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	NarrativeTimeoutSec int     `mapstructure:"narrative_timeout_sec" yaml:"narrative_timeout_sec"`

	// Anomaly detection
	Contamination float64 `mapstructure:"contamination" yaml:"contamination"`
	Estimators    int     `mapstructure:"estimators" yaml:"estimators"`
	MaxSamples    int     `mapstructure:"max_samples" yaml:"max_samples"`
	Seed          int64   `mapstructure:"seed" yaml:"seed"`

	// Loading
	InferRows int `mapstructure:"infer_rows" yaml:"infer_rows"`

	// Output
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"`
	RunsDir   string   `mapstructure:"runs_dir" yaml:"runs_dir,omitempty"`
	Formats   []string `mapstructure:"formats" yaml:"formats"`
	Workers   int      `mapstructure:"workers" yaml:"workers"`

	// Watch mode
	WatchDir string `mapstructure:"watch_dir" yaml:"watch_dir"`
	SettleMs int    `mapstructure:"settle_ms" yaml:"settle_ms"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`
}

// Dir returns ~/.insightloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".insightloom"), nil
}

// Save writes c as YAML to cfgFile, or to ~/.insightloom/config.yaml when empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("provider", ai.ProviderOpenRouter)
	v.SetDefault("model", "google/gemini-1.5-flash")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("narrative_timeout_sec", 30)

	def := anomaly.DefaultConfig()
	v.SetDefault("contamination", def.Contamination)
	v.SetDefault("estimators", def.Estimators)
	v.SetDefault("max_samples", def.MaxSamples)
	v.SetDefault("seed", int64(def.Seed))

	v.SetDefault("infer_rows", table.DefaultInferRows)

	v.SetDefault("output_dir", "reports")
	v.SetDefault("runs_dir", "")
	v.SetDefault("formats", []string{report.FormatMarkdown, report.FormatHTML, report.FormatJSON})
	v.SetDefault("workers", 4)

	v.SetDefault("watch_dir", "input")
	v.SetDefault("settle_ms", 1000)

	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)

	v.SetDefault("ollama_host", ai.DefaultOllamaHost)
}

// Load reads configuration from defaults, the config file and the environment.
// Precedence: env > config file > defaults. A missing config file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgFile != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.RunsDir == "" {
		c.RunsDir = filepath.Join(c.OutputDir, ".runs")
	}
	return &c, nil
}

// Validate checks every value once; components trust the result afterwards.
func (c *Global) Validate() error {
	var errs []error
	if err := c.AnomalyConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Seed < 0 {
		errs = append(errs, fmt.Errorf("seed must not be negative, got %d", c.Seed))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.NarrativeTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("narrative_timeout_sec must be positive, got %d", c.NarrativeTimeoutSec))
	}
	if c.InferRows < table.DefaultInferRows {
		errs = append(errs, fmt.Errorf("infer_rows must be at least %d, got %d", table.DefaultInferRows, c.InferRows))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.SettleMs < 0 {
		errs = append(errs, fmt.Errorf("settle_ms must not be negative, got %d", c.SettleMs))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if formats, err := report.ParseFormats(c.Formats); err != nil {
		errs = append(errs, err)
	} else {
		c.Formats = formats
	}
	if _, err := ai.NewRuntime(c.Provider, ai.RuntimeConfig{}); err != nil {
		errs = append(errs, err)
	} else if c.Model == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	return errors.Join(errs...)
}

// Warnings lists non-fatal problems, such as a missing API key.
func (c *Global) Warnings() []string {
	var out []string
	if c.Provider == ai.ProviderOpenRouter && c.APIKey == "" {
		out = append(out, fmt.Sprintf("%s_API_KEY is not set; reports will use the templated narrative", EnvPrefix))
	}
	return out
}

// AnomalyConfig is the scorer configuration.
func (c *Global) AnomalyConfig() anomaly.Config {
	return anomaly.Config{
		Contamination: c.Contamination,
		Estimators:    c.Estimators,
		MaxSamples:    c.MaxSamples,
		Seed:          uint64(c.Seed),
	}
}

// RuntimeConfig is the chat runtime configuration.
func (c *Global) RuntimeConfig() ai.RuntimeConfig {
	return ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		Retry: ai.Retry{
			Attempts:  c.RetryMaxAttempts,
			BaseDelay: time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
			MaxDelay:  time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		},
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Host:    c.OllamaHost,
	}
}

// NarrativeEnabled reports whether a narrative runtime can be built.
func (c *Global) NarrativeEnabled() bool {
	return c.Provider != ai.ProviderOpenRouter || c.APIKey != ""
}

// NarrativeTimeout bounds one narrative call.
func (c *Global) NarrativeTimeout() time.Duration {
	return time.Duration(c.NarrativeTimeoutSec) * time.Second
}

// Settle is how long the watcher waits before handing over a new file.
func (c *Global) Settle() time.Duration { return time.Duration(c.SettleMs) * time.Millisecond }

// LoadOptions is the table loader configuration.
func (c *Global) LoadOptions() table.Options {
	opt := table.DefaultOptions()
	opt.InferRows = c.InferRows
	return opt
}
