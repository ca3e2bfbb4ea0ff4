package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/insightloom/internal/config"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "View or set InsightLoom configuration",
	Annotations: map[string]string{skipValidation: "true"},
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show effective configuration",
	Annotations: map[string]string{skipValidation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		if cfg.BaseURL != "" {
			fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "narrative_timeout_sec: %d\n", cfg.NarrativeTimeoutSec)
		fmt.Fprintf(out, "contamination: %.3f\n", cfg.Contamination)
		fmt.Fprintf(out, "estimators: %d\n", cfg.Estimators)
		fmt.Fprintf(out, "max_samples: %d\n", cfg.MaxSamples)
		fmt.Fprintf(out, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(out, "infer_rows: %d\n", cfg.InferRows)
		fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "runs_dir: %s\n", cfg.RunsDir)
		fmt.Fprintf(out, "formats: %s\n", strings.Join(cfg.Formats, ","))
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "watch_dir: %s\n", cfg.WatchDir)
		fmt.Fprintf(out, "settle_ms: %d\n", cfg.SettleMs)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: configuration is invalid:\n%v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Set a config value and save to disk",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipValidation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("refusing to save invalid configuration:\n%w", err)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %w", key, err)
		}
		return i, nil
	}
	atof := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %w", key, err)
		}
		return f, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		c.Provider = strings.ToLower(strings.TrimSpace(val))
	case "model":
		c.Model = val
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "output_dir":
		c.OutputDir = val
	case "runs_dir":
		c.RunsDir = val
	case "watch_dir":
		c.WatchDir = val
	case "formats":
		c.Formats = strings.Split(val, ",")
	case "temperature":
		c.Temperature, err = atof()
	case "contamination":
		c.Contamination, err = atof()
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "narrative_timeout_sec":
		c.NarrativeTimeoutSec, err = atoi()
	case "estimators":
		c.Estimators, err = atoi()
	case "max_samples":
		c.MaxSamples, err = atoi()
	case "infer_rows":
		c.InferRows, err = atoi()
	case "workers":
		c.Workers, err = atoi()
	case "settle_ms":
		c.SettleMs, err = atoi()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "seed":
		c.Seed, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid int for seed: %w", err)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
