// Package config provides configuration for the promptkeep core using
// Viper for environment variable loading with the PROMPTKEEP_ prefix.
//
// All resource limits live in an explicit Config value constructed once at
// startup and passed down, so tests can exercise different limits without
// touching process state.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/promptkeep/promptkeep/internal/envfilter"
)

// EnvPrefix is the prefix for all environment configuration keys.
const EnvPrefix = "PROMPTKEEP"

// Config carries every value the core consumes.
type Config struct {
	// Dir is the prompts directory.
	Dir string

	// MaxTemplateSize caps a submitted template file, in bytes.
	MaxTemplateSize int

	// MaxParamCount caps the number of render parameters.
	MaxParamCount int

	// MaxParamSize caps a single render parameter, in bytes.
	MaxParamSize int

	// MaxTotalParamsSize caps the sum of all render parameters, in bytes.
	MaxTotalParamsSize int

	// RenderTimeout is the wall-clock deadline for a single render.
	RenderTimeout time.Duration

	// EnvAllowPatterns and EnvDenyPatterns drive the environment filter.
	// An empty deny list disables deny filtering.
	EnvAllowPatterns []string
	EnvDenyPatterns  []string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Dir:                defaultDir(),
		MaxTemplateSize:    1_000_000,
		MaxParamCount:      100,
		MaxParamSize:       1_000_000,
		MaxTotalParamsSize: 10_000_000,
		RenderTimeout:      5 * time.Second,
		// Copies, so mutating a Config never alters the package defaults.
		EnvAllowPatterns: append([]string(nil), envfilter.DefaultAllowPatterns...),
		EnvDenyPatterns:  append([]string(nil), envfilter.DefaultDenyPatterns...),
	}
}

// Load builds the configuration from defaults overridden by PROMPTKEEP_*
// environment variables.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("dir", defaults.Dir)
	v.SetDefault("max_template_size", defaults.MaxTemplateSize)
	v.SetDefault("max_param_count", defaults.MaxParamCount)
	v.SetDefault("max_param_size", defaults.MaxParamSize)
	v.SetDefault("max_total_params_size", defaults.MaxTotalParamsSize)
	v.SetDefault("render_timeout", defaults.RenderTimeout)

	cfg := Config{
		Dir:                v.GetString("dir"),
		MaxTemplateSize:    v.GetInt("max_template_size"),
		MaxParamCount:      v.GetInt("max_param_count"),
		MaxParamSize:       v.GetInt("max_param_size"),
		MaxTotalParamsSize: v.GetInt("max_total_params_size"),
		RenderTimeout:      v.GetDuration("render_timeout"),
		EnvAllowPatterns:   defaults.EnvAllowPatterns,
		EnvDenyPatterns:    defaults.EnvDenyPatterns,
	}

	// The pattern lists are read directly so that a variable set to the
	// empty string stays distinguishable from one that is not set at all.
	// PROMPTKEEP_BLOCKED_ENV_VARS="" disables deny filtering; an empty
	// allow override is ignored and keeps the defaults.
	if raw, ok := os.LookupEnv(EnvPrefix + "_ALLOWED_ENV_VARS"); ok && raw != "" {
		cfg.EnvAllowPatterns = splitPatternList(raw)
	}
	if raw, ok := os.LookupEnv(EnvPrefix + "_BLOCKED_ENV_VARS"); ok {
		cfg.EnvDenyPatterns = splitPatternList(raw)
	}

	return cfg
}

// splitPatternList splits a pattern list encoded as a single string using
// the platform path list separator (':' on Unix, ';' on Windows).
func splitPatternList(raw string) []string {
	parts := strings.Split(raw, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".promptkeep", "prompts")
	}
	return filepath.Join(home, ".promptkeep", "prompts")
}
