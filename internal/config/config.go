package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmelnik/buildgate/internal/models"
	"github.com/spf13/viper"
)

// Config holds all configuration for buildgate
type Config struct {
	// Target selection (comma-separated names, "all" for everything)
	Targets string `mapstructure:"targets"`

	// Path to an external catalog YAML (empty = built-in catalog)
	CatalogFile string `mapstructure:"catalog_file"`

	// Failure policy when reportable findings exist: fail-build or warn-only
	Policy string `mapstructure:"policy"`

	// Severities that count toward the outcome
	Allowlist []string `mapstructure:"allowlist"`

	// Build all targets concurrently instead of in catalog order
	Parallel bool `mapstructure:"parallel"`

	// Use the build cache (disabled adds --no-cache)
	Cache bool `mapstructure:"cache"`

	// Push built images after a non-failing outcome
	Push bool `mapstructure:"push"`

	// Fail on unknown selection tokens instead of dropping them
	Strict bool `mapstructure:"strict"`

	// Per-build and per-scan invocation timeout
	Timeout time.Duration `mapstructure:"timeout"`

	// Directory for stored runs
	StorageDir string `mapstructure:"storage_dir"`

	// Directory for rendered HTML reports and scan output files
	ReportDir string `mapstructure:"report_dir"`

	// Verbose output
	Verbose bool `mapstructure:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Targets:    "all",
		Policy:     models.PolicyFailBuild,
		Allowlist:  []string{models.SeverityHigh, models.SeverityCritical},
		Parallel:   false,
		Cache:      true,
		Push:       false,
		Strict:     false,
		Timeout:    15 * time.Minute,
		StorageDir: ".buildgate",
		ReportDir:  "reports",
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (~/buildgate.yaml or ./buildgate.yaml)
// 3. Environment variables (BUILDGATE_*)
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path
// If path is empty, it searches for config in standard locations
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("targets", defaults.Targets)
	v.SetDefault("catalog_file", "")
	v.SetDefault("policy", defaults.Policy)
	v.SetDefault("allowlist", defaults.Allowlist)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("cache", defaults.Cache)
	v.SetDefault("push", defaults.Push)
	v.SetDefault("strict", defaults.Strict)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("report_dir", defaults.ReportDir)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("debug", defaults.Debug)

	v.SetConfigName("buildgate")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search for config in standard locations
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}

		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "buildgate"))
		}
	}

	v.SetEnvPrefix("BUILDGATE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is OK, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Policy != models.PolicyFailBuild && c.Policy != models.PolicyWarnOnly {
		return fmt.Errorf("invalid policy: %s (must be %s or %s)",
			c.Policy, models.PolicyFailBuild, models.PolicyWarnOnly)
	}

	if len(c.Allowlist) == 0 {
		return fmt.Errorf("allowlist cannot be empty")
	}
	for _, sev := range c.Allowlist {
		if !models.IsKnownSeverity(sev) {
			return fmt.Errorf("invalid allowlist severity: %s", sev)
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}

	if c.ReportDir == "" {
		return fmt.Errorf("report_dir cannot be empty")
	}

	return nil
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	return expandPath(c.StorageDir)
}

// GetReportPath returns the absolute path to the report directory
func (c *Config) GetReportPath() (string, error) {
	return expandPath(c.ReportDir)
}

// expandPath expands a leading ~/ and converts to an absolute path
func expandPath(dir string) (string, error) {
	if len(dir) >= 2 && dir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, dir[2:]), nil
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# buildgate configuration
# Save this file as ~/buildgate.yaml or ./buildgate.yaml

# Targets to build: comma-separated names, or "all"
targets: all

# External catalog definition (omit to use the built-in catalog)
# catalog_file: ./buildgate-catalog.yaml

# What to do when reportable findings exist: fail-build or warn-only
policy: fail-build

# Severities that count toward the outcome
allowlist:
  - HIGH
  - CRITICAL

# Build all targets concurrently
parallel: false

# Use the build cache
cache: true

# Push built images when the outcome allows it
push: false

# Fail on unknown target names instead of dropping them
strict: false

# Per-build and per-scan timeout
timeout: 15m

# Directory for stored runs
storage_dir: .buildgate

# Directory for rendered reports and scan output
report_dir: reports

# Enable verbose output
verbose: false

# Enable debug mode
debug: false
`
}
