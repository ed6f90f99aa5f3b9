package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

// LocalConfigName is the per-repository config file looked up from the working tree upwards
const LocalConfigName = ".branch-eval.toml"

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
	Notifications NotificationsConfig `toml:"notifications"`
	Schedule      ScheduleConfig      `toml:"schedule"`
}

// GeneralConfig holds repository layout settings
type GeneralConfig struct {
	Baseline     string `toml:"baseline"`
	Remote       string `toml:"remote"`
	LogDir       string `toml:"log_dir"`
	ReportPath   string `toml:"report_path"`
	OutputsDir   string `toml:"outputs_dir"`
	DatabasePath string `toml:"database_path"`
}

// PipelineConfig holds the external commands run for every branch
type PipelineConfig struct {
	BuildCommand  string `toml:"build_command"`
	TestCommand   string `toml:"test_command"`
	MergeStrategy string `toml:"merge_strategy"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// ScheduleConfig holds settings for recurring runs
type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			Baseline:     "master",
			Remote:       "origin",
			LogDir:       "eval-logs",
			ReportPath:   "report.csv",
			OutputsDir:   "outputs",
			DatabasePath: filepath.Join(home, ".branch-eval", "history.db"),
		},
		Pipeline: PipelineConfig{
			BuildCommand:  "./gradlew assemble",
			TestCommand:   "./gradlew test --tests",
			MergeStrategy: string(domain.MergeOurs),
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.General.LogDir = ExpandPath(cfg.General.LogDir)
	cfg.General.ReportPath = ExpandPath(cfg.General.ReportPath)
	cfg.General.OutputsDir = ExpandPath(cfg.General.OutputsDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late inside a run
func (c *Config) Validate() error {
	if c.General.Baseline == "" {
		return fmt.Errorf("general.baseline is required")
	}
	if c.General.Remote == "" {
		return fmt.Errorf("general.remote is required")
	}
	if c.General.LogDir == "" {
		return fmt.Errorf("general.log_dir is required")
	}
	if c.General.ReportPath == "" {
		return fmt.Errorf("general.report_path is required")
	}
	if c.Pipeline.BuildCommand == "" || c.Pipeline.TestCommand == "" {
		return fmt.Errorf("pipeline.build_command and pipeline.test_command are required")
	}
	if !domain.MergeStrategy(c.Pipeline.MergeStrategy).Valid() {
		return fmt.Errorf("pipeline.merge_strategy must be %q or %q, got %q",
			domain.MergeOurs, domain.MergeTheirs, c.Pipeline.MergeStrategy)
	}
	return nil
}

// Save writes the configuration as TOML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolveIn makes a relative path relative to dir instead of the process cwd
func ResolveIn(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "branch-eval", "config.toml")
}

// FindLocalConfig walks up from dir looking for LocalConfigName
func FindLocalConfig(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
