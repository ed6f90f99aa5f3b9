package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.General.Baseline != "master" {
		t.Errorf("Baseline = %q, want master", cfg.General.Baseline)
	}
	if cfg.General.LogDir != "eval-logs" {
		t.Errorf("LogDir = %q, want eval-logs", cfg.General.LogDir)
	}
	if cfg.General.ReportPath != "report.csv" {
		t.Errorf("ReportPath = %q, want report.csv", cfg.General.ReportPath)
	}
	if cfg.Pipeline.MergeStrategy != "ours" {
		t.Errorf("MergeStrategy = %q, want ours", cfg.Pipeline.MergeStrategy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.Remote != "origin" {
		t.Errorf("Remote = %q, want origin", cfg.General.Remote)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
baseline = "main"
log_dir = "logs"

[pipeline]
build_command = "make"
test_command = "make test T="
merge_strategy = "theirs"

[schedule]
cron = "0 2 * * *"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.Baseline != "main" {
		t.Errorf("Baseline = %q, want main", cfg.General.Baseline)
	}
	if cfg.General.LogDir != "logs" {
		t.Errorf("LogDir = %q, want logs", cfg.General.LogDir)
	}
	// Untouched keys keep their defaults
	if cfg.General.ReportPath != "report.csv" {
		t.Errorf("ReportPath = %q, want report.csv", cfg.General.ReportPath)
	}
	if cfg.Pipeline.BuildCommand != "make" {
		t.Errorf("BuildCommand = %q, want make", cfg.Pipeline.BuildCommand)
	}
	if cfg.Pipeline.MergeStrategy != "theirs" {
		t.Errorf("MergeStrategy = %q, want theirs", cfg.Pipeline.MergeStrategy)
	}
	if cfg.Schedule.Cron != "0 2 * * *" {
		t.Errorf("Cron = %q", cfg.Schedule.Cron)
	}
}

func TestLoad_InvalidMergeStrategy(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[pipeline]\nmerge_strategy = \"octopus\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid merge strategy")
	}
	if !strings.Contains(err.Error(), "merge_strategy") {
		t.Errorf("error %q should mention merge_strategy", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.General.Baseline = "trunk"
	cfg.Notifications.SlackWebhook = "https://hooks.example.com/x"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.General.Baseline != "trunk" {
		t.Errorf("Baseline = %q, want trunk", loaded.General.Baseline)
	}
	if loaded.Notifications.SlackWebhook != cfg.Notifications.SlackWebhook {
		t.Errorf("SlackWebhook = %q", loaded.Notifications.SlackWebhook)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveIn(t *testing.T) {
	tests := []struct {
		dir, path, want string
	}{
		{"/repo", "eval-logs", "/repo/eval-logs"},
		{"/repo", "/tmp/logs", "/tmp/logs"},
		{"/repo", "", ""},
	}
	for _, tt := range tests {
		if got := ResolveIn(tt.dir, tt.path); got != tt.want {
			t.Errorf("ResolveIn(%q, %q) = %q, want %q", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestFindLocalConfig(t *testing.T) {
	root := t.TempDir()
	subdir := filepath.Join(root, "sub", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	localConfig := filepath.Join(root, LocalConfigName)
	if err := os.WriteFile(localConfig, []byte("[general]\nbaseline = \"main\""), 0644); err != nil {
		t.Fatal(err)
	}

	found, ok := FindLocalConfig(subdir)
	if !ok {
		t.Fatal("expected to find local config")
	}
	if found != localConfig {
		t.Errorf("found %q, want %q", found, localConfig)
	}
}
