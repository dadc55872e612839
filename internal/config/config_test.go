package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config          string  `toml:"-"`
	Port            string  `toml:"server.port" env:"PORT"`
	GraceWindow     string  `toml:"jobs.grace-window" env:"GRACE_WINDOW"`
	Strict          bool    `toml:"jobs.strict" env:"STRICT"`
	SilentThreshold float64 `toml:"jobs.silent-threshold" env:"SILENT_THRESHOLD"`
	MaxClips        int     `toml:"jobs.max-clips" env:"MAX_CLIPS"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videobridge.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"

[jobs]
grace-window = "10s"
strict = true
silent-threshold = 0.05
max-clips = 7
`)

	opts := testOptions{Config: path, Port: ":8090"}
	if err := Load(&opts, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.Port != ":9000" {
		t.Errorf("port = %q, want :9000", opts.Port)
	}
	if opts.GraceWindow != "10s" {
		t.Errorf("grace window = %q, want 10s", opts.GraceWindow)
	}
	if !opts.Strict {
		t.Error("strict not applied")
	}
	if opts.SilentThreshold != 0.05 {
		t.Errorf("silent threshold = %v, want 0.05", opts.SilentThreshold)
	}
	if opts.MaxClips != 7 {
		t.Errorf("max clips = %d, want 7", opts.MaxClips)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"
`)

	t.Setenv("VIDEOBRIDGE_PORT", ":9100")
	t.Setenv("VIDEOBRIDGE_STRICT", "true")

	opts := testOptions{Config: path}
	if err := Load(&opts, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.Port != ":9100" {
		t.Errorf("port = %q, want env override :9100", opts.Port)
	}
	if !opts.Strict {
		t.Error("strict env override not applied")
	}
}

func TestCLIFlagsWin(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"
`)
	t.Setenv("VIDEOBRIDGE_PORT", ":9100")

	cmd := &cobra.Command{}
	cmd.Flags().String("port", ":8090", "")
	if err := cmd.Flags().Set("port", ":7000"); err != nil {
		t.Fatal(err)
	}

	opts := testOptions{Config: path, Port: ":7000"}
	if err := Load(&opts, cmd); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.Port != ":7000" {
		t.Errorf("port = %q, CLI value should win", opts.Port)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	opts := testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Port: ":8090"}
	if err := Load(&opts, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.Port != ":8090" {
		t.Errorf("port = %q, want default preserved", opts.Port)
	}
}

func TestFlagName(t *testing.T) {
	cases := map[string]string{
		"Port":        "port",
		"GraceWindow": "grace-window",
		"MaxClips":    "max-clips",
	}
	for in, want := range cases {
		if got := flagName(in); got != want {
			t.Errorf("flagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"
supervisor = "warn"
api = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("unexpected base config: %+v", cfg)
	}
	if cfg.Modules["supervisor"] != "warn" || cfg.Modules["api"] != "error" {
		t.Errorf("unexpected module levels: %v", cfg.Modules)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	cfg = LoadLoggingConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.Level != "info" {
		t.Errorf("missing file should keep defaults, got %+v", cfg)
	}
}
