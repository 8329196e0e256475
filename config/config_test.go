package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points every config source at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{EnvBackendURL, EnvFormat, EnvDevice, EnvLogPath, EnvConfigDir, EnvGain, EnvBeep} {
		t.Setenv(k, "x")
		os.Unsetenv(k)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load(Sources{DotEnv: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8000" || cfg.Format != "wav" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ConfigDir != filepath.Join(dir, "speechlens") {
		t.Errorf("ConfigDir = %q", cfg.ConfigDir)
	}
}

func TestLoadRequiredFileMissing(t *testing.T) {
	dir := isolate(t)
	_, err := Load(Sources{File: filepath.Join(dir, "nope.yaml"), Required: true})
	if err == nil {
		t.Fatal("expected error for missing required file")
	}
}

func TestLayering(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "speechlens", "config.yaml"), `
backend_url: http://yaml-host:9000
format: flac
device: yaml-mic
gain: 4
`)
	t.Setenv(EnvBackendURL, "https://env-host")

	cfg, err := Load(Sources{DotEnv: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://env-host" {
		t.Errorf("env should beat yaml, got %q", cfg.BackendURL)
	}
	if cfg.Format != "flac" || cfg.Device != "yaml-mic" || cfg.Gain != 4 {
		t.Errorf("yaml values lost: %+v", cfg)
	}
	if !cfg.Beep {
		t.Error("unset yaml key should keep default")
	}
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	writeFile(t, envFile, EnvDevice+"=dotenv-mic\n"+EnvFormat+"=flac\n")
	t.Setenv(EnvDevice, "real-mic")

	cfg, err := Load(Sources{DotEnv: envFile})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device != "real-mic" {
		t.Errorf("Device = %q, real env should win", cfg.Device)
	}
	if cfg.Format != "flac" {
		t.Errorf("Format = %q, .env should fill unset vars", cfg.Format)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("backend_url: http://x\nbackend: typo\n"), &cfg)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg := Default()
	if err := Decode(strings.NewReader(""), &cfg); err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	if cfg.Format != "wav" {
		t.Error("empty yaml should keep defaults")
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.BackendURL = "localhost:8000"
	cfg.Format = "ogg"
	cfg.Gain = 0
	cfg.ExtraTypes = []string{"video/mp4"}

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"backend_url", "format", "gain", "extra_content_types[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv(EnvGain, "nope")
	if got := envOrDefaultInt(EnvGain, 3); got != 3 {
		t.Errorf("bad int should fall back, got %d", got)
	}
	for _, tt := range []struct {
		raw  string
		want bool
	}{
		{"yes", true}, {"OFF", false}, {"maybe", true},
	} {
		t.Setenv(EnvBeep, tt.raw)
		if got := envOrDefaultBool(EnvBeep, true); got != tt.want {
			t.Errorf("envOrDefaultBool(%q) = %v", tt.raw, got)
		}
	}
}

func TestContentTypes(t *testing.T) {
	cfg := Default()
	if len(cfg.ContentTypes()) != 0 {
		t.Errorf("wav needs no extra types, got %v", cfg.ContentTypes())
	}
	cfg.Format = "flac"
	cfg.ExtraTypes = []string{"audio/x-custom"}
	got := cfg.ContentTypes()
	if len(got) != 2 || got[1] != "audio/flac" {
		t.Errorf("ContentTypes() = %v", got)
	}
}
