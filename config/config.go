package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"speechlens/encoder"
)

const (
	EnvBackendURL = "SPEECHLENS_BACKEND_URL"
	EnvFormat     = "SPEECHLENS_FORMAT"
	EnvDevice     = "SPEECHLENS_DEVICE"
	EnvLogPath    = "SPEECHLENS_LOG_PATH"
	EnvConfigDir  = "SPEECHLENS_CONFIG_DIR"
	EnvGain       = "SPEECHLENS_GAIN"
	EnvBeep       = "SPEECHLENS_BEEP"
)

type Config struct {
	BackendURL string `yaml:"backend_url"`
	Format     string `yaml:"format"`
	Device     string `yaml:"device"`
	LogPath    string `yaml:"log_path"`
	// ConfigDir holds preferences.json.
	ConfigDir string `yaml:"config_dir"`
	ReportDir string `yaml:"report_dir"`
	Gain      int    `yaml:"gain"`
	Beep      bool   `yaml:"beep"`
	// ExtraTypes are upload content types the backend accepts beyond its
	// stock set, e.g. audio/flac for a patched server.
	ExtraTypes []string `yaml:"extra_content_types"`
}

// Sources names the optional files Load layers over the defaults.
type Sources struct {
	File     string // empty means the default config.yaml, which may be absent
	DotEnv   string // empty means ".env" in the working directory
	Required bool   // File must exist
}

func Default() Config {
	return Config{
		BackendURL: "http://localhost:8000",
		Format:     encoder.FormatWAV,
		ConfigDir:  DefaultDir(),
		ReportDir:  ".",
		Gain:       1,
		Beep:       true,
	}
}

// DefaultDir is $XDG_CONFIG_HOME/speechlens, or ~/.config/speechlens.
func DefaultDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "speechlens"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "speechlens")
}

// Load resolves defaults, then the YAML file, then .env, then the process
// environment. Flags are applied by the caller afterwards.
func Load(src Sources) (Config, error) {
	cfg := Default()

	path := src.File
	required := src.Required && path != ""
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}
	if err := loadFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || required {
			return cfg, err
		}
	}

	dotenv := src.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: load %s: %w", dotenv, err)
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	if err := Decode(f, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are an error.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with any SPEECHLENS_* variables that are set.
func ApplyEnv(cfg *Config) {
	cfg.BackendURL = envOrDefault(EnvBackendURL, cfg.BackendURL)
	cfg.Format = envOrDefault(EnvFormat, cfg.Format)
	cfg.Device = envOrDefault(EnvDevice, cfg.Device)
	cfg.LogPath = envOrDefault(EnvLogPath, cfg.LogPath)
	cfg.ConfigDir = envOrDefault(EnvConfigDir, cfg.ConfigDir)
	cfg.Gain = envOrDefaultInt(EnvGain, cfg.Gain)
	cfg.Beep = envOrDefaultBool(EnvBeep, cfg.Beep)
}

// Validate returns every problem with cfg joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	u, err := url.Parse(cfg.BackendURL)
	switch {
	case cfg.BackendURL == "":
		errs = append(errs, errors.New("backend_url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("backend_url %q is invalid: %w", cfg.BackendURL, err))
	case (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errs = append(errs, fmt.Errorf("backend_url %q must be an absolute http(s) URL", cfg.BackendURL))
	}

	if !encoder.Valid(cfg.Format) {
		errs = append(errs, fmt.Errorf("format %q is invalid; valid values: %s, %s", cfg.Format, encoder.FormatWAV, encoder.FormatFLAC))
	}
	if cfg.Gain < 1 || cfg.Gain > 32 {
		errs = append(errs, fmt.Errorf("gain %d is out of range [1, 32]", cfg.Gain))
	}
	if cfg.ConfigDir == "" {
		errs = append(errs, errors.New("config_dir is required"))
	}
	for i, t := range cfg.ExtraTypes {
		if !strings.HasPrefix(t, "audio/") {
			errs = append(errs, fmt.Errorf("extra_content_types[%d] %q is not an audio type", i, t))
		}
	}

	return errors.Join(errs...)
}

// ContentTypes returns the extra upload types the chosen format needs on top
// of ExtraTypes.
func (c Config) ContentTypes() []string {
	types := append([]string(nil), c.ExtraTypes...)
	if c.Format == encoder.FormatFLAC {
		types = append(types, "audio/flac")
	}
	return types
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
