package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	APIURL        string `mapstructure:"api_url" yaml:"api_url"`
	Model         string `mapstructure:"model" yaml:"model"`
	Auto          bool   `mapstructure:"auto" yaml:"auto"`
	TimeoutMillis int    `mapstructure:"timeout" yaml:"timeout_ms"`
	MaxDiffBytes  int    `mapstructure:"max_diff_bytes" yaml:"max_diff_bytes"`
	Verbose       bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	LogFile       string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

const (
	DefaultTimeoutMillis = 30000
	DefaultEnvFile       = ".env"
	DefaultLogLevel      = "warn"
)

const (
	KeyAPIKey       = "api_key"
	KeyAPIURL       = "api_url"
	KeyModel        = "model"
	KeyAuto         = "auto"
	KeyTimeout      = "timeout"
	KeyMaxDiffBytes = "max_diff_bytes"
	KeyVerbose      = "verbose"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
)

// Required keys in the order they are checked.
var requiredEnv = []struct {
	key string
	env string
}{
	{KeyAPIKey, "AI_API_KEY"},
	{KeyAPIURL, "AI_API_URL"},
	{KeyModel, "AI_MODEL"},
}

var optionalEnv = map[string]string{
	KeyAuto:         "AI_AUTO",
	KeyTimeout:      "AI_TIMEOUT",
	KeyMaxDiffBytes: "AI_MAX_DIFF_BYTES",
	KeyLogLevel:     "AI_LOG_LEVEL",
	KeyLogFile:      "AI_LOG_FILE",
}

// Flag names bound onto config keys when present on the command.
var flagBindings = map[string]string{
	KeyAuto:         "auto",
	KeyTimeout:      "timeout",
	KeyMaxDiffBytes: "max-diff-bytes",
	KeyVerbose:      "verbose",
}

var (
	ErrMissingEnv = errors.New("missing required environment variable")
	ErrInvalid    = errors.New("invalid configuration")
)

// MissingEnvError names the first required variable that is unset.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return e.Name + " must be set"
}

func (e *MissingEnvError) Is(target error) bool {
	return target == ErrMissingEnv
}

type Options struct {
	// ConfigFile is an optional YAML file; a missing explicit file is an error.
	ConfigFile string
	// EnvFile is a dotenv file loaded before reading the environment; a missing
	// file is ignored. Variables already set in the environment win.
	EnvFile string
	Flags   *pflag.FlagSet
}

// Load resolves configuration with precedence flags > environment > config
// file > defaults. The returned Config is populated even when validation fails
// so callers can display it.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault(KeyAuto, false)
	v.SetDefault(KeyTimeout, DefaultTimeoutMillis)
	v.SetDefault(KeyMaxDiffBytes, 0)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")

	for _, req := range requiredEnv {
		if err := v.BindEnv(req.key, req.env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", req.env, err)
		}
	}
	for key, env := range optionalEnv {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range flagBindings {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, cfg.Validate()
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks required values first, in AI_API_KEY, AI_API_URL, AI_MODEL order.
func (c Config) Validate() error {
	values := map[string]string{
		KeyAPIKey: c.APIKey,
		KeyAPIURL: c.APIURL,
		KeyModel:  c.Model,
	}
	for _, req := range requiredEnv {
		if values[req.key] == "" {
			return &MissingEnvError{Name: req.env}
		}
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: AI_API_URL must be an absolute http(s) URL, got %q", ErrInvalid, c.APIURL)
	}
	if c.TimeoutMillis <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %d", ErrInvalid, c.TimeoutMillis)
	}
	if c.MaxDiffBytes < 0 {
		return fmt.Errorf("%w: max diff bytes must not be negative, got %d", ErrInvalid, c.MaxDiffBytes)
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	switch {
	case c.APIKey == "":
	case len(c.APIKey) <= 8:
		c.APIKey = "********"
	default:
		c.APIKey = c.APIKey[:4] + "********"
	}
	return c
}
