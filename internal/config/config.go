package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	AppName         = "mailcloud"
	EnvPrefix       = "MAILCLOUD_"
	ProviderGmail   = "gmail"
	ProviderIMAP    = "imap"
	DefaultIMAP     = "127.0.0.1"
	DefaultIMAPPort = 1143
	DefaultUserID   = "me"
	DefaultWidth    = 800
	DefaultHeight   = 400
	DefaultWorkers  = 4
)

// DefaultLabels are the label filters used when none are configured.
var DefaultLabels = []string{"jobs-2018-rejections", "jobs-2019-rejections"}

type GmailConfig struct {
	CredentialsFile string `yaml:"credentials_file" env:"GMAIL_CREDENTIALS"`
	TokenFile       string `yaml:"token_file" env:"GMAIL_TOKEN"`
	UserID          string `yaml:"user_id" env:"GMAIL_USER"`
}

type BridgeConfig struct {
	IMAPHost string `yaml:"imap_host" env:"IMAP_HOST"`
	IMAPPort int    `yaml:"imap_port" env:"IMAP_PORT"`
	Email    string `yaml:"email" env:"EMAIL"`
}

type ImageConfig struct {
	Width  int `yaml:"width" env:"IMAGE_WIDTH"`
	Height int `yaml:"height" env:"IMAGE_HEIGHT"`
}

type OutputConfig struct {
	ReportPath string `yaml:"report_path" env:"REPORT_PATH"`
	ImagePath  string `yaml:"image_path" env:"IMAGE_PATH"`
}

type StopwordsConfig struct {
	Extra      []string `yaml:"extra,omitempty" env:"STOPWORDS" envSeparator:","`
	NoDefaults bool     `yaml:"no_defaults" env:"NO_DEFAULT_STOPWORDS"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled" env:"CACHE"`
	Path    string `yaml:"path,omitempty" env:"CACHE_PATH"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	File   string `yaml:"file,omitempty" env:"LOG_FILE"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" env:"METRICS_TEXTFILE"`
}

type Config struct {
	Provider  string          `yaml:"provider" env:"PROVIDER"`
	Labels    []string        `yaml:"labels" env:"LABELS" envSeparator:","`
	Workers   int             `yaml:"workers" env:"WORKERS"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Image     ImageConfig     `yaml:"image"`
	Output    OutputConfig    `yaml:"output"`
	Stopwords StopwordsConfig `yaml:"stopwords"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGmail,
		Labels:   append([]string(nil), DefaultLabels...),
		Workers:  DefaultWorkers,
		Gmail: GmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			UserID:          DefaultUserID,
		},
		Bridge: BridgeConfig{
			IMAPHost: DefaultIMAP,
			IMAPPort: DefaultIMAPPort,
		},
		Image: ImageConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Output: OutputConfig{
			ReportPath: "output.txt",
			ImagePath:  "output.png",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, AppName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultCachePath is used when the cache is enabled without a path.
func DefaultCachePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s - run 'mailcloud config init' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays MAILCLOUD_* environment variables, reading a .env file
// in the working directory first if one exists.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()

	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate reports the first setting that would make a run impossible.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGmail:
		if c.Gmail.CredentialsFile == "" {
			return errors.New("gmail.credentials_file must be set")
		}
		if c.Gmail.TokenFile == "" {
			return errors.New("gmail.token_file must be set")
		}
	case ProviderIMAP:
		if c.Bridge.Email == "" {
			return errors.New("bridge.email must be set for the imap provider")
		}
		if c.Bridge.IMAPPort <= 0 || c.Bridge.IMAPPort > 65535 {
			return fmt.Errorf("invalid bridge.imap_port: %d", c.Bridge.IMAPPort)
		}
	default:
		return fmt.Errorf("unknown provider %q (use '%s' or '%s')", c.Provider, ProviderGmail, ProviderIMAP)
	}

	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", c.Image.Width, c.Image.Height)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Output.ReportPath == "" {
		return errors.New("output.report_path must be set")
	}
	return nil
}

func (c *Config) SetPassword(password string) error {
	if c.Bridge.Email == "" {
		return errors.New("email must be set before storing password")
	}
	return keyring.Set(AppName, c.Bridge.Email, password)
}

func (c *Config) GetPassword() (string, error) {
	if c.Bridge.Email == "" {
		return "", errors.New("email not configured")
	}
	password, err := keyring.Get(AppName, c.Bridge.Email)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("password not found in keyring - run 'mailcloud config init' to set it")
		}
		return "", fmt.Errorf("failed to get password from keyring: %w", err)
	}
	return password, nil
}

func DeletePassword(email string) error {
	return keyring.Delete(AppName, email)
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
