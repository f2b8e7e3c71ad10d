package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bscott/mailcloud/internal/config"
	"github.com/bscott/mailcloud/internal/logging"
	"github.com/bscott/mailcloud/internal/output"
)

var Version = "0.1.0"

type Globals struct {
	JSON      bool   `help:"Output as JSON" name:"json"`
	HelpJSON  bool   `help:"Output command help as JSON (AI agent mode)" name:"help-json"`
	Config    string `help:"Path to config file" short:"c" type:"path"`
	Verbose   bool   `help:"Verbose output" short:"v"`
	Quiet     bool   `help:"Suppress non-essential output" short:"q"`
	NoColor   bool   `help:"Disable colored output" name:"no-color"`
	LogLevel  string `help:"Log level (debug, info, warn, error)" name:"log-level"`
	LogFormat string `help:"Log format (text, json)" name:"log-format"`
	LogFile   string `help:"Also write logs to this rotating file" name:"log-file" type:"path"`
}

type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" default:"withargs" help:"Count words in labeled messages and draw a word cloud"`
	Labels  LabelsCmd  `cmd:"" help:"List labels of the configured mailbox"`
	Auth    AuthCmd    `cmd:"" help:"Authorize access to the mailbox"`
	Cache   CacheCmd   `cmd:"" help:"Inspect or clear the extracted text cache"`
	Config  ConfigCmd  `cmd:"" help:"Configuration management"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type Context struct {
	Config    *config.Config
	Formatter *output.Formatter
	Globals   *Globals
	Logger    *slog.Logger

	logCloser io.Closer
}

// NewContext loads the config file (defaults when there is none), applies
// MAILCLOUD_* overrides and builds the logger.
func NewContext(globals *Globals) (*Context, error) {
	noColor := globals.NoColor || os.Getenv("NO_COLOR") != ""
	formatter := output.New(globals.JSON, globals.Verbose, globals.Quiet, noColor)

	cfg, err := loadConfig(globals.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if globals.LogLevel != "" {
		level = globals.LogLevel
	} else if globals.Verbose {
		level = "debug"
	}
	format := cfg.Log.Format
	if globals.LogFormat != "" {
		format = globals.LogFormat
	}
	file := cfg.Log.File
	if globals.LogFile != "" {
		file = globals.LogFile
	}

	logger, closer, err := logging.New(logging.Options{
		Level:   level,
		Format:  format,
		File:    file,
		NoColor: noColor,
		Writer:  formatter.ErrWriter,
	})
	if err != nil {
		return nil, err
	}

	return &Context{
		Config:    cfg,
		Formatter: formatter,
		Globals:   globals,
		Logger:    logger,
		logCloser: closer,
	}, nil
}

// Close flushes the log file, if one was opened.
func (c *Context) Close() error {
	if c.logCloser == nil {
		return nil
	}
	return c.logCloser.Close()
}

// loadConfig falls back to defaults when the file does not exist. A file
// that exists but cannot be parsed is an error.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if !config.Exists() {
			return config.DefaultConfig(), nil
		}
		return config.Load("")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

type RunCmd struct {
	Provider           string   `help:"Mail provider (gmail, imap)" short:"p"`
	Labels             []string `help:"Label filters, comma separated" short:"l" sep:","`
	Query              string   `help:"Raw provider query; replaces --labels"`
	Report             string   `help:"Report output path" short:"o" type:"path"`
	Image              string   `help:"Word cloud PNG path" type:"path"`
	NoImage            bool     `help:"Do not draw the word cloud" name:"no-image"`
	Width              int      `help:"Image width in pixels"`
	Height             int      `help:"Image height in pixels"`
	Workers            int      `help:"Messages fetched concurrently" short:"w"`
	Stopword           []string `help:"Extra stopwords, comma separated" sep:","`
	NoDefaultStopwords bool     `help:"Do not use the built-in stopword list" name:"no-default-stopwords"`
	Top                int      `help:"Print the N most frequent words" short:"n"`
	Cache              bool     `help:"Reuse text extracted by earlier runs" xor:"cache"`
	NoCache            bool     `help:"Disable the cache even if configured" name:"no-cache" xor:"cache"`
	MetricsFile        string   `help:"Write Prometheus metrics to this textfile" name:"metrics-file" type:"path"`
	Seed               uint64   `help:"Word cloud layout seed"`
}

type LabelsCmd struct {
	Provider string `help:"Mail provider (gmail, imap)" short:"p"`
}

type AuthCmd struct {
	Provider string `help:"Mail provider (gmail, imap)" short:"p"`
	Logout   bool   `help:"Forget the stored token or password"`
}

type CacheCmd struct {
	Info  CacheInfoCmd  `cmd:"" help:"Show cache location and entry count"`
	Clear CacheClearCmd `cmd:"" help:"Remove cached text for the configured account"`
}

type CacheInfoCmd struct{}

type CacheClearCmd struct{}

// ConfigCmd handles configuration management
type ConfigCmd struct {
	Init     ConfigInitCmd     `cmd:"" help:"Interactive setup wizard"`
	Show     ConfigShowCmd     `cmd:"" help:"Display current configuration"`
	Set      ConfigSetCmd      `cmd:"" help:"Set a configuration value"`
	Validate ConfigValidateCmd `cmd:"" help:"Check the configuration and open a mailbox session"`
	Doctor   ConfigDoctorCmd   `cmd:"" help:"Diagnose configuration issues"`
}

type ConfigInitCmd struct{}

type ConfigShowCmd struct{}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Configuration key (e.g., provider, bridge.email, image.width)"`
	Value string `arg:"" help:"Value to set"`
}

type ConfigValidateCmd struct{}

type ConfigDoctorCmd struct{}

// VersionCmd shows version information
type VersionCmd struct{}
