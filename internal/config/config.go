package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-notam-briefing/internal/pdf/stamp"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultGeminiURL     = "https://generativelanguage.googleapis.com"
	DefaultOracleTimeout = 60 * time.Second
	DefaultOracleRPS     = 1.0
	DefaultTextPageLimit = 10

	// Stamp layout defaults, in PDF points
	DefaultHeaderMargin      = stamp.DefaultHeaderMargin
	DefaultStampRightInset   = stamp.DefaultRightInset
	DefaultStampBaselineLift = stamp.DefaultBaselineLift
	DefaultStampFontSize     = stamp.DefaultFontSize

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. NOTAM_PORT
	EnvPrefix = "NOTAM"
)

// ErrVersionRequested is returned by Load when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// GeminiConfig holds the language model settings
type GeminiConfig struct {
	// APIKey is passed to the oracle as an opaque value and never printed
	APIKey            string
	Model             string
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// StampConfig holds the annotation layout
type StampConfig struct {
	HeaderMargin float64
	RightInset   float64
	BaselineLift float64
	FontSize     int
}

// Config holds all configuration for the NOTAM briefing server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDFDirectory is where briefing packs are read from and outputs written to
	PDFDirectory string
	// ConfigFile is an optional YAML/TOML/JSON file read before env and flags
	ConfigFile string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes

	Gemini        GeminiConfig
	Stamp         StampConfig
	TextPageLimit int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		Version:      "1.0.0",
		ServerName:   "mcp-notam-briefing",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
		Gemini: GeminiConfig{
			Model:             DefaultGeminiModel,
			URL:               DefaultGeminiURL,
			Timeout:           DefaultOracleTimeout,
			RequestsPerSecond: DefaultOracleRPS,
		},
		Stamp: StampConfig{
			HeaderMargin: DefaultHeaderMargin,
			RightInset:   DefaultStampRightInset,
			BaselineLift: DefaultStampBaselineLift,
			FontSize:     DefaultStampFontSize,
		},
		TextPageLimit: DefaultTextPageLimit,
	}
}

// LoadFromFlags parses the process command line and environment
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[0], os.Args[1:])
}

// Load builds a configuration from args, the environment and an optional
// config file. Precedence is flag, then environment, then file, then default.
func Load(program string, args []string) (*Config, error) {
	cfg := DefaultConfig()

	// Check for version flag before parsing
	if err := checkVersionFlag(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setupViperEnvironment(v, cfg)

	flags := pflag.NewFlagSet(program, pflag.ContinueOnError)
	defineCommandLineFlags(flags, cfg)
	setupUsageMessage(flags, program)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := bindFlagsToViper(v, flags); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(v, cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// the key the original deployment used is honoured as a fallback
	_ = v.BindEnv("gemini-key", EnvPrefix+"_GEMINI_KEY", "GEMINI_KEY")

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("gemini-model", cfg.Gemini.Model)
	v.SetDefault("gemini-url", cfg.Gemini.URL)
	v.SetDefault("oracle-timeout", cfg.Gemini.Timeout)
	v.SetDefault("oracle-rps", cfg.Gemini.RequestsPerSecond)
	v.SetDefault("header-margin", cfg.Stamp.HeaderMargin)
	v.SetDefault("stamp-right-inset", cfg.Stamp.RightInset)
	v.SetDefault("stamp-baseline-lift", cfg.Stamp.BaselineLift)
	v.SetDefault("stamp-font-size", cfg.Stamp.FontSize)
	v.SetDefault("text-page-limit", cfg.TextPageLimit)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	flags.String("host", cfg.Host, "Server host address (server mode only)")
	flags.Int("port", cfg.Port, "Server port (server mode only)")
	flags.String("dir", cfg.PDFDirectory, "Directory containing briefing PDFs")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	flags.String("config", "", "Optional configuration file (yaml, toml or json)")

	flags.String("gemini-key", "", "Gemini API key; without one, notices are classified offline")
	flags.String("gemini-model", cfg.Gemini.Model, "Gemini model name")
	flags.String("gemini-url", cfg.Gemini.URL, "Gemini API base URL")
	flags.Duration("oracle-timeout", cfg.Gemini.Timeout, "Timeout for one language model request")
	flags.Float64("oracle-rps", cfg.Gemini.RequestsPerSecond, "Maximum language model requests per second")

	flags.Float64("header-margin", cfg.Stamp.HeaderMargin, "Occurrences left of this x position (points) are notice headers")
	flags.Float64("stamp-right-inset", cfg.Stamp.RightInset, "Distance of the tag from the right page edge (points)")
	flags.Float64("stamp-baseline-lift", cfg.Stamp.BaselineLift, "Tag offset above the header baseline (points)")
	flags.Int("stamp-font-size", cfg.Stamp.FontSize, "Tag font size (points)")
	flags.Int("text-page-limit", cfg.TextPageLimit, "Number of leading pages read for text extraction and briefing")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("cannot bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(flags *pflag.FlagSet, program string) {
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", program)
		fmt.Fprintf(os.Stderr, "\nNOTAM Briefing - crop NOTAM packs, brief them and stamp classification tags\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", program)
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/briefings                "+
			"# stdio mode with custom directory\n", program)
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/briefings  # server mode\n", program)
		fmt.Fprintf(os.Stderr, "  %s --config=notam.yaml                     # settings from a file\n", program)
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_MODE            Server mode\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_DIR             Briefing directory\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_LOGLEVEL        Log level\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_GEMINI_KEY      Gemini API key (GEMINI_KEY is also read)\n")
		fmt.Fprintf(os.Stderr, "  NOTAM_HEADER_MARGIN   Header margin in points\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) error {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.ConfigFile = v.GetString("config")

	cfg.Gemini.APIKey = v.GetString("gemini-key")
	cfg.Gemini.Model = v.GetString("gemini-model")
	cfg.Gemini.URL = v.GetString("gemini-url")
	cfg.Gemini.Timeout = v.GetDuration("oracle-timeout")
	cfg.Gemini.RequestsPerSecond = v.GetFloat64("oracle-rps")

	cfg.Stamp.HeaderMargin = v.GetFloat64("header-margin")
	cfg.Stamp.RightInset = v.GetFloat64("stamp-right-inset")
	cfg.Stamp.BaselineLift = v.GetFloat64("stamp-baseline-lift")
	cfg.Stamp.FontSize = v.GetInt("stamp-font-size")
	cfg.TextPageLimit = v.GetInt("text-page-limit")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.Gemini.Timeout <= 0 {
		return errors.New("oracle timeout must be positive")
	}
	if c.Gemini.RequestsPerSecond <= 0 {
		return errors.New("oracle requests per second must be positive")
	}

	if c.Stamp.HeaderMargin <= 0 {
		return errors.New("header margin must be positive")
	}
	if c.Stamp.RightInset < 0 {
		return errors.New("stamp right inset cannot be negative")
	}
	if c.Stamp.FontSize <= 0 {
		return errors.New("stamp font size must be positive")
	}

	if c.TextPageLimit <= 0 {
		return errors.New("text page limit must be positive")
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// HasOracle reports whether a language model key is configured
func (c *Config) HasOracle() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

// String returns a string representation of the configuration. The API key
// is reported only as set or unset.
func (c *Config) String() string {
	key := "unset"
	if c.HasOracle() {
		key = "set"
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"GeminiModel: %s, GeminiKey: %s, HeaderMargin: %g, TextPageLimit: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize,
		c.Gemini.Model, key, c.Stamp.HeaderMargin, c.TextPageLimit)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// StampLayout returns the annotation layout with the configured overrides
func (c *Config) StampLayout() stamp.Layout {
	layout := stamp.DefaultLayout()
	layout.HeaderMargin = c.Stamp.HeaderMargin
	layout.RightInset = c.Stamp.RightInset
	layout.BaselineLift = c.Stamp.BaselineLift
	layout.FontSize = c.Stamp.FontSize
	return layout
}
