package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultMaxSessions = 256
	DefaultEnvFile     = ".env"

	// DefaultOutputSubdir holds exports under the working directory unless
	// --output-dir says otherwise.
	DefaultOutputSubdir = "out"

	// EnvPrefix is prepended to every environment variable, e.g. PDF_FORMS_PORT.
	EnvPrefix = "PDF_FORMS"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ErrVersionRequested is returned when --version was passed.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the forms server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Working directory; file arguments are confined to it
	Directory string

	// Rendering and drawing
	Scale       float64
	MinRect     float64
	MaxFileSize int64 // Maximum PDF file size in bytes
	MaxSessions int

	// Output sink
	Output         string // "local", "gcs" or "s3"
	OutputDir      string
	Bucket         string
	Prefix         string
	GCSCredentials string
	S3Region       string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio, // MCP clients speak stdio
		Host:        DefaultHost,
		Port:        DefaultPort,
		Directory:   currentDir,
		Scale:       float64(geometry.DefaultScale),
		MinRect:     10,
		MaxFileSize: DefaultMaxFileSize,
		MaxSessions: DefaultMaxSessions,
		Output:      output.KindLocal,
		Version:     "1.0.0",
		ServerName:  "mcp-pdf-forms",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses os.Args and the environment.
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a configuration from args, PDF_FORMS_* environment variables
// and an optional .env file, in that order of precedence.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return nil, ErrVersionRequested
		}
	}

	fs := pflag.NewFlagSet("mcp-pdf-forms", pflag.ContinueOnError)
	defineFlags(fs, cfg)
	fs.Usage = func() { usage(os.Stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	envFile, _ := fs.GetString("env-file")
	if err := loadEnvFile(envFile, fs.Changed("env-file")); err != nil {
		return nil, err
	}

	v := viper.New()
	setupViper(v, cfg)
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	populate(v, cfg)

	if abs, err := filepath.Abs(cfg.Directory); err == nil {
		cfg.Directory = abs
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.Directory, DefaultOutputSubdir)
	} else if !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(cfg.Directory, cfg.OutputDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadEnvFile reads KEY=value pairs without overriding the real environment.
// A missing default file is fine; a missing explicit one is not.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("cannot load env file %s: %w", path, err)
	}
	return nil
}

func setupViper(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.Directory)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("max-sessions", cfg.MaxSessions)
	v.SetDefault("scale", cfg.Scale)
	v.SetDefault("min-rect", cfg.MinRect)
	v.SetDefault("output", cfg.Output)
}

func defineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.Directory, "Working directory for PDFs, templates and images")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Int("max-sessions", cfg.MaxSessions, "Maximum number of open designer and filler sessions")
	fs.Float64("scale", cfg.Scale, "Render scale of the page canvas")
	fs.Float64("min-rect", cfg.MinRect, "Smallest drawn field width or height in canvas pixels")
	fs.String("output", cfg.Output, "Output sink: local, gcs or s3")
	fs.String("output-dir", "", "Directory for exported files (local output, defaults to <dir>/out)")
	fs.String("bucket", "", "Bucket name (gcs and s3 output)")
	fs.String("prefix", "", "Object key prefix (gcs and s3 output)")
	fs.String("gcs-credentials", "", "Service account JSON file (gcs output)")
	fs.String("s3-region", "", "AWS region (s3 output)")
	fs.String("env-file", DefaultEnvFile, "File of KEY=value pairs loaded into the environment")
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage of %s:\n", os.Args[0])
	fmt.Fprintf(w, "\nMCP PDF Forms - design field templates over PDFs and fill them in\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s                                         # stdio mode, current directory (default)\n", os.Args[0])
	fmt.Fprintf(w, "  %s --dir=/path/to/forms                    # stdio mode with custom directory\n", os.Args[0])
	fmt.Fprintf(w, "  %s --mode=server --port=8081               # HTTP API\n", os.Args[0])
	fmt.Fprintf(w, "  %s --output=gcs --bucket=filled-forms      # store exports in Cloud Storage\n", os.Args[0])
	fmt.Fprintf(w, "\nEvery option can also be set as %s_<OPTION>, e.g. %s_LOG_LEVEL=debug.\n", EnvPrefix, EnvPrefix)
}

func populate(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.Directory = v.GetString("dir")
	cfg.LogLevel = v.GetString("log-level")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.MaxSessions = v.GetInt("max-sessions")
	cfg.Scale = v.GetFloat64("scale")
	cfg.MinRect = v.GetFloat64("min-rect")
	cfg.Output = v.GetString("output")
	cfg.OutputDir = v.GetString("output-dir")
	cfg.Bucket = v.GetString("bucket")
	cfg.Prefix = v.GetString("prefix")
	cfg.GCSCredentials = v.GetString("gcs-credentials")
	cfg.S3Region = v.GetString("s3-region")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters in server mode
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("working directory cannot be empty")
	}
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create working directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access working directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxSessions <= 0 {
		return errors.New("maximum sessions must be positive")
	}
	if err := geometry.Scale(c.Scale).Validate(); err != nil {
		return err
	}
	if c.MinRect < 0 {
		return errors.New("minimum rectangle size cannot be negative")
	}

	switch c.Output {
	case output.KindLocal:
	case output.KindGCS, output.KindS3:
		if c.Bucket == "" {
			return fmt.Errorf("%s output requires a bucket", c.Output)
		}
	default:
		return fmt.Errorf("invalid output: %s (must be one of: local, gcs, s3)", c.Output)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// OutputOptions selects the export sink. Cloud credentials come from the
// environment the SDKs read themselves.
func (c *Config) OutputOptions() output.Options {
	return output.Options{
		Kind:           c.Output,
		Dir:            c.OutputDir,
		Bucket:         c.Bucket,
		Prefix:         c.Prefix,
		GCSCredentials: c.GCSCredentials,
		S3Region:       c.S3Region,
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, Output: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.Directory, c.Output, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
