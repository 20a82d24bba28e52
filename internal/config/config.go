// Package config provides configuration management for Heimdex Studio.
// Configuration is read from an optional studio.toml in the data directory,
// then overridden by environment variables (a .env file is honoured).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	// Default values
	DefaultPort          = 8787
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".heimdex-studio"
	DefaultDebounceMs    = 1500
	DefaultAspectRatio   = "9:16"
	DefaultRenderTimeout = 600 // seconds

	// Environment variable names
	EnvPort            = "STUDIO_PORT"
	EnvLogLevel        = "STUDIO_LOG_LEVEL"
	EnvDataDir         = "STUDIO_DATA_DIR"
	EnvConfigFile      = "STUDIO_CONFIG"
	EnvRendererURL     = "STUDIO_RENDERER_URL"
	EnvRendererToken   = "STUDIO_RENDERER_TOKEN"
	EnvDistributionURL = "STUDIO_DISTRIBUTION_URL"
	EnvDebounceMs      = "STUDIO_DEBOUNCE_MS"
	EnvAspectRatio     = "STUDIO_ASPECT_RATIO"
	EnvHeadless        = "STUDIO_HEADLESS"

	// Database filename
	DBFilename = "studio.db"

	// ConfigFilename is looked up in the data directory.
	ConfigFilename = "studio.toml"

	// LockFilename guards the data directory against a second instance.
	LockFilename = "studio.lock"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	LockPath() string
	RendererURL() string
	RendererToken() string
	RenderTimeout() time.Duration
	DistributionURL() string
	Debounce() time.Duration
	AspectRatio() string
	Headless() bool
}

// File mirrors studio.toml.
type File struct {
	Server       Server       `toml:"server"`
	Renderer     Renderer     `toml:"renderer"`
	Distribution Distribution `toml:"distribution"`
	Assembly     Assembly     `toml:"assembly"`
	UI           UI           `toml:"ui"`
}

type Server struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type Renderer struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Distribution struct {
	URL string `toml:"url"`
}

// Assembly controls automatic assembly of approved segments.
type Assembly struct {
	DebounceMs  int    `toml:"debounce_ms"`
	AspectRatio string `toml:"aspect_ratio"`
}

type UI struct {
	Headless bool `toml:"headless"`
}

// EnvConfig is the resolved configuration.
type EnvConfig struct {
	dataDir    string
	configPath string
	fromFile   bool
	file       File
}

// New loads .env, the optional TOML file and environment overrides.
func New() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &EnvConfig{
		dataDir: defaultDataDir(),
		file:    Default(),
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.configPath = filepath.Join(cfg.dataDir, ConfigFilename)
	if p := os.Getenv(EnvConfigFile); p != "" {
		cfg.configPath = p
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.file.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() File {
	return File{
		Server: Server{
			Port:     DefaultPort,
			LogLevel: DefaultLogLevel,
		},
		Renderer: Renderer{TimeoutSeconds: DefaultRenderTimeout},
		Assembly: Assembly{
			DebounceMs:  DefaultDebounceMs,
			AspectRatio: DefaultAspectRatio,
		},
	}
}

// SampleConfig returns a commented studio.toml.
func SampleConfig() string {
	return sampleConfig
}

func (c *EnvConfig) loadFile() error {
	f, err := os.Open(c.configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&c.file); err != nil {
		return fmt.Errorf("parse config %s: %w", c.configPath, err)
	}
	c.fromFile = true
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.file.Server.Port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.file.Server.LogLevel = ll
	}
	if u := os.Getenv(EnvRendererURL); u != "" {
		c.file.Renderer.URL = u
	}
	if t := os.Getenv(EnvRendererToken); t != "" {
		c.file.Renderer.Token = t
	}
	if u := os.Getenv(EnvDistributionURL); u != "" {
		c.file.Distribution.URL = u
	}
	if d := os.Getenv(EnvDebounceMs); d != "" {
		ms, err := strconv.Atoi(d)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebounceMs, err)
		}
		c.file.Assembly.DebounceMs = ms
	}
	if ar := os.Getenv(EnvAspectRatio); ar != "" {
		c.file.Assembly.AspectRatio = ar
	}
	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.file.UI.Headless = headless
	}
	return nil
}

// Validate checks ranges and formats.
func (f File) Validate() error {
	if f.Server.Port < 1 || f.Server.Port > 65535 {
		return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	if f.Assembly.DebounceMs < 0 {
		return fmt.Errorf("invalid %s: must not be negative", EnvDebounceMs)
	}
	if !validAspectRatio(f.Assembly.AspectRatio) {
		return fmt.Errorf("invalid %s: %q is not W:H", EnvAspectRatio, f.Assembly.AspectRatio)
	}
	for _, u := range []string{f.Renderer.URL, f.Distribution.URL} {
		if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("invalid service url %q: must be http(s)", u)
		}
	}
	return nil
}

func validAspectRatio(s string) bool {
	w, h, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	wn, err1 := strconv.Atoi(w)
	hn, err2 := strconv.Atoi(h)
	return err1 == nil && err2 == nil && wn > 0 && hn > 0
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.file.Server.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.file.Server.LogLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

func (c *EnvConfig) LockPath() string {
	return filepath.Join(c.dataDir, LockFilename)
}

// ConfigPath returns where the TOML file was looked up, and whether it existed.
func (c *EnvConfig) ConfigPath() (string, bool) {
	return c.configPath, c.fromFile
}

func (c *EnvConfig) RendererURL() string {
	return c.file.Renderer.URL
}

func (c *EnvConfig) RendererToken() string {
	return c.file.Renderer.Token
}

func (c *EnvConfig) RenderTimeout() time.Duration {
	return time.Duration(c.file.Renderer.TimeoutSeconds) * time.Second
}

func (c *EnvConfig) DistributionURL() string {
	return c.file.Distribution.URL
}

// Debounce is the quiet period before automatic assembly.
func (c *EnvConfig) Debounce() time.Duration {
	return time.Duration(c.file.Assembly.DebounceMs) * time.Millisecond
}

func (c *EnvConfig) AspectRatio() string {
	return c.file.Assembly.AspectRatio
}

func (c *EnvConfig) Headless() bool {
	return c.file.UI.Headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
