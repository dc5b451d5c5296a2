// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Detector  DetectorConfig  `mapstructure:"detector" yaml:"detector"`
	Grounding GroundingConfig `mapstructure:"grounding" yaml:"grounding"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// StreamPacing is the minimum gap between streamed records, preventing
	// client-side coalescing of push events.
	StreamPacing    time.Duration `mapstructure:"stream_pacing" yaml:"stream_pacing"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrowserConfig configures the Chromium process and the controlled page.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	ScreenWidth     int      `mapstructure:"screen_width" yaml:"screen_width"`
	ScreenHeight    int      `mapstructure:"screen_height" yaml:"screen_height"`
	InitialURL      string   `mapstructure:"initial_url" yaml:"initial_url"`
	SearchEngineURL string   `mapstructure:"search_engine_url" yaml:"search_engine_url"`
	HighlightMouse  bool     `mapstructure:"highlight_mouse" yaml:"highlight_mouse"`
	UserDataDir     string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args            []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig holds page-settling and navigation timing knobs.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// PostLoadWait is the fixed delay added after the load-state signal to
	// cover late rendering.
	PostLoadWait  time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
}

// DetectorConfig points at the UI element parsing service.
type DetectorConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// GroundingConfig selects the vision model used for coordinate resolution.
type GroundingConfig struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

// AgentConfig configures the reference turn runner and the virtual
// coordinate space the calling model reasons in.
type AgentConfig struct {
	AppName  string `mapstructure:"app_name" yaml:"app_name"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	MaxSteps int    `mapstructure:"max_steps" yaml:"max_steps"`
	// Toolset selects how pointer targets are expressed: "grounded" tools
	// take element descriptions, "coordinates" tools take virtual-screen
	// coordinates.
	Toolset             string `mapstructure:"toolset" yaml:"toolset"`
	VirtualScreenWidth  int    `mapstructure:"virtual_screen_width" yaml:"virtual_screen_width"`
	VirtualScreenHeight int    `mapstructure:"virtual_screen_height" yaml:"virtual_screen_height"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gazer")
	v.SetDefault("logger.log_file", "gazer.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.stream_pacing", "10ms")
	v.SetDefault("server.shutdown_timeout", "30s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.screen_width", 1440)
	v.SetDefault("browser.screen_height", 900)
	v.SetDefault("browser.initial_url", "https://www.google.com")
	v.SetDefault("browser.search_engine_url", "https://www.google.com")
	v.SetDefault("browser.highlight_mouse", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.post_load_wait", "500ms")
	v.SetDefault("network.settle_timeout", "30s")

	// -- Detector --
	v.SetDefault("detector.url", "http://127.0.0.1:8000/parse/")
	v.SetDefault("detector.timeout", "40s")

	// -- Grounding --
	v.SetDefault("grounding.model", "gemini-2.5-flash")
	v.SetDefault("grounding.temperature", 0.0)

	// -- Agent --
	v.SetDefault("agent.app_name", "gazer")
	v.SetDefault("agent.model", "gemini-2.5-flash")
	v.SetDefault("agent.max_steps", 25)
	v.SetDefault("agent.toolset", "grounded")
	v.SetDefault("agent.virtual_screen_width", 1000)
	v.SetDefault("agent.virtual_screen_height", 1000)
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance that has already read file and flag sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment.
	v.SetEnvPrefix("GAZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("grounding.api_key", "GAZER_GROUNDING_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("agent.api_key", "GAZER_AGENT_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.ScreenWidth <= 0 || c.Browser.ScreenHeight <= 0 {
		return fmt.Errorf("browser.screen_width and browser.screen_height must be positive")
	}
	if c.Agent.VirtualScreenWidth <= 0 || c.Agent.VirtualScreenHeight <= 0 {
		return fmt.Errorf("agent.virtual_screen_width and agent.virtual_screen_height must be positive")
	}
	if c.Detector.URL == "" {
		return fmt.Errorf("detector.url is a required configuration field")
	}
	if c.Detector.Timeout <= 0 {
		return fmt.Errorf("detector.timeout must be a positive duration")
	}
	if c.Grounding.Model == "" {
		return fmt.Errorf("grounding.model is a required configuration field")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be greater than 0")
	}
	if c.Agent.Toolset != "grounded" && c.Agent.Toolset != "coordinates" {
		return fmt.Errorf("agent.toolset must be \"grounded\" or \"coordinates\", got %q", c.Agent.Toolset)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port")
	}
	return nil
}
