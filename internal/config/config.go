package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	BackendHosted = "hosted"
	BackendLocal  = "local"
)

// MinResponsesAPIVersion is the first Azure OpenAI api-version serving the
// Responses API.
const MinResponsesAPIVersion = "2025-03-01-preview"

type Config struct {
	Model    ModelConfig               `toml:"model"`
	Project  ProjectConfig             `toml:"project"`
	Research ResearchConfig            `toml:"research"`
	Team     TeamConfig                `toml:"team"`
	Agents   map[string]*AgentConfig   `toml:"agent"`
	Gateway  GatewayConfig             `toml:"gateway"`
	Channels map[string]*ChannelConfig `toml:"channel"`
	DB       DBConfig                  `toml:"db"`
	Trace    TraceConfig               `toml:"trace"`
	Services ServicesConfig            `toml:"services"`
}

// ModelConfig points at an Azure OpenAI deployment. An empty Endpoint means
// BaseURL (or the public OpenAI API) is used instead.
type ModelConfig struct {
	Deployment string `toml:"deployment"`
	APIVersion string `toml:"api_version"`
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
}

type ProjectConfig struct {
	ConnectionString  string `toml:"connection_string"`
	BingConnection    string `toml:"bing_connection"`
	APIVersion        string `toml:"api_version"`
	ConnectionVersion string `toml:"connection_api_version"`
}

type ResearchConfig struct {
	Backend      string   `toml:"backend"`
	PollInterval   Duration `toml:"poll_interval"`
	Timeout        Duration `toml:"timeout"`
	CleanupTimeout Duration `toml:"cleanup_timeout"`
}

type TeamConfig struct {
	Stock       string `toml:"stock"`
	StopPhrase  string `toml:"stop_phrase"`
	MaxMessages int    `toml:"max_messages"`
}

// AgentConfig overrides or adds a team participant. Tools lists research
// topic names; empty means no tools.
type AgentConfig struct {
	SystemPrompt     string   `toml:"system_prompt"`
	Tools            []string `toml:"tools"`
	ReflectOnToolUse bool     `toml:"reflect_on_tool_use"`
	MaxToolRounds    int      `toml:"max_tool_rounds"`
	Order            int      `toml:"order"`
}

type GatewayConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

type ChannelConfig struct {
	Enabled  bool              `toml:"enabled"`
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type TraceConfig struct {
	Enabled     bool    `toml:"enabled"`
	Endpoint    string  `toml:"endpoint"`
	URLPath     string  `toml:"url_path"`
	APIKey      string  `toml:"api_key"`
	Insecure    bool    `toml:"insecure"`
	SampleRatio float64 `toml:"sample_ratio"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
}

// Duration decodes TOML strings such as "1s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Model: ModelConfig{
			APIVersion: "2025-04-01-preview",
		},
		Project: ProjectConfig{
			APIVersion:        "2024-12-01-preview",
			ConnectionVersion: "2024-07-01-preview",
		},
		Research: ResearchConfig{
			Backend:        BackendHosted,
			PollInterval:   Duration{time.Second},
			Timeout:        Duration{5 * time.Minute},
			CleanupTimeout: Duration{30 * time.Second},
		},
		Team: TeamConfig{
			Stock:       "tata motors",
			StopPhrase:  "Decision Made",
			MaxMessages: 15,
		},
		Gateway: GatewayConfig{
			Addr: ":8484",
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
	}
}

// Load reads .env, the TOML config file (if present) and environment
// overrides, in that order of increasing precedence.
func Load() (*Config, error) {
	return LoadFile(configPath())
}

func LoadFile(path string) (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Model.APIKey, "api_key")
	setString(&c.Model.Deployment, "MODEL_DEPLOYMENT_NAME")
	setString(&c.Model.APIVersion, "MODEL_API_VERSION")
	setString(&c.Model.Endpoint, "AZURE_ENDPOINT")
	setString(&c.Project.ConnectionString, "PROJECT_CONNECTION_STRING")
	setString(&c.Project.BingConnection, "BING_CONNECTION_NAME")
	setString(&c.Research.Backend, "STOCKTEAM_RESEARCH_BACKEND")
	setString(&c.Services.Brave.APIKey, "BRAVE_API_KEY")
	setString(&c.DB.Path, "STOCKTEAM_DB")

	if v := os.Getenv("STOCKTEAM_MAX_MESSAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOCKTEAM_MAX_MESSAGES: %w", err)
		}
		c.Team.MaxMessages = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Team.MaxMessages <= 0 {
		errs = append(errs, fmt.Errorf("team.max_messages must be positive, got %d", c.Team.MaxMessages))
	}
	if c.Team.StopPhrase == "" {
		errs = append(errs, errors.New("team.stop_phrase must not be empty"))
	}
	switch c.Research.Backend {
	case BackendHosted, BackendLocal:
	default:
		errs = append(errs, fmt.Errorf("research.backend must be %q or %q, got %q", BackendHosted, BackendLocal, c.Research.Backend))
	}
	if c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("trace.sample_ratio must be within [0, 1], got %g", c.Trace.SampleRatio))
	}
	if c.Model.Endpoint != "" && !servesResponses(c.Model.APIVersion) {
		errs = append(errs, fmt.Errorf("model.api_version %q does not serve the Responses API, need %s or later", c.Model.APIVersion, MinResponsesAPIVersion))
	}
	if c.Research.PollInterval.Duration <= 0 {
		errs = append(errs, errors.New("research.poll_interval must be positive"))
	}
	if c.Research.CleanupTimeout.Duration <= 0 {
		errs = append(errs, errors.New("research.cleanup_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// servesResponses compares the date part of an Azure api-version such as
// "2025-04-01-preview".
func servesResponses(version string) bool {
	if len(version) < len("2006-01-02") {
		return false
	}
	date := version[:len("2006-01-02")]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return false
	}
	return date >= MinResponsesAPIVersion[:len(date)]
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func configPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "stockteam", "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "stockteam", "stockteam.db")
}
