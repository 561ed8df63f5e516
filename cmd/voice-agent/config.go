package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/bridge"
	"github.com/enesunal-m/voiceagent/business"
)

// fileConfig is the YAML configuration file. Every field is optional.
type fileConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Protocol  string   `yaml:"protocol"`
	LogLevel  string   `yaml:"log_level"`
	Industry  string   `yaml:"industry"`
	Voice     string   `yaml:"voice"`
	DocTopics []string `yaml:"doc_topics"`
	DocsDir   string   `yaml:"docs_dir"`
	NoColor   bool     `yaml:"no_color"`

	Agent    agentFile    `yaml:"agent"`
	Timeouts timeoutsFile `yaml:"timeouts"`
	Bridge   bridgeFile   `yaml:"bridge"`
	Business businessFile `yaml:"business"`
}

type agentFile struct {
	Language      string   `yaml:"language"`
	ListenModel   string   `yaml:"listen_model"`
	ThinkProvider string   `yaml:"think_provider"`
	ThinkModel    string   `yaml:"think_model"`
	Temperature   *float64 `yaml:"temperature"`
}

type timeoutsFile struct {
	Dial            time.Duration `yaml:"dial"`
	Send            time.Duration `yaml:"send"`
	KeepAlive       time.Duration `yaml:"keepalive"`
	Function        time.Duration `yaml:"function"`
	FarewellSettle  time.Duration `yaml:"farewell_settle"`
	FarewellTimeout time.Duration `yaml:"farewell_timeout"`
	Close           time.Duration `yaml:"close"`
}

type bridgeFile struct {
	Addr           string            `yaml:"addr"`
	Static         string            `yaml:"static"`
	RemoteOutput   bool              `yaml:"remote_output"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	OIDC           bridge.AuthConfig `yaml:"oidc"`
}

type businessFile struct {
	Dir   string         `yaml:"dir"`
	Seed  uint64         `yaml:"seed"`
	Delay time.Duration  `yaml:"delay"`
	Sizes business.Sizes `yaml:"sizes"`
}

// loadFile reads path. An empty path yields the zero configuration.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.UnmarshalWithOptions(data, &fc, yaml.DisallowUnknownField()); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// sessionConfig layers the file over ConfigFromEnv. The environment wins
// for the endpoint so deployments can redirect without editing files.
func (fc fileConfig) sessionConfig() voiceagent.Config {
	cfg := voiceagent.ConfigFromEnv()
	if fc.Endpoint != "" && os.Getenv("VOICE_AGENT_URL") == "" {
		cfg.Endpoint = fc.Endpoint
	}
	if fc.Protocol != "" {
		cfg.Protocol = voiceagent.ParseProtocol(fc.Protocol)
		if cfg.Protocol == voiceagent.ProtocolLegacy && cfg.Endpoint == voiceagent.DefaultEndpoint {
			cfg.Endpoint = voiceagent.LegacyEndpoint
		}
	}

	a := &cfg.Agent
	setString(&a.Language, fc.Agent.Language)
	setString(&a.ListenModel, fc.Agent.ListenModel)
	setString(&a.ThinkProvider, fc.Agent.ThinkProvider)
	setString(&a.ThinkModel, fc.Agent.ThinkModel)
	if fc.Agent.Temperature != nil {
		a.Temperature = *fc.Agent.Temperature
	}

	t := fc.Timeouts
	setDuration(&cfg.DialTimeout, t.Dial)
	setDuration(&cfg.SendTimeout, t.Send)
	setDuration(&cfg.KeepAliveInterval, t.KeepAlive)
	setDuration(&cfg.FunctionTimeout, t.Function)
	setDuration(&cfg.FarewellSettle, t.FarewellSettle)
	setDuration(&cfg.FarewellTimeout, t.FarewellTimeout)
	setDuration(&cfg.CloseTimeout, t.Close)
	return cfg
}

func (fc fileConfig) businessOptions(log business.EventLogger) business.Options {
	opts := business.Options{
		Dir:   fc.Business.Dir,
		Seed:  fc.Business.Seed,
		Delay: fc.Business.Delay,
		Sizes: fc.Business.Sizes,
	}
	if log != nil {
		opts.Logger = business.NewLogger(log)
	}
	return opts
}

// color reports whether log lines are coloured. The flag, the file and
// NO_COLOR can each turn it off.
func (fc fileConfig) color(noColorFlag bool) bool {
	return !noColorFlag && !fc.NoColor && os.Getenv("NO_COLOR") == ""
}

// authConfig prefers the file's OIDC block and falls back to the environment.
func (fc fileConfig) authConfig() bridge.AuthConfig {
	if fc.Bridge.OIDC.Enabled() {
		return fc.Bridge.OIDC
	}
	return bridge.AuthConfigFromEnv()
}

func (fc fileConfig) allowedOrigins() []string {
	if len(fc.Bridge.AllowedOrigins) > 0 {
		return fc.Bridge.AllowedOrigins
	}
	return bridge.SplitCSV(os.Getenv("CORS_ALLOWED_ORIGINS"))
}

var errNoAPIKey = errors.New("DEEPGRAM_API_KEY is not set")

// requireCredential fails before any device or socket is touched.
func requireCredential(cfg voiceagent.Config) error {
	if err := voiceagent.ValidateConfig(cfg); err != nil {
		var cerr *voiceagent.ConfigError
		if errors.As(err, &cerr) && cerr.Field == "Credential" {
			return errNoAPIKey
		}
		return err
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
