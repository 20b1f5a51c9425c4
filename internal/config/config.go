package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. FLEETCTL_REGION.
const EnvPrefix = "FLEETCTL_"

// Config holds operator settings. It is built once at startup and passed by
// pointer to every component that needs it.
type Config struct {
	Region     string `yaml:"region" env:"REGION"`
	AWSProfile string `yaml:"aws_profile" env:"AWS_PROFILE"`
	// Endpoint overrides the fleet service endpoint (for a local test service).
	Endpoint        string `yaml:"endpoint,omitempty" env:"ENDPOINT" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"-" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"SECRET_ACCESS_KEY"`

	UseCustomCIDR bool   `yaml:"use_custom_cidr" env:"USE_CUSTOM_CIDR"`
	CustomCIDR    string `yaml:"custom_cidr" env:"CUSTOM_CIDR" validate:"omitempty,cidrv4"`

	EnableDebugPort bool `yaml:"enable_debug_port" env:"ENABLE_DEBUG_PORT"`
	DebugPort       int  `yaml:"debug_port" env:"DEBUG_PORT" validate:"min=1,max=65535"`

	ShowDestructiveControls bool `yaml:"show_destructive_controls" env:"SHOW_DESTRUCTIVE_CONTROLS"`

	AddressLookupURL string        `yaml:"address_lookup_url" env:"ADDRESS_LOOKUP_URL" validate:"required,url"`
	CallTimeout      time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT" validate:"gt=0"`

	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT" validate:"omitempty,oneof=console json"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	JournalPath string `yaml:"journal_path,omitempty" env:"JOURNAL_PATH"`

	SSHClient string `yaml:"ssh_client,omitempty" env:"SSH_CLIENT"`
	RDPClient string `yaml:"rdp_client" env:"RDP_CLIENT"`
}

// Default returns the settings used when no file or override is present.
func Default() *Config {
	return &Config{
		Region:           "us-east-1",
		CustomCIDR:       "0.0.0.0/0",
		DebugPort:        2345,
		AddressLookupURL: "https://checkip.amazonaws.com",
		CallTimeout:      30 * time.Second,
		LogLevel:         "info",
		LogFormat:        "console",
		RDPClient:        "xfreerdp",
	}
}

// Load reads the settings file at path (a missing file is not an error) and
// applies FLEETCTL_* environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	return cfg, nil
}

// Save writes the settings file, creating its directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	header := []byte("# fleetctl settings\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Set assigns a single setting by its file key, e.g. Set("debug_port", "2345").
func (c *Config) Set(key, value string) error {
	node := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: key},
			{Kind: yaml.ScalarNode, Value: value},
		},
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	if c.UseCustomCIDR && c.CustomCIDR == "" {
		problems = append(problems, "custom_cidr is required when use_custom_cidr is set")
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "cidrv4":
		return fmt.Sprintf("%s must be an IPv4 CIDR such as 203.0.113.0/24", fe.Field())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and 65535", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be positive", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is not a valid %s", fe.Field(), fe.Tag())
	}
}
