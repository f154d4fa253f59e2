package gateway

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
)

// EnvPrefix is the prefix of every environment variable read by LoadOption.
const EnvPrefix = "GATEWAY"

type GatewayService struct {
	Name             string   `yaml:"name"`
	Host             string   `yaml:"host"`
	SubscriptionHost string   `yaml:"subscription_host,omitempty"`
	SchemaFiles      []string `yaml:"schema_files,omitempty"`
}

type GatewayOption struct {
	Endpoint                    string               `yaml:"endpoint"`
	ServiceName                 string               `yaml:"service_name"`
	Port                        int                  `yaml:"port"`
	TimeoutDuration             string               `yaml:"timeout_duration"`
	EnableHangOverRequestHeader bool                 `yaml:"enable_hang_over_request_header"`
	EnableSubscriptions         bool                 `yaml:"enable_subscriptions"`
	EnableQueryBatching         bool                 `yaml:"enable_query_batching"`
	PollInterval                string               `yaml:"poll_interval,omitempty"`
	LogLevel                    string               `yaml:"log_level"`
	Retry                       RetryOption          `yaml:"retry"`
	Services                    []GatewayService     `yaml:"services"`
	Opentelemetry               OpentelemetrySetting `yaml:"opentelemetry"`
}

type OpentelemetrySetting struct {
	TracingSetting OpentelemetryTracingSetting `yaml:"tracing"`
}

type OpentelemetryTracingSetting struct {
	Enable bool `yaml:"enable"`
}

// environment holds the overrides read from GATEWAY_* variables. Pointer fields stay nil
// when the variable is unset.
type environment struct {
	Port                *int                 `envconfig:"PORT"`
	Endpoint            string               `envconfig:"ENDPOINT"`
	Subgraphs           federation.SubGraphs `envconfig:"SUBGRAPHS"`
	EnableSubscriptions *bool                `envconfig:"ENABLE_SUBSCRIPTIONS"`
	PollInterval        string               `envconfig:"POLL_INTERVAL"`
	LogLevel            string               `envconfig:"LOG_LEVEL"`
	EnableTracing       *bool                `envconfig:"OTEL_TRACING"`
}

// DefaultGatewayOption returns the integration fixture: four subgraphs behind a gateway
// listening on port 3000.
func DefaultGatewayOption() GatewayOption {
	subGraphs := federation.DefaultSubGraphs()
	services := make([]GatewayService, 0, len(subGraphs))
	for _, sg := range subGraphs {
		services = append(services, GatewayService{Name: sg.Name, Host: sg.URL})
	}

	return GatewayOption{
		Endpoint:                    "/graphql",
		ServiceName:                 "federation-gateway",
		Port:                        3000,
		TimeoutDuration:             "10s",
		EnableHangOverRequestHeader: true,
		EnableSubscriptions:         false,
		EnableQueryBatching:         true,
		LogLevel:                    "info",
		Retry: RetryOption{
			Attempts: 3,
			Timeout:  "5s",
		},
		Services: services,
	}
}

// LoadOption layers the yaml file at path (if any) and the environment on top of
// DefaultGatewayOption.
func LoadOption(path string) (GatewayOption, error) {
	opt := DefaultGatewayOption()

	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return opt, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(src, &opt); err != nil {
			return opt, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var env environment
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return opt, fmt.Errorf("read environment: %w", err)
	}
	env.apply(&opt)

	return opt, opt.Validate()
}

func (e environment) apply(opt *GatewayOption) {
	if e.Port != nil {
		opt.Port = *e.Port
	}
	if e.Endpoint != "" {
		opt.Endpoint = e.Endpoint
	}
	if len(e.Subgraphs) > 0 {
		opt.Services = make([]GatewayService, 0, len(e.Subgraphs))
		for _, sg := range e.Subgraphs {
			opt.Services = append(opt.Services, GatewayService{Name: sg.Name, Host: sg.URL})
		}
	}
	if e.EnableSubscriptions != nil {
		opt.EnableSubscriptions = *e.EnableSubscriptions
	}
	if e.PollInterval != "" {
		opt.PollInterval = e.PollInterval
	}
	if e.LogLevel != "" {
		opt.LogLevel = e.LogLevel
	}
	if e.EnableTracing != nil {
		opt.Opentelemetry.TracingSetting.Enable = *e.EnableTracing
	}
}

// Marshal renders the option as yaml, the format read by LoadOption.
func (o GatewayOption) Marshal() ([]byte, error) {
	return yaml.Marshal(o)
}

func (o GatewayOption) SubGraphs() federation.SubGraphs {
	out := make(federation.SubGraphs, 0, len(o.Services))
	for _, s := range o.Services {
		out = append(out, federation.SubGraph{
			Name:            s.Name,
			URL:             s.Host,
			SubscriptionURL: s.SubscriptionHost,
		})
	}
	return out
}

// IsStatic reports whether every service ships its SDL as schema files, in which case
// no introspection is needed.
func (o GatewayOption) IsStatic() bool {
	if len(o.Services) == 0 {
		return false
	}
	for _, s := range o.Services {
		if len(s.SchemaFiles) == 0 {
			return false
		}
	}
	return true
}

func (o GatewayOption) Timeout() time.Duration {
	return parseDurationOr(o.TimeoutDuration, 10*time.Second)
}

// PollEvery returns the schema polling period; zero disables polling.
func (o GatewayOption) PollEvery() time.Duration {
	return parseDurationOr(o.PollInterval, 0)
}

func (o GatewayOption) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("port %d out of range", o.Port)
	}
	if !strings.HasPrefix(o.Endpoint, "/") {
		return fmt.Errorf("endpoint %q must start with /", o.Endpoint)
	}
	for _, d := range []struct{ name, value string }{
		{"timeout_duration", o.TimeoutDuration},
		{"poll_interval", o.PollInterval},
		{"retry.timeout", o.Retry.Timeout},
		{"retry.interval", o.Retry.Interval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return o.SubGraphs().Validate()
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
