package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/netwatch/backend/internal/netstate"
	"gopkg.in/yaml.v3"
)

// Signal source names accepted in monitor.signal.
const (
	SignalAuto    = "auto"
	SignalNetlink = "netlink"
	SignalPoll    = "poll"
	SignalMock    = "mock"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Monitor MonitorConfig `yaml:"monitor"`
	Mock    MockConfig    `yaml:"mock"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"`
}

type MonitorConfig struct {
	Signal            string          `yaml:"signal"`
	PollInterval      time.Duration   `yaml:"poll_interval"`
	SuppressUnchanged bool            `yaml:"suppress_unchanged"`
	FailureThreshold  int             `yaml:"failure_threshold"`
	Interfaces        InterfaceFilter `yaml:"interfaces"`
}

// InterfaceFilter selects which network interfaces are considered when
// looking for the active connection. Patterns use path.Match syntax.
type InterfaceFilter struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Allows reports whether the interface name passes the filter. An empty
// include list admits everything not excluded.
func (f InterfaceFilter) Allows(name string) bool {
	for _, pat := range f.Exclude {
		if ok, _ := path.Match(pat, name); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pat := range f.Include {
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
	}
	return false
}

type MockConfig struct {
	Interval  time.Duration      `yaml:"interval"`
	Loop      bool               `yaml:"loop"`
	Operator  string             `yaml:"operator"`
	PhoneType netstate.PhoneType `yaml:"phone_type"`
	Script    []MockStep         `yaml:"script"`
}

// MockStep is one scripted connectivity state. A step with Absent set
// reports no active connection.
type MockStep struct {
	Absent    bool               `yaml:"absent"`
	Connected bool               `yaml:"connected"`
	Medium    netstate.Medium    `yaml:"medium"`
	Radio     netstate.RadioTech `yaml:"radio"`
	Interface string             `yaml:"interface"`
	Fail      bool               `yaml:"fail"` // query returns an error
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
		Monitor: MonitorConfig{
			Signal:           SignalAuto,
			PollInterval:     2 * time.Second,
			FailureThreshold: 3,
			Interfaces: InterfaceFilter{
				Exclude: []string{"lo", "docker*", "veth*", "br-*", "virbr*"},
			},
		},
		Mock: MockConfig{
			Interval:  3 * time.Second,
			Loop:      true,
			Operator:  "Mock Mobile",
			PhoneType: netstate.PhoneGSM,
			Script: []MockStep{
				{Connected: true, Medium: netstate.MediumWifi, Interface: "wlan0"},
				{Connected: false, Medium: netstate.MediumWifi, Interface: "wlan0"},
				{Connected: true, Medium: netstate.MediumMobile, Radio: netstate.RadioLTE, Interface: "wwan0"},
				{Connected: true, Medium: netstate.MediumMobile, Radio: netstate.RadioHSPA, Interface: "wwan0"},
				{Connected: true, Medium: netstate.MediumMobile, Radio: netstate.RadioEDGE, Interface: "wwan0"},
				{Absent: true},
				{Connected: true, Medium: netstate.MediumOther, Interface: "eth0"},
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	switch c.Monitor.Signal {
	case SignalAuto, SignalNetlink, SignalPoll, SignalMock:
	default:
		return fmt.Errorf("monitor.signal: unknown source %q", c.Monitor.Signal)
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive, got %v", c.Monitor.PollInterval)
	}
	if c.Monitor.FailureThreshold < 1 {
		return fmt.Errorf("monitor.failure_threshold must be at least 1, got %d", c.Monitor.FailureThreshold)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if err := checkPatterns("monitor.interfaces.include", c.Monitor.Interfaces.Include); err != nil {
		return err
	}
	if err := checkPatterns("monitor.interfaces.exclude", c.Monitor.Interfaces.Exclude); err != nil {
		return err
	}
	if c.Monitor.Signal == SignalMock {
		if len(c.Mock.Script) == 0 {
			return errors.New("mock.script must not be empty")
		}
		if c.Mock.Interval <= 0 {
			return fmt.Errorf("mock.interval must be positive, got %v", c.Mock.Interval)
		}
	}
	return nil
}

// checkPatterns rejects globs that path.Match cannot parse, since Allows
// would otherwise treat them as never matching.
func checkPatterns(field string, patterns []string) error {
	for _, pat := range patterns {
		if _, err := path.Match(pat, ""); err != nil {
			return fmt.Errorf("%s: pattern %q: %w", field, pat, err)
		}
	}
	return nil
}

// Diff lists the settings that changed between old and new, for logging on
// reload. Server settings are reported but only take effect after restart.
func Diff(old, new *Config) []string {
	var changes []string
	if old.Server.Port != new.Server.Port || old.Server.Host != new.Server.Host {
		changes = append(changes, fmt.Sprintf("server address %s:%d -> %s:%d (restart required)",
			old.Server.Host, old.Server.Port, new.Server.Host, new.Server.Port))
	}
	if old.Server.AuthToken != new.Server.AuthToken {
		changes = append(changes, "server.auth_token changed (restart required)")
	}
	if old.Monitor.Signal != new.Monitor.Signal {
		changes = append(changes, fmt.Sprintf("monitor.signal %s -> %s", old.Monitor.Signal, new.Monitor.Signal))
	}
	if old.Monitor.PollInterval != new.Monitor.PollInterval {
		changes = append(changes, fmt.Sprintf("monitor.poll_interval %v -> %v", old.Monitor.PollInterval, new.Monitor.PollInterval))
	}
	if old.Monitor.SuppressUnchanged != new.Monitor.SuppressUnchanged {
		changes = append(changes, fmt.Sprintf("monitor.suppress_unchanged %t -> %t", old.Monitor.SuppressUnchanged, new.Monitor.SuppressUnchanged))
	}
	if old.Monitor.FailureThreshold != new.Monitor.FailureThreshold {
		changes = append(changes, fmt.Sprintf("monitor.failure_threshold %d -> %d", old.Monitor.FailureThreshold, new.Monitor.FailureThreshold))
	}
	if !equalStrings(old.Monitor.Interfaces.Include, new.Monitor.Interfaces.Include) ||
		!equalStrings(old.Monitor.Interfaces.Exclude, new.Monitor.Interfaces.Exclude) {
		changes = append(changes, "monitor.interfaces changed")
	}
	if old.Mock.Interval != new.Mock.Interval || len(old.Mock.Script) != len(new.Mock.Script) {
		changes = append(changes, "mock settings changed")
	}
	return changes
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
