package config

import (
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Backend   BackendConfig   `yaml:"backend"`
	Logging   LoggingConfig   `yaml:"logging"`
	Injection InjectionConfig `yaml:"injection"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Symbols   SymbolsConfig   `yaml:"symbols"`
	Host      HostConfig      `yaml:"host"`
}

type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}
type BackendConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	Color  bool   `yaml:"color"`
}

// InjectionConfig controls how often stage installation is retried and when
// stage order is checked. Delays are in ticks. A negative RetryAttempts
// disables retries; a zero ReconcilePeriodTicks disables periodic checks.
type InjectionConfig struct {
	RetryAttempts        int   `yaml:"retry_attempts"`
	RetryDelayTicks      int64 `yaml:"retry_delay_ticks"`
	ReconcileDelayTicks  int64 `yaml:"reconcile_delay_ticks"`
	ReconcilePeriodTicks int64 `yaml:"reconcile_period_ticks"`
}

type SchedulerConfig struct {
	TickMillis int `yaml:"tick_ms"`
	Workers    int `yaml:"workers"`
}

// SymbolsConfig overrides host release detection and adds name renames on
// top of the built-in ones.
type SymbolsConfig struct {
	Version string              `yaml:"version"`
	Renames map[string][]string `yaml:"renames"`
}

type HostConfig struct {
	ProtocolVersion int  `yaml:"protocol_version"`
	Legacy          bool `yaml:"legacy"`
}

func (c ListenConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c BackendConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults fills every unset value.
func (c *Config) Defaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 25565
	}
	if c.Backend.Host == "" {
		c.Backend.Host = "127.0.0.1"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 25566
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Injection.RetryAttempts == 0 {
		c.Injection.RetryAttempts = 1
	}
	if c.Injection.RetryDelayTicks == 0 {
		c.Injection.RetryDelayTicks = 5
	}
	if c.Injection.ReconcileDelayTicks == 0 {
		c.Injection.ReconcileDelayTicks = 10
	}
	if c.Scheduler.TickMillis == 0 {
		c.Scheduler.TickMillis = 50
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 16
	}
}
