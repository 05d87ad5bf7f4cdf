package treemirror

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/viant/treemirror/logging"
	"github.com/viant/treemirror/service/messaging/memory"
	"github.com/viant/treemirror/service/mirror"
	"github.com/viant/treemirror/service/scheduler"
	"github.com/viant/treemirror/tracing"
	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreBadger = "badger"
)

const envPrefix = "TREEMIRROR"

var validate = validator.New()

// Config is a serialisable representation of the service configuration.
type Config struct {
	Log       logging.Config   `json:"log" yaml:"log" mapstructure:"log"`
	Pool      PoolConfig       `json:"pool" yaml:"pool" mapstructure:"pool"`
	Tree      mirror.Config    `json:"tree" yaml:"tree" mapstructure:"tree"`
	Scheduler scheduler.Config `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
	Store     StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Events    EventsConfig     `json:"events" yaml:"events" mapstructure:"events"`
	Metrics   MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Tracing   tracing.Config   `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	Install   InstallConfig    `json:"install" yaml:"install" mapstructure:"install"`
}

type PoolConfig struct {
	// TickInterval is the pulse period committing staged pool changes.
	TickInterval time.Duration `json:"tickInterval" yaml:"tickInterval" mapstructure:"tickInterval" validate:"gt=0"`
	// Bulk is the number of objects constructed when a free list runs dry.
	Bulk int `json:"bulk" yaml:"bulk" mapstructure:"bulk" validate:"gte=1"`
}

// StoreConfig selects where the root handle is persisted.
type StoreConfig struct {
	Type string `json:"type" yaml:"type" mapstructure:"type" validate:"oneof=memory fs badger"`
	// Path is a folder URL for fs and a directory for badger.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path" validate:"required_unless=Type memory"`
}

// EventsConfig tunes the in-memory event queues.
type EventsConfig struct {
	Buffer int `json:"buffer" yaml:"buffer" mapstructure:"buffer" validate:"gte=1"`
	// MaxRetries bounds redelivery of an event whose handler panicked.
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"maxRetries" validate:"gte=0"`
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay" mapstructure:"retryDelay" validate:"gte=0"`
	DeadLetter bool          `json:"deadLetter" yaml:"deadLetter" mapstructure:"deadLetter"`
	// DropOldest evicts the oldest event instead of blocking the publisher
	// when the buffer is full. Sweeps publish under the tree lock.
	DropOldest bool `json:"dropOldest" yaml:"dropOldest" mapstructure:"dropOldest"`
}

func (c EventsConfig) queueConfig() memory.Config {
	return memory.Config{
		MaxRetries:  c.MaxRetries,
		RetryDelay:  c.RetryDelay,
		DeadLetter:  c.DeadLetter,
		QueueBuffer: c.Buffer,
		DropOldest:  c.DropOldest,
	}
}

type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Address serves /metrics when set, e.g. ":9090".
	Address string `json:"address,omitempty" yaml:"address,omitempty" mapstructure:"address"`
}

type InstallConfig struct {
	// ArchiveDir is the tree folder downloads are written to.
	ArchiveDir string `json:"archiveDir" yaml:"archiveDir" mapstructure:"archiveDir" validate:"required,startswith=/"`
	// Timeout bounds a single HTTP transfer; zero disables it.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:       logging.Config{Level: "info", Format: "console"},
		Pool:      PoolConfig{TickInterval: 50 * time.Millisecond, Bulk: 1},
		Tree:      *mirror.DefaultConfig(),
		Scheduler: *scheduler.DefaultConfig(),
		Store:     StoreConfig{Type: StoreMemory},
		Events:    EventsConfig{Buffer: 100, MaxRetries: 3, RetryDelay: 100 * time.Millisecond, DeadLetter: true, DropOldest: true},
		Metrics:   MetricsConfig{Enabled: true},
		Install:   InstallConfig{ArchiveDir: "/downloads", Timeout: 10 * time.Minute},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config was nil")
	}
	if err := validate.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			var messages []string
			for _, e := range errs {
				messages = append(messages, fmt.Sprintf("%v: failed %v", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %v", strings.Join(messages, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadConfig reads configPath when set, then TREEMIRROR_ prefixed
// environment variables (TREEMIRROR_TREE_SWEEPINTERVAL=5s), over the
// defaults. The result is validated.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that environment variables can
// override keys absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("pool.tickInterval", cfg.Pool.TickInterval)
	v.SetDefault("pool.bulk", cfg.Pool.Bulk)
	v.SetDefault("tree.sweepInterval", cfg.Tree.SweepInterval)
	v.SetDefault("tree.marker", cfg.Tree.Marker)
	v.SetDefault("tree.ignoreSuffixes", cfg.Tree.IgnoreSuffixes)
	v.SetDefault("tree.disableSuffix", cfg.Tree.DisableSuffix)
	v.SetDefault("tree.scheduled", cfg.Tree.Scheduled)
	v.SetDefault("scheduler.maxConcurrent", cfg.Scheduler.MaxConcurrent)
	v.SetDefault("scheduler.history", cfg.Scheduler.History)
	v.SetDefault("store.type", cfg.Store.Type)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("events.buffer", cfg.Events.Buffer)
	v.SetDefault("events.maxRetries", cfg.Events.MaxRetries)
	v.SetDefault("events.retryDelay", cfg.Events.RetryDelay)
	v.SetDefault("events.deadLetter", cfg.Events.DeadLetter)
	v.SetDefault("events.dropOldest", cfg.Events.DropOldest)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.address", cfg.Metrics.Address)
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.output", cfg.Tracing.Output)
	v.SetDefault("install.archiveDir", cfg.Install.ArchiveDir)
	v.SetDefault("install.timeout", cfg.Install.Timeout)
}
