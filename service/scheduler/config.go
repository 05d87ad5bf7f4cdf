package scheduler

// Config controls the scheduler.
type Config struct {
	// MaxConcurrent bounds the number of running tasks.
	MaxConcurrent int `json:"maxConcurrent,omitempty" yaml:"maxConcurrent,omitempty" mapstructure:"maxConcurrent" validate:"gte=1"`
	// History is the number of finished task infos kept for Status.
	History int `json:"history,omitempty" yaml:"history,omitempty" mapstructure:"history" validate:"gte=0"`
}

func DefaultConfig() *Config {
	return &Config{MaxConcurrent: 2, History: 100}
}
