package mirror

import "time"

// Config controls reconciliation.
type Config struct {
	// SweepInterval is the scheduled sweep period.
	SweepInterval time.Duration `json:"sweepInterval,omitempty" yaml:"sweepInterval,omitempty" mapstructure:"sweepInterval" validate:"gt=0"`
	// Marker names the file that classifies a folder as special.
	Marker         string   `json:"marker,omitempty" yaml:"marker,omitempty" mapstructure:"marker" validate:"required"`
	// IgnoreSuffixes skips files whose name ends with one of them.
	IgnoreSuffixes []string `json:"ignoreSuffixes,omitempty" yaml:"ignoreSuffixes,omitempty" mapstructure:"ignoreSuffixes"`
	DisableSuffix  string   `json:"disableSuffix,omitempty" yaml:"disableSuffix,omitempty" mapstructure:"disableSuffix" validate:"required"`
	// Scheduled starts the sweep loop with the service; a re-Init keeps it running.
	Scheduled bool `json:"scheduled,omitempty" yaml:"scheduled,omitempty" mapstructure:"scheduled"`
}

func DefaultConfig() *Config {
	return &Config{
		SweepInterval:  3 * time.Second,
		Marker:         "config.json",
		IgnoreSuffixes: []string{".crswap", ".DS_Store"},
		DisableSuffix:  ".disable",
		Scheduled:      true,
	}
}
