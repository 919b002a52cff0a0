package engine

import (
	"errors"
	"flag"
	"time"
)

// Config configures the defaults of kernel calls.
type Config struct {
	// NullOnOOB makes get and gather return null for out-of-bounds indices
	// instead of failing.
	NullOnOOB bool `yaml:"null_on_oob"`

	// Ddof is the delta degrees of freedom of std and var.
	Ddof int `yaml:"ddof"`

	// SlowCallThreshold is the duration above which a call is logged as slow.
	// A value of 0 disables slow call logging.
	SlowCallThreshold time.Duration `yaml:"slow_call_threshold"`

	// MaintainOrder makes sort stable by default.
	MaintainOrder bool `yaml:"maintain_order"`
}

// RegisterFlags registers flags for Config without a prefix.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("", f)
}

// RegisterFlagsWithPrefix registers flags for Config, prefixing every flag
// name with prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.BoolVar(&cfg.NullOnOOB, prefix+"null-on-oob", false, "Return null for out-of-bounds indices in get and gather instead of failing.")
	f.IntVar(&cfg.Ddof, prefix+"ddof", 1, "Delta degrees of freedom used by std and var.")
	f.DurationVar(&cfg.SlowCallThreshold, prefix+"slow-call-threshold", time.Second, "Log kernel calls that take longer than this. 0 disables slow call logging.")
	f.BoolVar(&cfg.MaintainOrder, prefix+"maintain-order", false, "Keep equal elements in their original order when sorting.")
}

// Validate returns an error if cfg is invalid.
func (cfg *Config) Validate() error {
	if cfg.Ddof < 0 {
		return errors.New("ddof must not be negative")
	}
	if cfg.SlowCallThreshold < 0 {
		return errors.New("slow call threshold must not be negative")
	}
	return nil
}
