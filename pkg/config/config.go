// Package config handles regvm.toml machine configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/akhildatla/regvm/pkg/vm"
)

// DefaultFile is the config file name looked up by the CLI when -config
// is not given.
const DefaultFile = "regvm.toml"

var log = commonlog.GetLogger("regvm.config")

// Config represents a regvm.toml configuration.
type Config struct {
	Stack  Stack  `toml:"stack"`
	Limits Limits `toml:"limits"`
	Trace  Trace  `toml:"trace"`

	// Path is the file the config was read from (empty for defaults).
	Path string `toml:"-"`
}

// Stack configures the operand stack growth policy.
type Stack struct {
	InitialCapacity int     `toml:"initial-capacity"`
	GrowthFactor    float64 `toml:"growth-factor"`
	ShrinkThreshold float64 `toml:"shrink-threshold"`
}

// Limits configures execution limits. Zero means unlimited.
type Limits struct {
	MaxSteps int64    `toml:"max-steps"`
	Timeout  Duration `toml:"timeout"`
}

// Trace configures execution trace export.
type Trace struct {
	Output string `toml:"output"`
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "2s".
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

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	p := vm.DefaultStackPolicy()
	return &Config{
		Stack: Stack{
			InitialCapacity: p.InitialCapacity,
			GrowthFactor:    p.GrowthFactor,
			ShrinkThreshold: p.ShrinkThreshold,
		},
		Trace: Trace{Format: string(vm.TraceCSV)},
	}
}

// Load reads a config file. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", path, key)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	c.Path = path
	log.Infof("loaded config from %s", path)
	return c, nil
}

// LoadOptional loads path if it exists and returns the defaults otherwise.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the configuration for values the VM would reject.
func (c *Config) Validate() error {
	if err := c.StackPolicy().Validate(); err != nil {
		return err
	}
	if c.Limits.MaxSteps < 0 {
		return fmt.Errorf("max-steps must not be negative, got %d", c.Limits.MaxSteps)
	}
	if c.Limits.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Limits.Timeout)
	}
	switch vm.TraceFormat(c.Trace.Format) {
	case vm.TraceCSV, vm.TraceJSON:
	default:
		return fmt.Errorf("unknown trace format %q", c.Trace.Format)
	}
	return nil
}

// StackPolicy returns the configured stack policy.
func (c *Config) StackPolicy() vm.StackPolicy {
	return vm.StackPolicy{
		InitialCapacity: c.Stack.InitialCapacity,
		GrowthFactor:    c.Stack.GrowthFactor,
		ShrinkThreshold: c.Stack.ShrinkThreshold,
	}
}
