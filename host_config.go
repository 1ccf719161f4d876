// host_config.go - TOML host configuration

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// HostConfig is the on-disk host configuration. Command-line flags are
// applied on top of it.
type HostConfig struct {
	Machine MachineConfig     `toml:"machine"`
	Display DisplaySettings   `toml:"display"`
	Keys    map[string]string `toml:"keys"` // button name -> ebiten key name
}

type MachineConfig struct {
	StackCapacity int `toml:"stack_capacity"`
	MaxSteps      int `toml:"max_steps"`
	StepsPerFrame int `toml:"steps_per_frame"`
}

// DisplaySettings holds window and headless host settings
type DisplaySettings struct {
	Scale      int  `toml:"scale"`
	Fullscreen bool `toml:"fullscreen"`
	StatusBar  bool `toml:"status_bar"`
	Headless   bool `toml:"headless"`
	MaxFrames  int  `toml:"max_frames"` // 0 = run until the window closes
	RefreshHz  int  `toml:"refresh_hz"`
}

const (
	DEFAULT_STEPS_PER_FRAME = 200_000
	DEFAULT_SCALE           = 4
	DEFAULT_REFRESH_HZ      = 60
	MAX_SCALE               = 8
)

// DefaultKeyBindings follow the usual retro layout: arrows for the d-pad,
// Z/X/A/S for the face buttons, Q/E for the shoulders.
var DefaultKeyBindings = map[string]string{
	"up":     "ArrowUp",
	"down":   "ArrowDown",
	"left":   "ArrowLeft",
	"right":  "ArrowRight",
	"a":      "Z",
	"b":      "X",
	"x":      "A",
	"y":      "S",
	"l":      "Q",
	"r":      "E",
	"select": "ShiftRight",
	"start":  "Enter",
}

func DefaultHostConfig() HostConfig {
	keys := make(map[string]string, len(DefaultKeyBindings))
	for k, v := range DefaultKeyBindings {
		keys[k] = v
	}
	return HostConfig{
		Machine: MachineConfig{
			StackCapacity: DEFAULT_STACK_CAPACITY,
			MaxSteps:      DEFAULT_MAX_STEPS,
			StepsPerFrame: DEFAULT_STEPS_PER_FRAME,
		},
		Display: DisplaySettings{
			Scale:     DEFAULT_SCALE,
			StatusBar: true,
			RefreshHz: DEFAULT_REFRESH_HZ,
		},
		Keys: keys,
	}
}

// LoadHostConfig reads path over the defaults. Keys absent from the file
// keep their default values; a [keys] table only overrides the buttons it
// names.
func LoadHostConfig(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *HostConfig) decode(data []byte) error {
	defaults := c.Keys
	c.Keys = nil
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	for k, v := range c.Keys {
		defaults[k] = v
	}
	c.Keys = defaults
	return c.Validate()
}

// Validate checks ranges and button names.
func (c HostConfig) Validate() error {
	var errs []error
	if c.Machine.StackCapacity < 0 || c.Machine.StackCapacity > STACK_LIMIT-STACK_BASE {
		errs = append(errs, fmt.Errorf("machine.stack_capacity %d outside 0..%d", c.Machine.StackCapacity, STACK_LIMIT-STACK_BASE))
	}
	if c.Machine.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("machine.max_steps must be positive, got %d", c.Machine.MaxSteps))
	}
	if c.Machine.StepsPerFrame <= 0 {
		errs = append(errs, fmt.Errorf("machine.steps_per_frame must be positive, got %d", c.Machine.StepsPerFrame))
	}
	if c.Display.Scale < 1 || c.Display.Scale > MAX_SCALE {
		errs = append(errs, fmt.Errorf("display.scale %d outside 1..%d", c.Display.Scale, MAX_SCALE))
	}
	if c.Display.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("display.max_frames must not be negative"))
	}
	if c.Display.RefreshHz < 1 {
		errs = append(errs, fmt.Errorf("display.refresh_hz must be positive"))
	}
	for name := range c.Keys {
		if _, ok := ButtonBit(name); !ok {
			errs = append(errs, fmt.Errorf("keys: unknown button %q", name))
		}
	}
	return errors.Join(errs...)
}

// Encode renders the configuration as TOML, for -dump-config.
func (c HostConfig) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
