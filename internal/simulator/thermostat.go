// Package simulator contains a small demo simulator and the loop that drives
// any simulator through a connector session.
package simulator

import (
	"math"

	"github.com/mitchellh/mapstructure"
)

// ThermostatConfig is the episode configuration. Zero fields take the
// defaults below.
type ThermostatConfig struct {
	InitialTemperature float64 `mapstructure:"initial_temperature"`
	Target             float64 `mapstructure:"target"`
	Outside            float64 `mapstructure:"outside"`
	MaxTemperature     float64 `mapstructure:"max_temperature"`
}

const (
	defaultInitialTemperature = 15.0
	defaultTarget             = 21.0
	defaultOutside            = 5.0
	defaultMaxTemperature     = 40.0

	heatingRate = 2.0  // degrees per step at full power
	lossRate    = 0.05 // fraction of the inside/outside gap lost per step
)

// Thermostat is a room with a heater. Each step the heater adds heat in
// proportion to heater_power and the room loses heat to the outside. The
// episode halts when the room overheats.
type Thermostat struct {
	cfg         ThermostatConfig
	temperature float64
	power       float64
	steps       int
	halted      bool
}

// NewThermostat returns a thermostat reset to the default configuration.
func NewThermostat() *Thermostat {
	t := &Thermostat{}
	_ = t.Reset(nil)
	return t
}

// Reset starts a new episode. config keys override the defaults.
func (t *Thermostat) Reset(config map[string]any) error {
	cfg := ThermostatConfig{}
	if err := mapstructure.WeakDecode(config, &cfg); err != nil {
		return ErrInvalidConfig.MsgErr("invalid thermostat config: "+err.Error(), err)
	}
	if cfg.InitialTemperature == 0 {
		cfg.InitialTemperature = defaultInitialTemperature
	}
	if cfg.Target == 0 {
		cfg.Target = defaultTarget
	}
	if cfg.Outside == 0 {
		cfg.Outside = defaultOutside
	}
	if cfg.MaxTemperature == 0 {
		cfg.MaxTemperature = defaultMaxTemperature
	}
	t.cfg = cfg
	t.temperature = cfg.InitialTemperature
	t.power = 0
	t.steps = 0
	t.halted = false
	return nil
}

// Step applies the action. heater_power is clamped to [0, 1].
func (t *Thermostat) Step(action map[string]any) error {
	var a struct {
		HeaterPower float64 `mapstructure:"heater_power"`
	}
	if err := mapstructure.WeakDecode(action, &a); err != nil {
		return ErrInvalidAction.MsgErr("invalid thermostat action: "+err.Error(), err)
	}
	t.power = math.Max(0, math.Min(1, a.HeaterPower))
	t.temperature += heatingRate*t.power - lossRate*(t.temperature-t.cfg.Outside)
	t.steps++
	if t.temperature > t.cfg.MaxTemperature {
		t.halted = true
	}
	return nil
}

// State is the snapshot sent on every advance.
func (t *Thermostat) State() map[string]any {
	return map[string]any{
		"temperature":  round(t.temperature),
		"target":       t.cfg.Target,
		"heater_power": t.power,
		"steps":        t.steps,
		"halted":       t.halted,
	}
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
