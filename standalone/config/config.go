package config

import (
	"encoding/json"
	"fmt"
	"os"

	"arcmotion/standalone"
	"arcmotion/standalone/arc"
)

// LoadConfig parses a JSON configuration string and returns a MachineConfig
func LoadConfig(jsonData []byte) (*standalone.MachineConfig, error) {
	var config standalone.MachineConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFile reads and parses a JSON configuration file
func LoadFile(path string) (*standalone.MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return LoadConfig(data)
}

// Validate checks values that have no sensible default
func Validate(config *standalone.MachineConfig) error {
	if _, err := arc.NewSegmenter(config.Arc.MMPerArcSegment, config.Arc.NArcCorrection); err != nil {
		return fmt.Errorf("invalid arc config: %w", err)
	}
	for name, axis := range config.Axes {
		if axis.MinPosition > axis.MaxPosition {
			return fmt.Errorf("axis %s: min_position %.3f above max_position %.3f",
				name, axis.MinPosition, axis.MaxPosition)
		}
	}
	return nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *standalone.MachineConfig) {
	if config.Kinematics == "" {
		config.Kinematics = "cartesian"
	}

	// Default motion parameters
	if config.DefaultVelocity == 0 {
		config.DefaultVelocity = 50.0 // 50 mm/s
	}
	if config.DefaultAccel == 0 {
		config.DefaultAccel = 500.0 // 500 mm/s^2
	}

	// Arc segmentation
	if config.Arc.MMPerArcSegment == 0 {
		config.Arc.MMPerArcSegment = arc.DefaultChordTolerance
	}
	if config.Arc.NArcCorrection == 0 {
		config.Arc.NArcCorrection = arc.DefaultCorrectionInterval
	}

	if config.Axes == nil {
		config.Axes = make(map[string]standalone.AxisConfig)
	}

	// Apply defaults to each axis
	for name, axis := range config.Axes {
		if axis.MaxVelocity == 0 {
			axis.MaxVelocity = 300.0
		}
		if axis.MaxAccel == 0 {
			axis.MaxAccel = 1000.0
		}
		if axis.HomingVel == 0 {
			axis.HomingVel = 5.0
		}
		if axis.StepsPerMM == 0 {
			axis.StepsPerMM = 80.0 // Common value
		}
		config.Axes[name] = axis
	}
}

// DefaultCartesianConfig returns a default configuration for a Cartesian printer
func DefaultCartesianConfig() *standalone.MachineConfig {
	return &standalone.MachineConfig{
		Kinematics: "cartesian",
		Axes: map[string]standalone.AxisConfig{
			"x": {
				StepsPerMM:  80.0,
				MaxVelocity: 300.0,
				MaxAccel:    3000.0,
				HomingVel:   50.0,
				MinPosition: 0.0,
				MaxPosition: 220.0,
			},
			"y": {
				StepsPerMM:  80.0,
				MaxVelocity: 300.0,
				MaxAccel:    3000.0,
				HomingVel:   50.0,
				MinPosition: 0.0,
				MaxPosition: 220.0,
			},
			"z": {
				StepsPerMM:  400.0,
				MaxVelocity: 10.0,
				MaxAccel:    100.0,
				HomingVel:   5.0,
				MinPosition: 0.0,
				MaxPosition: 250.0,
			},
			"e": {
				StepsPerMM:  96.0,
				MaxVelocity: 50.0,
				MaxAccel:    5000.0,
				MinPosition: -10000.0,
				MaxPosition: 10000.0,
			},
		},
		Arc: standalone.ArcConfig{
			MMPerArcSegment: arc.DefaultChordTolerance,
			NArcCorrection:  arc.DefaultCorrectionInterval,
		},
		SoftEndstops:    true,
		DefaultVelocity: 50.0,
		DefaultAccel:    500.0,
	}
}
