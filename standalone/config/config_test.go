package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcmotion/standalone/arc"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"axes": {"x": {"max_position": 200}}}`))
	require.NoError(t, err)

	assert.Equal(t, "cartesian", cfg.Kinematics)
	assert.Equal(t, 50.0, cfg.DefaultVelocity)
	assert.Equal(t, 500.0, cfg.DefaultAccel)
	assert.Equal(t, arc.DefaultChordTolerance, cfg.Arc.MMPerArcSegment)
	assert.Equal(t, arc.DefaultCorrectionInterval, cfg.Arc.NArcCorrection)

	x := cfg.Axes["x"]
	assert.Equal(t, 200.0, x.MaxPosition)
	assert.Equal(t, 300.0, x.MaxVelocity)
	assert.Equal(t, 80.0, x.StepsPerMM)
}

func TestLoadConfigArcTuning(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"arc": {"mm_per_arc_segment": 0.25, "n_arc_correction": 12}, "soft_endstops": true}`))
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Arc.MMPerArcSegment)
	assert.Equal(t, 12, cfg.Arc.NArcCorrection)
	assert.True(t, cfg.SoftEndstops)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig([]byte(`{"arc": {"mm_per_arc_segment": -1}}`))
	assert.ErrorIs(t, err, arc.ErrChordTolerance)

	_, err = LoadConfig([]byte(`{"arc": {"n_arc_correction": -3}}`))
	assert.ErrorIs(t, err, arc.ErrCorrectionInterval)

	_, err = LoadConfig([]byte(`{"axes": {"x": {"min_position": 10, "max_position": 5}}}`))
	assert.Error(t, err)

	_, err = LoadConfig([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"default_velocity": 80}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.DefaultVelocity)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaultCartesianConfigIsValid(t *testing.T) {
	cfg := DefaultCartesianConfig()
	require.NoError(t, Validate(cfg))
	assert.Len(t, cfg.Axes, 4)
	assert.True(t, cfg.SoftEndstops)
}
