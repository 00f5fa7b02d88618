package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/cruisesim/pkg/sim"
)

const carYaml = `
car:
  weight: 1100
  wheelRadius: 0.3
  environment:
    airDensity: 1.2
  pid:
    kp: 2
  gearRatios: [3.0, 2.0, 1.0]
`

func TestCarParams(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(carYaml)))

	p, err := CarParams(v)
	require.NoError(t, err)
	def := sim.DefaultParams()
	assert.Equal(t, 1100.0, p.Weight)
	assert.Equal(t, 0.3, p.WheelRadius)
	assert.Equal(t, 1.2, p.Environment.AirDensity)
	assert.Equal(t, def.Environment.DragCoefficient, p.Environment.DragCoefficient)
	assert.Equal(t, 2.0, p.PID.Kp)
	assert.Equal(t, def.PID.Ki, p.PID.Ki)
	assert.Equal(t, []float64{3, 2, 1}, p.GearRatios)
	assert.Equal(t, def.Torque, p.Torque)
	assert.NoError(t, p.Validate())
}

func TestCarParams_defaults(t *testing.T) {
	p, err := CarParams(viper.New())
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultParams(), p)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, ParseDuration("2m", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("soon", time.Second))
}

const torqueYaml = `
car:
  torque:
    - rpm: 1000
      torque: 150
    - rpm: 3000
    - rpm: 6000
      torque: 200
`

func TestCarParams_listsReplaceDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(torqueYaml)))

	p, err := CarParams(v)
	require.NoError(t, err)
	require.Len(t, p.Torque, 3)
	assert.Equal(t, 150.0, p.Torque[0].Torque)
	assert.Equal(t, 3000.0, p.Torque[1].RPM)
	assert.Equal(t, 0.0, p.Torque[1].Torque, "missing value is not taken from the default curve")
	assert.Equal(t, 200.0, p.Torque[2].Torque)
	assert.Equal(t, sim.DefaultParams().GearRatios, p.GearRatios)
}
