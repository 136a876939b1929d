package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-avatar/pkg/motion"
	"github.com/teslashibe/go-avatar/pkg/source"
	"github.com/teslashibe/go-avatar/pkg/stream"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, 33*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, source.KindSynthetic, cfg.Source.Kind)
	assert.Equal(t, 2*time.Second, cfg.Motion.GracePeriod)
	assert.False(t, cfg.Tap.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
server:
  port: 9000
  tick_interval: 20ms
  default_encoding: msgpack
motion:
  grace_period: 3s
source:
  kind: mqtt
  mqtt:
    broker: broker.local:1883
    topic: faces/front
    max_age: 250ms
tap:
  enabled: true
  url: nats://nats.local:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 20*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, "msgpack", cfg.Server.DefaultEncoding)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Motion.GracePeriod)
	assert.Equal(t, motion.DefaultConfig().BodyGain, cfg.Motion.BodyGain)
	assert.Equal(t, source.KindMQTT, cfg.Source.Kind)
	assert.Equal(t, "broker.local:1883", cfg.Source.MQTT.Broker)
	assert.Equal(t, 250*time.Millisecond, cfg.Source.MQTT.MaxAge)
	assert.True(t, cfg.Tap.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "server: [not, a, map"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeFile(t, "server:\n  tick_interval: 0s\n"))
	assert.ErrorIs(t, err, stream.ErrInvalidConfig)

	_, err = Load(writeFile(t, "source:\n  kind: lidar\n"))
	assert.ErrorIs(t, err, source.ErrUnknownKind)

	_, err = Load(writeFile(t, "motion:\n  eye_gain: 2\n"))
	assert.ErrorIs(t, err, motion.ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("AVATAR_SOURCE", "cascade")
	t.Setenv("CAMERA_DEVICE", "2")
	t.Setenv("MQTT_BROKER", "mqtt:1883")
	t.Setenv("MQTT_TOPIC", "faces/side")
	t.Setenv("NATS_URL", "nats://bus:4222")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, source.KindCascade, cfg.Source.Kind)
	assert.Equal(t, 2, cfg.Source.Device)
	assert.Equal(t, "mqtt:1883", cfg.Source.MQTT.Broker)
	assert.Equal(t, "faces/side", cfg.Source.MQTT.Topic)
	assert.Equal(t, "nats://bus:4222", cfg.Tap.URL)
	assert.True(t, cfg.Tap.Enabled)
}

func TestApplyEnv_OverridesFile(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load(writeFile(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("PORT", "eighty")
	assert.ErrorIs(t, Default().ApplyEnv(), ErrInvalidEnv)

	t.Setenv("PORT", "")
	t.Setenv("CAMERA_DEVICE", "front")
	assert.ErrorIs(t, Default().ApplyEnv(), ErrInvalidEnv)
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
