package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 2*time.Minute, c.Market.EvalInterval)
	assert.Equal(t, "Europe/Stockholm", c.Market.Timezone)
	assert.Equal(t, 300*time.Second, c.History.CacheTTL)
	assert.Equal(t, 6*time.Hour, c.Sentiment.CacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
environment: production
server:
  port: 9090
market:
  eval_interval: 5m
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 5*time.Minute, c.Market.EvalInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "17:30", c.Market.Close)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.yaml", "history:\n  source: bloomberg\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Source")

	p = writeFile(t, dir, "influx.yaml", "history:\n  source: influx\n")
	_, err = Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "influx.token")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "environment: test\n")
	t.Setenv("KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("NTFY_TOPIC", "my-signals")
	t.Setenv("PORT", "7000")
	t.Setenv("KAFKA_ENABLED", "false")

	c, err := LoadWithEnv(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, c.Kafka.Brokers)
	assert.Equal(t, "my-signals", c.Notify.Topic)
	assert.Equal(t, 7000, c.Server.Port)
	assert.False(t, c.Kafka.Enabled)

	t.Setenv("PORT", "seventy")
	_, err = LoadWithEnv(p)
	assert.Error(t, err)
}

type seed struct {
	Ticker string  `yaml:"ticker" validate:"required"`
	SL     float64 `yaml:"sl" default:"0.05"`
}

type seedFile struct {
	Seeds []seed `yaml:"seeds" validate:"dive"`
}

func TestLoadYAMLAppliesElementDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "s.yaml", "seeds:\n  - ticker: EVO\n  - ticker: SINCH\n    sl: 0.04\n")
	var f seedFile
	require.NoError(t, LoadYAML(p, &f))
	require.Len(t, f.Seeds, 2)
	assert.Equal(t, 0.05, f.Seeds[0].SL)
	assert.Equal(t, 0.04, f.Seeds[1].SL)

	bad := writeFile(t, dir, "bad.yaml", "seeds:\n  - sl: 0.04\n")
	assert.Error(t, LoadYAML(bad, &seedFile{}))
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "strategies.yaml", "seeds: []\n")

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- WatchFile(ctx, p, 20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) }) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte("seeds:\n  - ticker: EVO\n"), 0o644))
	writeFile(t, dir, "other.yaml", "x: 1\n")

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
