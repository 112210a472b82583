package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "BTCUSDT", c.Symbol)
	assert.Equal(t, "composite", c.Analysis.Model)
	assert.Equal(t, 10*time.Second, c.Analysis.Interval)
	assert.Equal(t, time.Second, c.Pollers.Price.Interval)
	assert.Equal(t, 30*time.Second, c.Pollers.Funding.Interval)
	assert.Equal(t, 10*time.Second, c.Pollers.OpenInterest.Interval)
	assert.Equal(t, 2*time.Second, c.Pollers.OrderFlow.Interval)
	assert.Equal(t, 50.0, c.Pollers.LargeTradeQty)
	assert.Equal(t, 0.0003, c.Analysis.Rules.CrowdedLongFunding)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, c.ResultTTL())
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := writeConfig(t, `
symbol: ETHUSDT
pollers:
  funding: { interval: 1m, timeout: 10s }
analysis:
  model: tactical
  classifier:
    long_score: 40
  scoring:
    price_weight: 0
redis:
  ttl: 45s
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", c.Symbol)
	assert.Equal(t, time.Minute, c.Pollers.Funding.Interval)
	assert.Equal(t, 10*time.Second, c.Pollers.Funding.Timeout)
	assert.Equal(t, time.Second, c.Pollers.Price.Interval, "untouched families keep defaults")
	assert.Equal(t, "tactical", c.Analysis.Model)
	assert.Equal(t, 40, c.Analysis.Classifier.LongScore)
	assert.Equal(t, -50, c.Analysis.Classifier.ShortScore)
	assert.Zero(t, c.Analysis.Scoring.PriceWeight, "explicit zero survives")
	assert.Equal(t, 45*time.Second, c.ResultTTL())
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"lowercase symbol": "symbol: btcusdt\n",
		"unknown model":    "analysis:\n  model: neural\n",
		"timeout above interval": `
pollers:
  price: { interval: 1s, timeout: 2s }
`,
		"inverted ratios": `
analysis:
  rules:
    extreme_long_ratio: 0.5
    extreme_short_ratio: 0.6
`,
		"bad period": "pollers:\n  long_short_period: 3m\n",
		"timeout above scheduled interval": `
pollers:
  price: { interval: 1500ms, timeout: 1200ms }
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestScheduleInterval(t *testing.T) {
	assert.Equal(t, time.Second, ScheduleInterval(200*time.Millisecond))
	assert.Equal(t, time.Second, ScheduleInterval(1500*time.Millisecond))
	assert.Equal(t, 2*time.Second, ScheduleInterval(2*time.Second))
	assert.Equal(t, 10*time.Second, ScheduleInterval(10*time.Second+999*time.Millisecond))
}

func TestLoadWithEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SENTINEL_SYMBOL", "solusdt")
	t.Setenv("ANALYSIS_MODEL", "tactical")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", c.Symbol)
	assert.Equal(t, "tactical", c.Analysis.Model)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)

	t.Setenv("HTTP_PORT", "http")
	_, err = LoadWithEnv("")
	assert.Error(t, err)
}
