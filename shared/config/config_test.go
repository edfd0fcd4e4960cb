package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewLocale_FallsBackOnUnknownValues(t *testing.T) {
	assert.Equal(t, Locale{Currency: "GBP", Language: "en-GB"}, NewLocale("GBP", "en-GB"))
	assert.Equal(t, DefaultLocale, NewLocale("XYZ1", "not a language!"))
}

func TestParseLocale(t *testing.T) {
	l, err := ParseLocale("gbp", "en-gb")
	assert.NoError(t, err)
	assert.Equal(t, Locale{Currency: "GBP", Language: "en-GB"}, l)

	_, err = ParseLocale("pounds", "en-GB")
	assert.Error(t, err)

	_, err = ParseLocale("GBP", "not a language!")
	assert.Error(t, err)
}

func TestLocale_FormatMoney(t *testing.T) {
	out := DefaultLocale.FormatMoney(decimal.RequireFromString("1234.5"))
	assert.Contains(t, out, "1,234.50")

	other := NewLocale("EUR", "de-DE").FormatMoney(decimal.RequireFromString("1234.5"))
	assert.NotEqual(t, out, other)
}

func TestLocale_FormatMoneyKeepsPrecision(t *testing.T) {
	// Beyond what a float64 can hold exactly
	out := DefaultLocale.FormatMoney(decimal.RequireFromString("12345678901234567.89"))
	assert.Contains(t, out, "12,345,678,901,234,567.89")

	assert.Contains(t, DefaultLocale.FormatMoney(decimal.RequireFromString("-0.5")), "-0.50")
	assert.Contains(t, DefaultLocale.FormatMoney(decimal.RequireFromString("0.005")), "0.01")

	german := NewLocale("EUR", "de-DE").FormatMoney(decimal.RequireFromString("1234.5"))
	assert.Contains(t, german, "1.234,50")
}

func TestGetDatabaseConfig_Defaults(t *testing.T) {
	os.Unsetenv("DB_HOST")
	os.Unsetenv("DB_MAX_OPEN_CONNS")

	cfg := GetDatabaseConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Contains(t, cfg.GetDSN(), "dbname=property_management")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty-two")
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_DURATION", "90s")

	assert.Equal(t, 42, getEnvInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("TEST_BAD_INT", 1))
	assert.False(t, getEnvBool("TEST_BOOL", true))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
}

func TestGetKafkaConfig_SplitsBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "a:9092,b:9092")

	cfg := GetKafkaConfig("activity-service")

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
	assert.Equal(t, "property-events", cfg.Topic)
}
