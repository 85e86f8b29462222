package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := FromViper(v)

	if cfg.Cache.Backend != "memory" {
		t.Errorf("cache backend expected memory, got %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL() != 5*time.Minute {
		t.Errorf("cache ttl expected 5m, got %s", cfg.Cache.TTL())
	}
	if cfg.Source.RetryAttempts != 3 {
		t.Errorf("retry attempts expected 3, got %d", cfg.Source.RetryAttempts)
	}
	if cfg.Source.RetryInitialDelay != 4*time.Second || cfg.Source.RetryMaxDelay != 10*time.Second {
		t.Errorf("retry delays expected 4s/10s, got %s/%s", cfg.Source.RetryInitialDelay, cfg.Source.RetryMaxDelay)
	}
	if cfg.Tables.StockOnhand != "Stock_Onhand" {
		t.Errorf("stock table expected Stock_Onhand, got %s", cfg.Tables.StockOnhand)
	}

	th := cfg.Pipeline.Thresholds()
	if th.AccuracyLower != 80 || th.AccuracyUpper != 120 {
		t.Errorf("accuracy band expected 80/120, got %v/%v", th.AccuracyLower, th.AccuracyUpper)
	}
	if err := th.Validate(); err != nil {
		t.Errorf("default thresholds should validate: %v", err)
	}
}

func TestFromViperCredentialFallback(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("GOOGLE_DRIVE_CREDENTIALS_JSON", `{"type":"service_account"}`)
	v.Set("SOURCE_KIND", "XLSX")

	cfg := FromViper(v)
	if cfg.Source.CredentialsJSON != `{"type":"service_account"}` {
		t.Errorf("credentials fallback not applied, got %q", cfg.Source.CredentialsJSON)
	}
	if cfg.Source.Kind != "xlsx" {
		t.Errorf("source kind should be lower-cased, got %s", cfg.Source.Kind)
	}
}
