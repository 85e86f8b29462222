package postgres

import (
	"testing"

	"github.com/andresuchdata/invintel/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "invintel",
		Password: "p@ss word",
		DBName:   "metrics",
	}

	got := DSN(cfg)
	want := "postgres://invintel:p%40ss%20word@db:5432/metrics?sslmode=disable"
	if got != want {
		t.Errorf("DSN expected %s, got %s", want, got)
	}

	cfg.SSLMode = "require"
	if got := DSN(cfg); got != "postgres://invintel:p%40ss%20word@db:5432/metrics?sslmode=require" {
		t.Errorf("sslmode not applied, got %s", got)
	}
}
