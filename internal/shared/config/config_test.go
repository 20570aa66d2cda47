package config

import (
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CLOSER_INTERVAL", "")

	cfg, err := Load()
	assert.NoError(t, err)
	check.Equal(t, ":9000", cfg.HTTPAddr)
	check.Equal(t, "memory", cfg.StoreDriver)
	check.Equal(t, time.Second, cfg.CloserInterval)
	check.Equal(t, 20, cfg.DBMaxConns)
	check.Equal(t, 30*time.Second, cfg.DBConnectTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LANE_QUEUE_DEPTH", "8")
	t.Setenv("CLOSER_INTERVAL", "250ms")
	t.Setenv("BLIND_MASK", "amounts")
	t.Setenv("BLIND_REVEAL_PRICE", "true")

	cfg, err := Load()
	assert.NoError(t, err)
	check.Equal(t, 8, cfg.LaneQueueDepth)
	check.Equal(t, 250*time.Millisecond, cfg.CloserInterval)
	check.Equal(t, "amounts", cfg.BlindMask)
	check.True(t, cfg.BlindRevealPrice)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "store driver", key: "STORE_DRIVER", value: "mongo"},
		{name: "blind mask", key: "BLIND_MASK", value: "everything"},
		{name: "queue depth", key: "LANE_QUEUE_DEPTH", value: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", "memory")
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			check.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	check.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "LANE_QUEUE_DEPTH", value: "abc"},
		{key: "CLOSER_INTERVAL", value: "soon"},
		{key: "BLIND_REVEAL_PRICE", value: "maybe"},
		{key: "DB_MAX_CONNS", value: "2x"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", "memory")
			t.Setenv(tt.key, tt.value)
			cfg, err := Load()
			check.Nil(t, cfg)
			check.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.key))
		})
	}
}

func TestLoad_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LANE_QUEUE_DEPTH", "abc")
	t.Setenv("CLOSER_BATCH", "many")

	_, err := Load()
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "LANE_QUEUE_DEPTH"))
	check.True(t, strings.Contains(err.Error(), "CLOSER_BATCH"))
}
