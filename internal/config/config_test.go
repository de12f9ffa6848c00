package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sharding.MinCommandElapsedMilliseconds != 0 {
		t.Errorf("expected min elapsed 0, got %d", cfg.Sharding.MinCommandElapsedMilliseconds)
	}
	if cfg.Sharding.LeakThreshold != 5*time.Minute {
		t.Errorf("expected leak threshold 5m, got %s", cfg.Sharding.LeakThreshold)
	}
	if cfg.Sharding.LeakInterval != 5*time.Minute {
		t.Errorf("expected leak interval 5m, got %s", cfg.Sharding.LeakInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected logging output 'stdout', got %s", cfg.Logging.Output)
	}
}

func TestGroupNameFallback(t *testing.T) {
	ds := DataSourceConfig{}
	if ds.GroupName() != DefaultDbGroupName {
		t.Errorf("expected %s, got %s", DefaultDbGroupName, ds.GroupName())
	}
	ds.Group = "orders"
	if ds.GroupName() != "orders" {
		t.Errorf("expected orders, got %s", ds.GroupName())
	}

	er := EntityRuleConfig{}
	if er.GroupName() != DefaultDbGroupName {
		t.Errorf("expected %s, got %s", DefaultDbGroupName, er.GroupName())
	}
}
