package core

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Cache.TTL != time.Hour {
		t.Errorf("Expected cache TTL 1h, got %v", config.Cache.TTL)
	}

	if config.Cache.MaxEntries != 500 {
		t.Errorf("Expected 500 fast-tier entries, got %d", config.Cache.MaxEntries)
	}

	if config.Render.Timeout != 120*time.Second {
		t.Errorf("Expected render timeout 120s, got %v", config.Render.Timeout)
	}

	if config.YouTube.MaxCandidates != 5 {
		t.Errorf("Expected 5 search candidates, got %d", config.YouTube.MaxCandidates)
	}

	if config.Server.Port != DefaultServerPort {
		t.Errorf("Expected port %d, got %d", DefaultServerPort, config.Server.Port)
	}
}

func TestCacheConfig_WithCacheDir(t *testing.T) {
	config := DefaultConfig()
	config.Cache.WithCacheDir("/var/lib/trackclip")

	if config.Cache.MetadataDir != filepath.Join("/var/lib/trackclip", "metadata") {
		t.Errorf("Unexpected metadata dir %s", config.Cache.MetadataDir)
	}
	if config.Cache.ClipsDir != filepath.Join("/var/lib/trackclip", "clips") {
		t.Errorf("Unexpected clips dir %s", config.Cache.ClipsDir)
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultInfoTimeout >= DefaultFallbackTimeout {
		t.Error("Info lookup should give up before the fallback lookup")
	}

	if DefaultServerPort <= 0 || DefaultServerPort > 65535 {
		t.Error("DefaultServerPort should be a valid port number")
	}

	if DefaultBloomFalsePositiveRate <= 0 || DefaultBloomFalsePositiveRate >= 1 {
		t.Error("DefaultBloomFalsePositiveRate should be within (0, 1)")
	}
}

func TestConfig_RequestBudget(t *testing.T) {
	config := DefaultConfig()

	// 3 x (10s page + 5 x 8s candidates) + 7s + 10s resolve + 10s open + 120s render + 30s slack
	if got := config.RequestBudget(); got != 327*time.Second {
		t.Errorf("RequestBudget() = %v, expected 327s", got)
	}
	if config.Server.WriteTimeout != config.RequestBudget() {
		t.Errorf("Default write timeout %v should cover the request budget", config.Server.WriteTimeout)
	}

	config.Render.Timeout = 5 * time.Minute
	if config.RequestBudget() <= config.Server.WriteTimeout {
		t.Error("A longer render timeout should raise the request budget")
	}
}
