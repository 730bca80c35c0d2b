package upstream

import (
	"testing"
	"time"

	"github.com/jmcortes/newswire/internal/config"
)

func retryCfg() config.RetryConfig {
	return config.RetryConfig{
		MaxRetries:       5,
		BaseDelaySeconds: 2,
		MaxDelaySeconds:  60,
		JitterRange:      0.5,
		MinDelayMs:       500,
	}
}

func TestBackoffDelayGrowth(t *testing.T) {
	cfg := retryCfg()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second}, // 64s capped at max
		{6, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(cfg, tt.attempt, 0); got != tt.want {
			t.Errorf("backoffDelay(attempt=%d, jitter=0) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	cfg := retryCfg()

	// Full negative jitter: 2s - 50% = 1s.
	if got := backoffDelay(cfg, 0, -1); got != 1*time.Second {
		t.Errorf("full negative jitter = %v, want 1s", got)
	}
	// Full positive jitter: 2s + 50% = 3s.
	if got := backoffDelay(cfg, 0, 1); got != 3*time.Second {
		t.Errorf("full positive jitter = %v, want 3s", got)
	}
}

func TestBackoffDelayFloor(t *testing.T) {
	cfg := retryCfg()
	cfg.BaseDelaySeconds = 1
	cfg.JitterRange = 1

	// 1s with full negative jitter would be 0; the floor holds it at 500ms.
	if got := backoffDelay(cfg, 0, -1); got != 500*time.Millisecond {
		t.Errorf("floored delay = %v, want 500ms", got)
	}
}

func TestBackoffDelayOverflowCapped(t *testing.T) {
	cfg := retryCfg()

	// A shift large enough to overflow must still land on the cap.
	if got := backoffDelay(cfg, 62, 0); got != 60*time.Second {
		t.Errorf("overflowed delay = %v, want 60s", got)
	}
}

func TestDefaultJitterRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := defaultJitter()
		if v < -1 || v >= 1 {
			t.Fatalf("defaultJitter() = %v, want in [-1, 1)", v)
		}
	}
}
