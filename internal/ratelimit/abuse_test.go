package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/safetycheck/safetycheck/internal/logger"
)

func TestAbuseDetector_RequestRateCeiling(t *testing.T) {
	d := NewAbuseDetector(AbuseConfig{RequestsPerMinute: 3, DistinctContentMax: 100}, logger.NewNop())

	for i := 0; i < 3; i++ {
		if d.Check("1.2.3.4", "") {
			t.Fatalf("blocked legitimate request %d", i)
		}
	}
	if !d.Check("1.2.3.4", "") {
		t.Error("fourth request within the minute should be blocked")
	}

	// Other origins are unaffected.
	if d.Check("5.6.7.8", "") {
		t.Error("unrelated origin was blocked")
	}
}

func TestAbuseDetector_RateWindowRollsOver(t *testing.T) {
	d := NewAbuseDetector(AbuseConfig{RequestsPerMinute: 2, DistinctContentMax: 100}, logger.NewNop())
	now := time.Now()

	d.now = func() time.Time { return now.Add(-2 * time.Minute) }
	d.Check("ip", "")
	d.Check("ip", "")

	d.now = func() time.Time { return now }
	if d.Check("ip", "") {
		t.Error("requests outside the minute window still counted")
	}
}

// Repeated identical content is a cache hit pattern, not abuse; it must
// never count toward the distinct-content ceiling.
func TestAbuseDetector_RepeatContentIsFree(t *testing.T) {
	d := NewAbuseDetector(AbuseConfig{RequestsPerMinute: 1000, DistinctContentMax: 2}, logger.NewNop())

	for i := 0; i < 50; i++ {
		if d.Check("ip", "same content every time") {
			t.Fatalf("repeat submission %d flagged as abuse", i)
		}
	}
}

func TestAbuseDetector_DistinctContentProbing(t *testing.T) {
	d := NewAbuseDetector(AbuseConfig{RequestsPerMinute: 1000, DistinctContentMax: 5}, logger.NewNop())

	blocked := false
	for i := 0; i < 10; i++ {
		if d.Check("ip", fmt.Sprintf("unique content %d", i)) {
			blocked = true
			break
		}
	}
	if !blocked {
		t.Error("distinct-content probing was never flagged")
	}
}

func TestAbuseDetector_EmptyContentSkipsHeuristic(t *testing.T) {
	d := NewAbuseDetector(AbuseConfig{RequestsPerMinute: 1000, DistinctContentMax: 1}, logger.NewNop())

	for i := 0; i < 20; i++ {
		if d.Check("ip", "") {
			t.Fatal("empty content must not trip the distinct-content counter")
		}
	}
}

func TestLimiter_AllowAndDefaults(t *testing.T) {
	l := NewLimiter(0, 0, logger.NewNop()) // falls back to defaults

	if !l.Allow() {
		t.Error("first call should be within burst")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}
