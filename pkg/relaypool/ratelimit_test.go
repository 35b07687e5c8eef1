package relaypool

import (
	"testing"
	"time"

	"beacon.dev/pkg/utils/context"
)

func limiter(eps, burst int, cooldown time.Duration) *Config {
	return &Config{
		MaxEventsPerSecond: eps,
		BurstSize:          burst,
		Cooldown:           cooldown,
	}
}

func TestAdmitUnderLimit(t *testing.T) {
	rc := limiter(5, 10, 100*time.Millisecond)
	c := context.Bg()
	for i := 0; i < 5; i++ {
		slept, err := rc.admit(c)
		if err != nil {
			t.Fatal(err)
		}
		if slept != 0 {
			t.Fatalf("admit %d slept %v under the limit", i, slept)
		}
	}
	if got := rc.windowLen(); got != 5 {
		t.Errorf("window length = %d, want 5", got)
	}
}

func TestAdmitSleepsUntilWindowDrains(t *testing.T) {
	rc := limiter(2, 10, 100*time.Millisecond)
	old := time.Now().Add(-900 * time.Millisecond)
	rc.window = []time.Time{old, old.Add(time.Millisecond)}

	start := time.Now()
	slept, err := rc.admit(context.Bg())
	if err != nil {
		t.Fatal(err)
	}
	if slept == 0 {
		t.Error("expected a sleep with a full window")
	}
	if waited := time.Since(start); waited > 500*time.Millisecond {
		t.Errorf("waited %v, expected roughly the window remainder", waited)
	}
}

func TestAdmitBurstSleepsCooldown(t *testing.T) {
	rc := limiter(100, 2, 5*time.Millisecond)
	aged := time.Now().Add(-990 * time.Millisecond)
	rc.window = []time.Time{aged, aged}

	slept, err := rc.admit(context.Bg())
	if err != nil {
		t.Fatal(err)
	}
	if slept < 5*time.Millisecond {
		t.Errorf("slept %v, want at least one cooldown", slept)
	}
}

func TestAdmitHonorsCancel(t *testing.T) {
	rc := limiter(1, 10, 100*time.Millisecond)
	rc.window = []time.Time{time.Now()}

	c, cancel := context.Cancel(context.Bg())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := rc.admit(c); err == nil {
		t.Fatal("admit returned nil after cancellation")
	}
}

func TestPrune(t *testing.T) {
	rc := limiter(5, 10, 100*time.Millisecond)
	now := time.Now()
	rc.window = []time.Time{
		now.Add(-2 * time.Second),
		now.Add(-1500 * time.Millisecond),
		now.Add(-100 * time.Millisecond),
	}
	if got := rc.windowLen(); got != 1 {
		t.Errorf("window length after prune = %d, want 1", got)
	}
}
