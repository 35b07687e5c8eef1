package relaypool

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"beacon.dev/pkg/app/config"
)

func poolConfig() *config.C {
	return &config.C{
		RelayMaxEventsPerSecond: 5,
		RelayBurstSize:          10,
		RelayCooldown:           100 * time.Millisecond,
		RelayMaxFilterSize:      500,
	}
}

func TestRegisterNormalizesAndDedupes(t *testing.T) {
	p := New(poolConfig())
	rc, fresh, err := p.Register("wss://Relay.Example/")
	if err != nil {
		t.Fatal(err)
	}
	if !fresh || rc.URL != "wss://relay.example" {
		t.Fatalf("first registration: fresh=%v url=%q", fresh, rc.URL)
	}
	again, fresh, err := p.Register("wss://www.relay.example")
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Error("same relay under a variant URL reported fresh")
	}
	if again != rc {
		t.Error("variant URL produced a second Config")
	}
	if got := len(p.Relays()); got != 1 {
		t.Errorf("pool holds %d relays, want 1", got)
	}
}

func TestRegisterRejectsPrivate(t *testing.T) {
	p := New(poolConfig())
	for _, url := range []string{
		"ws://localhost:8080", "wss://10.0.0.1", "wss://192.168.1.7",
	} {
		if _, _, err := p.Register(url); err == nil {
			t.Errorf("Register(%q) accepted a private address", url)
		}
	}
}

func TestSelectRelaysGatesDiscovered(t *testing.T) {
	p := New(poolConfig())
	if _, _, err := p.RegisterSeed("wss://seed.example"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Register("wss://found.example"); err != nil {
		t.Fatal(err)
	}

	got := p.SelectRelays(&nostr.Filter{}, 10)
	if len(got) != 1 || got[0] != "wss://seed.example" {
		t.Fatalf("before first success got %v, want the seed only", got)
	}

	// one successful interaction admits the discovered relay
	p.Touch("wss://found.example", 10*time.Millisecond)
	got = p.SelectRelays(&nostr.Filter{}, 10)
	if len(got) != 2 {
		t.Fatalf("after success got %v, want both relays", got)
	}
}

func TestSelectRelaysSkipsAuthRequired(t *testing.T) {
	p := New(poolConfig())
	rc, _, err := p.RegisterSeed("wss://auth.example")
	if err != nil {
		t.Fatal(err)
	}
	rc.caps.RequireAuth = true
	if _, _, err = p.RegisterSeed("wss://open.example"); err != nil {
		t.Fatal(err)
	}

	got := p.SelectRelays(&nostr.Filter{}, 10)
	if len(got) != 1 || got[0] != "wss://open.example" {
		t.Errorf("got %v, want the open relay only", got)
	}
}

func TestSelectRelaysRanksByHealth(t *testing.T) {
	p := New(poolConfig())
	slow, _, _ := p.RegisterSeed("wss://slow.example")
	fast, _, _ := p.RegisterSeed("wss://fast.example")
	flaky, _, _ := p.RegisterSeed("wss://flaky.example")

	slow.onSuccess(800 * time.Millisecond)
	fast.onSuccess(20 * time.Millisecond)
	flaky.onSuccess(20 * time.Millisecond)
	flaky.onFailure()

	got := p.SelectRelays(&nostr.Filter{}, 2)
	want := []string{"wss://fast.example", "wss://slow.example"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SelectRelays = %v, want %v", got, want)
	}
}

func TestSelectRelaysTieBreaksOnURL(t *testing.T) {
	p := New(poolConfig())
	p.RegisterSeed("wss://b.example")
	p.RegisterSeed("wss://a.example")
	got := p.SelectRelays(&nostr.Filter{}, 10)
	if len(got) != 2 || got[0] != "wss://a.example" {
		t.Errorf("got %v, want URL-ordered on equal score", got)
	}
}
