package discovery

import (
	"reflect"
	"sort"
	"testing"

	"github.com/nbd-wtf/go-nostr"

	"beacon.dev/pkg/crawlstate"
)

func open(t *testing.T) *crawlstate.Store {
	t.Helper()
	st, err := crawlstate.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestExtractURLs(t *testing.T) {
	ev := &nostr.Event{
		Tags: nostr.Tags{
			{"r", "wss://one.example", "read"},
			{"r", "wss://two.example"},
			{"p", "deadbeef"},
			{"r"},
		},
		Content: "my relay is wss://three.example/nostr and also ws://four.example",
	}
	got := ExtractURLs(ev)
	want := []string{
		"wss://one.example", "wss://two.example",
		"wss://three.example/nostr", "ws://four.example",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractURLs = %v, want %v", got, want)
	}
}

func TestProcessEventCanonicalizes(t *testing.T) {
	d := New(open(t))
	ev := &nostr.Event{
		ID:   "ev1",
		Kind: KindRelayList,
		Tags: nostr.Tags{
			{"r", "wss://Relay.Example/"},
			{"r", "wss://www.relay.example"}, // same relay after canonicalization
			{"r", "ws://localhost:8080"},     // private, dropped
			{"r", "not a url"},
		},
	}
	fresh, err := d.ProcessEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fresh, []string{"wss://relay.example"}) {
		t.Errorf("fresh = %v, want the single canonical URL", fresh)
	}
}

func TestProcessEventIdempotent(t *testing.T) {
	d := New(open(t))
	ev := &nostr.Event{
		ID:   "ev1",
		Tags: nostr.Tags{{"r", "wss://relay.example"}},
	}
	if _, err := d.ProcessEvent(ev); err != nil {
		t.Fatal(err)
	}
	fresh, err := d.ProcessEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	if fresh != nil {
		t.Errorf("re-scan of the same event yielded %v", fresh)
	}

	// a different event carrying a known relay yields nothing new either
	fresh, err = d.ProcessEvent(&nostr.Event{
		ID:   "ev2",
		Tags: nostr.Tags{{"r", "wss://relay.example"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if fresh != nil {
		t.Errorf("known relay reported fresh: %v", fresh)
	}
}

func TestFrontier(t *testing.T) {
	d := New(open(t))
	if _, err := d.ProcessEvent(&nostr.Event{
		ID: "ev1",
		Tags: nostr.Tags{
			{"r", "wss://a.example"},
			{"r", "wss://b.example"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	urls, err := d.Frontier()
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(urls)
	if !reflect.DeepEqual(urls, []string{"wss://a.example", "wss://b.example"}) {
		t.Fatalf("frontier = %v", urls)
	}

	if err = d.MarkVisited("wss://a.example"); err != nil {
		t.Fatal(err)
	}
	if urls, err = d.Frontier(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, []string{"wss://b.example"}) {
		t.Errorf("frontier after visit = %v", urls)
	}
}

func TestMarkVisitedUnknownRelay(t *testing.T) {
	d := New(open(t))
	if err := d.MarkVisited("wss://new.example"); err != nil {
		t.Fatal(err)
	}
	urls, err := d.Frontier()
	if err != nil {
		t.Fatal(err)
	}
	if urls != nil {
		t.Errorf("visited relay appeared on the frontier: %v", urls)
	}
}
