package crawler

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/crawlstate"
	"beacon.dev/pkg/discovery"
	"beacon.dev/pkg/ingest"
	"beacon.dev/pkg/relaypool"
)

func TestOldest(t *testing.T) {
	tests := []struct {
		name   string
		stamps []int64
		want   int64
	}{
		{"empty", nil, 0},
		{"single", []int64{100}, 100},
		{"unordered", []int64{300, 100, 200}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []*nostr.Event
			for _, ts := range tt.stamps {
				events = append(events, &nostr.Event{
					CreatedAt: nostr.Timestamp(ts),
				})
			}
			if got := oldest(events); got != tt.want {
				t.Errorf("oldest = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusByKindStartsIdle(t *testing.T) {
	cfg := &config.C{CrawlKinds: []int{1, 30023}}
	st, err := crawlstate.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	c := New(cfg, relaypool.New(cfg), discovery.New(st),
		ingest.New(cfg, nil, nil), st)
	got := c.StatusByKind()
	if len(got) != 2 {
		t.Fatalf("status = %v", got)
	}
	for kind, s := range got {
		if s != string(StatusIdle) {
			t.Errorf("kind %d starts %q, want idle", kind, s)
		}
	}
}
