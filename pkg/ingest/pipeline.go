// Package ingest turns raw relay events into canonical documents: classify
// by kind, extract with the declared extractor chain, spam-filter, then
// deduplicate and index in a single transaction. Per-event failures are
// absorbed and counted; they never abort a batch.
package ingest

import (
	"time"

	"github.com/nbd-wtf/go-nostr"

	"beacon.dev/pkg/app/config"
	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/embed"
	"beacon.dev/pkg/interfaces/store"
	"beacon.dev/pkg/metrics"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/log"
)

// Outcome says what the pipeline did with one event.
type Outcome string

const (
	OutcomeIndexed     Outcome = "indexed"
	OutcomeDroppedKind Outcome = "dropped_kind"
	OutcomeDroppedSpam Outcome = "dropped_spam"
	OutcomeMalformed   Outcome = "malformed"
	OutcomeStoreError  Outcome = "store_error"
)

// Pipeline is the ingestion pipeline. It exclusively owns document writes
// originating from relays.
type Pipeline struct {
	cfg   *config.C
	docs  store.Docs
	spam  *SpamFilter
	embed embed.Func
}

// New builds a pipeline over the document store. The embed function may be
// nil, in which case documents are indexed without vectors.
func New(cfg *config.C, docs store.Docs, ef embed.Func) *Pipeline {
	return &Pipeline{cfg: cfg, docs: docs, spam: NewSpamFilter(cfg), embed: ef}
}

// Process runs one event through the pipeline. The returned outcome is for
// metrics; err is non-nil only for store failures, which the caller may
// treat as fatal.
func (p *Pipeline) Process(ctx context.T, ev *nostr.Event) (o Outcome, err error) {
	defer func() { metrics.EventsIngested.WithLabelValues(string(o)).Inc() }()

	cls := Classify(ev.Kind)
	if cls.Priority < MinIndexPriority {
		return OutcomeDroppedKind, nil
	}
	var ex *Extraction
	if ex, err = Extract(ev, cls); err != nil {
		// malformed events are skipped and counted, never poison a batch
		log.D.F("event %s malformed: %v", ev.ID, err)
		return OutcomeMalformed, nil
	}
	if reason := p.spam.Check(ev.PubKey, ex); reason != "" {
		log.T.F("event %s spam filtered: %s", ev.ID, reason)
		return OutcomeDroppedSpam, nil
	}

	d := p.buildDocument(ctx, ev, cls, ex)
	rec := &doc.EventRecord{
		EventID:        ev.ID,
		Pubkey:         ev.PubKey,
		Kind:           ev.Kind,
		EventCreatedAt: ev.CreatedAt.Time(),
		Tags:           tagMatrix(ev.Tags),
		QualityScore:   ex.QualityScore,
	}
	if _, err = p.docs.UpsertDocument(ctx, d, rec); err != nil {
		return OutcomeStoreError, err
	}
	return OutcomeIndexed, nil
}

// buildDocument maps the extraction onto the canonical record.
func (p *Pipeline) buildDocument(
	ctx context.T, ev *nostr.Event, cls Classification, ex *Extraction,
) (d *doc.Document) {
	attrs := map[string]any{
		"nostr": map[string]any{
			"event_id": ev.ID,
			"pubkey":   ev.PubKey,
			"kind":     ev.Kind,
		},
	}
	if ex.Metadata["author"] != "" {
		attrs["author"] = ex.Metadata["author"]
	} else {
		attrs["pubkey"] = ev.PubKey
	}
	d = &doc.Document{
		ExternalID:   ev.ID,
		SourceID:     doc.SourceNostr,
		Title:        ex.Title,
		Content:      ex.Body,
		URL:          ex.Metadata["url"],
		DocumentType: cls.DocumentType,
		ContentType:  cls.ContentType,
		CreatedAt:    ev.CreatedAt.Time(),
		UpdatedAt:    time.Now(),
		Attributes:   attrs,
		Tags:         ex.Tags,
		Metadata:     ex.Metadata,
	}
	if p.embed != nil {
		text := d.Title
		if text != "" {
			text += "\n"
		}
		text += d.Content
		if len(text) > 8000 {
			text = text[:8000]
		}
		vec, eerr := p.embed(ctx, text)
		if eerr != nil {
			// degraded indexing: lexical search still works
			log.W.F("embedding unavailable for %s: %v", ev.ID, eerr)
		} else {
			d.Embedding = vec
		}
	}
	return
}

// ProcessBatch runs a batch through the pipeline, absorbing per-event
// errors, and returns the outcome tally.
func (p *Pipeline) ProcessBatch(
	ctx context.T, events []*nostr.Event,
) (tally map[Outcome]int) {
	tally = make(map[Outcome]int)
	for _, ev := range events {
		if ctx.Err() != nil {
			return
		}
		o, err := p.Process(ctx, ev)
		if err != nil {
			log.E.F("indexing %s: %v", ev.ID, err)
		}
		tally[o]++
	}
	return
}

func tagMatrix(tags nostr.Tags) (m [][]string) {
	for _, t := range tags {
		m = append(m, []string(t))
	}
	return
}
