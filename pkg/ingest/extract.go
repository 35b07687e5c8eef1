package ingest

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"beacon.dev/pkg/utils/errorf"
)

// Extraction is the output of the extractor chain for one event.
type Extraction struct {
	Title        string
	Body         string
	Tags         []string
	Metadata     map[string]string
	QualityScore float64
}

// Extractor mutates the extraction from one aspect of the event. Extractors
// are registered by name and looked up from the classification's declared
// list; unknown names are a classification bug and surface as
// MalformedEvent.
type Extractor func(ev *nostr.Event, ex *Extraction) error

var extractors = map[string]Extractor{
	"text":          extractText,
	"markdown":      extractMarkdown,
	"hashtags":      extractHashtags,
	"links":         extractLinks,
	"longform":      extractLongform,
	"profile":       extractProfile,
	"contacts":      extractContacts,
	"structured":    extractStructured,
	"video":         extractVideo,
	"file-metadata": extractFileMetadata,
}

// Extract runs the declared extractor chain over the event.
func Extract(ev *nostr.Event, cls Classification) (ex *Extraction, err error) {
	ex = &Extraction{Metadata: make(map[string]string)}
	for _, name := range cls.Extractors {
		fn, ok := extractors[name]
		if !ok {
			return nil, errorf.E("unknown extractor %q for kind %d", name, ev.Kind)
		}
		if err = fn(ev, ex); err != nil {
			return nil, err
		}
	}
	ex.QualityScore = quality(ev, cls, ex)
	return
}

func extractText(ev *nostr.Event, ex *Extraction) error {
	if ex.Body == "" {
		ex.Body = strings.TrimSpace(ev.Content)
	}
	return nil
}

var (
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	mdNoise   = regexp.MustCompile("[*_`>#]+")
)

func extractMarkdown(ev *nostr.Event, ex *Extraction) error {
	body := strings.TrimSpace(ev.Content)
	if ex.Title == "" {
		if m := mdHeading.FindStringSubmatch(body); m != nil {
			ex.Title = strings.TrimSpace(m[1])
		}
	}
	ex.Body = strings.TrimSpace(mdNoise.ReplaceAllString(body, ""))
	return nil
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

func extractHashtags(ev *nostr.Event, ex *Extraction) error {
	seen := make(map[string]struct{})
	push := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		ex.Tags = append(ex.Tags, tag)
	}
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "t" {
			push(t[1])
		}
	}
	for _, m := range hashtagPattern.FindAllStringSubmatch(ev.Content, -1) {
		push(m[1])
	}
	return nil
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

func extractLinks(ev *nostr.Event, ex *Extraction) error {
	links := linkPattern.FindAllString(ev.Content, -1)
	if len(links) > 0 {
		ex.Metadata["links"] = strings.Join(links, " ")
	}
	return nil
}

// extractLongform reads the NIP-23 tag set of long-form articles.
func extractLongform(ev *nostr.Event, ex *Extraction) error {
	for _, t := range ev.Tags {
		if len(t) < 2 {
			continue
		}
		switch t[0] {
		case "title":
			ex.Title = t[1]
		case "summary":
			ex.Metadata["summary"] = t[1]
		case "image":
			ex.Metadata["image"] = t[1]
		case "published_at":
			ex.Metadata["published_at"] = t[1]
		case "d":
			ex.Metadata["identifier"] = t[1]
		}
	}
	if ex.Body == "" {
		ex.Body = strings.TrimSpace(ev.Content)
	}
	return nil
}

type profileContent struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	About       string `json:"about"`
	Picture     string `json:"picture"`
	Website     string `json:"website"`
	NIP05       string `json:"nip05"`
}

func extractProfile(ev *nostr.Event, ex *Extraction) error {
	var p profileContent
	if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
		return errorf.W("malformed profile content in %s: %w", ev.ID, err)
	}
	ex.Title = p.Name
	if p.DisplayName != "" {
		ex.Title = p.DisplayName
	}
	ex.Body = p.About
	if p.Picture != "" {
		ex.Metadata["picture"] = p.Picture
	}
	if p.Website != "" {
		ex.Metadata["website"] = p.Website
	}
	if p.NIP05 != "" {
		ex.Metadata["nip05"] = p.NIP05
	}
	ex.Metadata["author"] = ev.PubKey
	return nil
}

func extractContacts(ev *nostr.Event, ex *Extraction) error {
	var count int
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "p" {
			count++
		}
	}
	ex.Metadata["contact_count"] = strconv.Itoa(count)
	return nil
}

// extractStructured scrapes the generic descriptive tags shared by listings,
// live events and publication indexes.
func extractStructured(ev *nostr.Event, ex *Extraction) error {
	for _, t := range ev.Tags {
		if len(t) < 2 || t[1] == "" {
			continue
		}
		switch t[0] {
		case "title", "name", "subject":
			if ex.Title == "" {
				ex.Title = t[1]
			}
		case "summary", "description":
			if ex.Body == "" {
				ex.Body = t[1]
			}
		case "price", "location", "status", "starts", "ends":
			ex.Metadata[t[0]] = t[1]
		case "d":
			ex.Metadata["identifier"] = t[1]
		}
	}
	if ex.Body == "" {
		ex.Body = strings.TrimSpace(ev.Content)
	}
	return nil
}

func extractVideo(ev *nostr.Event, ex *Extraction) error {
	for _, t := range ev.Tags {
		if len(t) < 2 {
			continue
		}
		switch t[0] {
		case "streaming", "recording":
			ex.Metadata[t[0]] = t[1]
		case "image":
			ex.Metadata["thumbnail"] = t[1]
		}
	}
	return nil
}

// extractFileMetadata reads NIP-94 file metadata tags.
func extractFileMetadata(ev *nostr.Event, ex *Extraction) error {
	for _, t := range ev.Tags {
		if len(t) < 2 {
			continue
		}
		switch t[0] {
		case "url":
			ex.Metadata["url"] = t[1]
		case "m":
			ex.Metadata["mime"] = t[1]
		case "x":
			ex.Metadata["sha256"] = t[1]
		case "size":
			ex.Metadata["size"] = t[1]
		case "alt":
			if ex.Title == "" {
				ex.Title = t[1]
			}
		}
	}
	if ex.Body == "" {
		ex.Body = strings.TrimSpace(ev.Content)
	}
	return nil
}

// quality scores an extraction in [0,1]: the kind's priority as the base,
// nudged by content substance.
func quality(ev *nostr.Event, cls Classification, ex *Extraction) float64 {
	score := float64(cls.Priority) / 10
	if len(ex.Body) > 280 {
		score += 0.1
	}
	if ex.Title != "" {
		score += 0.05
	}
	if len(ex.Tags) > 0 {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}
	return score
}
