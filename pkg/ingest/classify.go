package ingest

import (
	"beacon.dev/pkg/doc"
)

// Classification is the routing decision for one event kind: what category
// it belongs to, how important it is to the index, and which extractors run.
// Events with priority below MinIndexPriority are dropped silently.
type Classification struct {
	Category     string
	Priority     int
	Extractors   []string
	DocumentType string
	ContentType  doc.ContentType
}

// MinIndexPriority is the lowest priority that still reaches the index.
const MinIndexPriority = 3

// kindTable routes the kinds the crawler collects. Anything absent defaults
// to priority 2 (collected for discovery, never indexed); ephemeral kinds
// default to priority 1.
var kindTable = map[int]Classification{
	0: {
		Category: "profile", Priority: 5,
		Extractors:   []string{"profile"},
		DocumentType: "profile", ContentType: doc.ContentProfile,
	},
	1: {
		Category: "note", Priority: 7,
		Extractors:   []string{"text", "hashtags", "links"},
		DocumentType: "note", ContentType: doc.ContentText,
	},
	3: {
		Category: "contacts", Priority: 2,
		Extractors:   []string{"contacts"},
		DocumentType: "contacts", ContentType: doc.ContentStructured,
	},
	6: {
		Category: "repost", Priority: 2,
		Extractors:   []string{"text"},
		DocumentType: "repost", ContentType: doc.ContentText,
	},
	7: {
		Category: "reaction", Priority: 1,
		DocumentType: "reaction", ContentType: doc.ContentText,
	},
	1063: {
		Category: "file", Priority: 5,
		Extractors:   []string{"file-metadata"},
		DocumentType: "file", ContentType: doc.ContentStructured,
	},
	9735: {
		Category: "zap", Priority: 1,
		DocumentType: "zap", ContentType: doc.ContentStructured,
	},
	10002: {
		Category: "relay-list", Priority: 2,
		DocumentType: "relay_list", ContentType: doc.ContentStructured,
	},
	30023: {
		Category: "article", Priority: 9,
		Extractors:   []string{"longform", "markdown", "hashtags", "links"},
		DocumentType: "article", ContentType: doc.ContentArticle,
	},
	30024: {
		Category: "draft", Priority: 4,
		Extractors:   []string{"longform", "markdown"},
		DocumentType: "article_draft", ContentType: doc.ContentArticle,
	},
	30040: {
		Category: "publication-index", Priority: 5,
		Extractors:   []string{"structured"},
		DocumentType: "publication_index", ContentType: doc.ContentStructured,
	},
	30311: {
		Category: "live-event", Priority: 6,
		Extractors:   []string{"structured", "video"},
		DocumentType: "live_event", ContentType: doc.ContentVideo,
	},
	30402: {
		Category: "listing", Priority: 5,
		Extractors:   []string{"structured", "longform"},
		DocumentType: "listing", ContentType: doc.ContentStructured,
	},
}

// Classify routes an event kind.
func Classify(kind int) Classification {
	if c, ok := kindTable[kind]; ok {
		return c
	}
	if kind >= 20000 && kind < 30000 {
		// ephemeral range
		return Classification{Category: "ephemeral", Priority: 1}
	}
	return Classification{
		Category: "unknown", Priority: 2,
		Extractors:   []string{"text"},
		DocumentType: "unknown", ContentType: doc.ContentText,
	}
}
