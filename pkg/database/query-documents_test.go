package database

import (
	"testing"
	"time"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/utils/context"
)

func TestTsQuery(t *testing.T) {
	tests := []struct {
		name    string
		lexical []string
		phrases []string
		want    string
	}{
		{"terms only", []string{"bitcoin", "btc"}, nil, "(bitcoin | btc)"},
		{
			"phrase only", nil, []string{"lightning network"},
			"(lightning <-> network)",
		},
		{
			"terms and phrase", []string{"bitcoin"}, []string{"proof of work"},
			"(bitcoin) & (proof <-> of <-> work)",
		},
		{
			"multi word expansion", []string{"satoshi coin", "btc"}, nil,
			"((satoshi <-> coin) | btc)",
		},
		{
			"syntax stripped", []string{"a&b", "c|d!e"}, nil,
			"((a <-> b) | (c <-> d <-> e))",
		},
		{"empty after stripping", []string{"&&"}, nil, ""},
		{"nothing", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tsQuery(tt.lexical, tt.phrases); got != tt.want {
				t.Errorf("tsQuery(%v, %v) = %q, want %q",
					tt.lexical, tt.phrases, got, tt.want)
			}
		})
	}
}

func TestAppendFilters(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &doc.Filters{
		ContentType:  doc.ContentArticle,
		DocumentType: "article",
		Author:       "pk1",
		Since:        &since,
	}
	where, args := appendFilters(nil, []any{"seed"}, f)
	if len(where) != 4 {
		t.Fatalf("where = %v", where)
	}
	// placeholders continue after the seed argument
	if where[0] != "d.content_type = $2" {
		t.Errorf("first clause = %q", where[0])
	}
	if len(args) != 5 {
		t.Errorf("args = %v", args)
	}
}

func TestAppendFiltersAttributeKeys(t *testing.T) {
	f := &doc.Filters{Attributes: map[string]string{
		"nostr.kind":        "1",
		"bad'key; DROP ALL": "x",
	}}
	where, args := appendFilters(nil, nil, f)
	if len(where) != 1 || len(args) != 1 {
		t.Fatalf("unsafe attribute key survived: %v", where)
	}
	if where[0] != "d.attributes#>>'{nostr,kind}' = $1" {
		t.Errorf("clause = %q", where[0])
	}
}

func TestSafeAttrKey(t *testing.T) {
	for key, want := range map[string]bool{
		"nostr.kind": true,
		"author":     true,
		"a_b.c9":     true,
		"":           false,
		"a'b":        false,
		"a b":        false,
		"a-b":        false,
	} {
		if got := safeAttrKey(key); got != want {
			t.Errorf("safeAttrKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestSearchModeValidation(t *testing.T) {
	d, _ := mockDB(t)

	// vector and hybrid modes require an embedding
	for _, mode := range []doc.SearchMode{doc.ModeVector, doc.ModeHybrid} {
		if _, err := d.Search(context.Bg(), &doc.SearchQuery{
			Mode: mode, Lexical: []string{"x"}, Limit: 10,
		}); err == nil {
			t.Errorf("mode %s accepted without a vector", mode)
		}
	}

	// text mode with nothing to match is an empty result, not an error
	res, err := d.Search(context.Bg(), &doc.SearchQuery{
		Mode: doc.ModeText, Limit: 10,
	})
	if err != nil || res != nil {
		t.Errorf("empty text search = %v, %v", res, err)
	}

	if _, err = d.Search(context.Bg(), &doc.SearchQuery{
		Mode: "sideways", Lexical: []string{"x"},
	}); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	d, _ := mockDB(t)
	d.dim = 8
	if _, err := d.Search(context.Bg(), &doc.SearchQuery{
		Mode: doc.ModeVector, Vector: []float32{1, 2, 3}, Limit: 10,
	}); err == nil {
		t.Fatal("mismatched query vector accepted")
	}
}
