// Package main is beaconctl, the admin companion of the search engine: it
// talks straight to the database for ontology import and export and for
// document removal, without going through the HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alexflint/go-arg"

	"beacon.dev/pkg/database"
	"beacon.dev/pkg/ontology"
	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/lol"
	"beacon.dev/pkg/version"
)

type ontologyImportCmd struct {
	File string `arg:"positional,required" help:"JSON file with {concepts, dictionary}"`
}

type ontologyExportCmd struct {
	File string `arg:"positional" help:"output file, stdout when omitted"`
}

type documentDeleteCmd struct {
	ID string `arg:"positional,required" help:"document id to remove"`
}

type args struct {
	OntologyImport *ontologyImportCmd `arg:"subcommand:ontology-import" help:"replace the concept graph and dictionary"`
	OntologyExport *ontologyExportCmd `arg:"subcommand:ontology-export" help:"export the concept graph and dictionary"`
	DocumentDelete *documentDeleteCmd `arg:"subcommand:document-delete" help:"delete a document and its event record"`
	DatabaseURL    string             `arg:"--database-url,env:BEACON_DATABASE_URL" help:"postgres connection URL"`
	LogLevel       string             `arg:"--log-level,env:BEACON_LOG_LEVEL" default:"warn"`
}

func (args) Version() string { return "beaconctl " + version.V }

// dump mirrors the HTTP ontology wire form.
type dump struct {
	Concepts   []*ontology.Concept         `json:"concepts"`
	Dictionary []*ontology.DictionaryEntry `json:"dictionary,omitempty"`
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("a subcommand is required")
	}
	lol.SetLogLevel(a.LogLevel)
	if a.DatabaseURL == "" {
		fail("database URL is required (--database-url or BEACON_DATABASE_URL)")
	}
	c := context.Bg()
	db, err := database.New(c, a.DatabaseURL, 0)
	if chk.E(err) {
		fail("connect: %v", err)
	}
	defer func() { chk.E(db.Close()) }()

	switch {
	case a.OntologyImport != nil:
		runImport(c, db, a.OntologyImport)
	case a.OntologyExport != nil:
		runExport(c, db, a.OntologyExport)
	case a.DocumentDelete != nil:
		if err = db.DeleteDocument(c, a.DocumentDelete.ID); chk.E(err) {
			fail("delete: %v", err)
		}
		fmt.Printf("deleted %s\n", a.DocumentDelete.ID)
	}
}

func runImport(c context.T, db *database.D, cmd *ontologyImportCmd) {
	raw, err := os.ReadFile(cmd.File)
	if chk.E(err) {
		fail("read %s: %v", cmd.File, err)
	}
	var d dump
	if err = json.Unmarshal(raw, &d); chk.E(err) {
		fail("parse %s: %v", cmd.File, err)
	}
	if err = db.ImportConcepts(c, d.Concepts, d.Dictionary); chk.E(err) {
		fail("import: %v", err)
	}
	fmt.Printf("imported %d concepts, %d dictionary entries\n",
		len(d.Concepts), len(d.Dictionary))
}

func runExport(c context.T, db *database.D, cmd *ontologyExportCmd) {
	concepts, dict, err := db.ExportConcepts(c)
	if chk.E(err) {
		fail("export: %v", err)
	}
	out, err := json.MarshalIndent(dump{Concepts: concepts, Dictionary: dict},
		"", "  ")
	if chk.E(err) {
		fail("encode: %v", err)
	}
	out = append(out, '\n')
	if cmd.File == "" {
		_, _ = os.Stdout.Write(out)
		return
	}
	if err = os.WriteFile(cmd.File, out, 0o644); chk.E(err) {
		fail("write %s: %v", cmd.File, err)
	}
}

func fail(format string, v ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
