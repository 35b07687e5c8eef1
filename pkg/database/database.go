// Package database is the postgres implementation of the store interfaces:
// the document index with its tsvector and pgvector columns, the ontology
// and dictionary tables, and the FRPEI audit and feedback log. One file per
// operation group; schema managed by embedded goose migrations.
package database

import (
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"beacon.dev/pkg/utils/chk"
	"beacon.dev/pkg/utils/context"
	"beacon.dev/pkg/utils/errorf"
	"beacon.dev/pkg/utils/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// D is the postgres-backed store. It implements store.Docs, store.Ontology,
// store.Feedback and store.RetrievalLog.
type D struct {
	db  *sqlx.DB
	dim int
}

// New connects, verifies the connection and runs pending migrations. dim is
// the deployment's fixed embedding dimension.
func New(ctx context.T, url string, dim int) (d *D, err error) {
	var db *sqlx.DB
	if db, err = sqlx.Open("pgx", url); chk.E(err) {
		return
	}
	if err = db.PingContext(ctx); chk.E(err) {
		return
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err = goose.SetDialect("postgres"); chk.E(err) {
		return
	}
	if err = goose.UpContext(ctx, db.DB, "migrations"); chk.E(err) {
		return
	}
	log.I.F("database connected, schema current")
	return &D{db: db, dim: dim}, nil
}

// Close releases the connection pool.
func (d *D) Close() (err error) { return d.db.Close() }

// checkDim rejects vectors that do not match the deployment dimension. A zero
// dim disables the check; empty vectors always pass.
func (d *D) checkDim(vec []float32) (err error) {
	if d.dim > 0 && len(vec) > 0 && len(vec) != d.dim {
		return errorf.E(
			"embedding has dimension %d, store expects %d", len(vec), d.dim)
	}
	return
}
