package database

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"beacon.dev/pkg/doc"
	"beacon.dev/pkg/utils/context"
)

// passthroughConverter lets pgx-native argument types (string slices, jsonb
// byte slices) through sqlmock unchanged.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	return v, nil
}

func mockDB(t *testing.T) (*D, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(passthroughConverter{}),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if merr := mock.ExpectationsWereMet(); merr != nil {
			t.Error(merr)
		}
		raw.Close()
	})
	return &D{db: sqlx.NewDb(raw, "sqlmock")}, mock
}

func TestUpsertDocumentReingest(t *testing.T) {
	d, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT document_id FROM nostr_events`).
		WithArgs("ev1").
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}).AddRow("doc-1"))
	mock.ExpectExec(`UPDATE nostr_events`).
		WithArgs("ev1", 0.8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := d.UpsertDocument(context.Bg(),
		&doc.Document{ExternalID: "ev1", SourceID: doc.SourceNostr},
		&doc.EventRecord{EventID: "ev1", QualityScore: 0.8})
	if err != nil {
		t.Fatal(err)
	}
	if id != "doc-1" {
		t.Errorf("id = %q, want the existing document", id)
	}
}

func TestUpsertDocumentInsert(t *testing.T) {
	d, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT document_id FROM nostr_events`).
		WithArgs("ev1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-2"))
	mock.ExpectExec(`INSERT INTO nostr_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM document_tags`).
		WithArgs("doc-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO document_tags`).
		WithArgs("doc-2", "nostr").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM document_metadata`).
		WithArgs("doc-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO document_metadata`).
		WithArgs("doc-2", "summary", "short").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := d.UpsertDocument(context.Bg(),
		&doc.Document{
			ExternalID:   "ev1",
			SourceID:     doc.SourceNostr,
			Title:        "note",
			Content:      "body",
			DocumentType: "note",
			ContentType:  doc.ContentText,
			CreatedAt:    time.Now(),
			Tags:         []string{"nostr"},
			Metadata:     map[string]string{"summary": "short"},
		},
		&doc.EventRecord{
			EventID: "ev1", Pubkey: "pk", Kind: 1,
			EventCreatedAt: time.Now(), QualityScore: 0.7,
		})
	if err != nil {
		t.Fatal(err)
	}
	if id != "doc-2" {
		t.Errorf("id = %q", id)
	}
}

func TestUpsertDocumentWithoutEvent(t *testing.T) {
	d, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-3"))
	mock.ExpectExec(`DELETE FROM document_tags`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM document_metadata`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	id, err := d.UpsertDocument(context.Bg(),
		&doc.Document{Title: "manual", Content: "no event"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "doc-3" {
		t.Errorf("id = %q", id)
	}
}

func TestUpsertDocumentRollbackOnError(t *testing.T) {
	d, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT document_id FROM nostr_events`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	if _, err := d.UpsertDocument(context.Bg(),
		&doc.Document{Title: "x"},
		&doc.EventRecord{EventID: "ev1"},
	); err == nil {
		t.Fatal("insert failure swallowed")
	}
}

func TestUpsertDocumentRejectsWrongDimension(t *testing.T) {
	d, _ := mockDB(t)
	d.dim = 8
	if _, err := d.UpsertDocument(context.Bg(), &doc.Document{
		Title: "x", Embedding: []float32{1, 2, 3},
	}, nil); err == nil {
		t.Fatal("mismatched embedding accepted")
	}
}

func TestDeleteDocument(t *testing.T) {
	d, mock := mockDB(t)
	mock.ExpectExec(`DELETE FROM documents WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := d.DeleteDocument(context.Bg(), "doc-1"); err != nil {
		t.Fatal(err)
	}
}
