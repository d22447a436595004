package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docintake/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithPool(mock), mock
}

func documentColumns() []string {
	return []string{"id", "source_key", "page_count", "status", "error", "created_at", "updated_at"}
}

func TestPostgres_CreateDocument(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs("drop/a.pdf", 8, "processing").
		WillReturnRows(pgxmock.NewRows(documentColumns()).
			AddRow("doc-1", "drop/a.pdf", 8, model.DocumentStatusProcessing, (*string)(nil), now, now))

	doc, err := s.CreateDocument(context.Background(), "drop/a.pdf", 8)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, model.DocumentStatusProcessing, doc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE documents SET status`).
		WithArgs("completed", "", "doc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateDocumentStatus(context.Background(), "doc-1", model.DocumentStatusCompleted, "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateDocumentStatusNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE documents SET status`).
		WithArgs("failed", "boom", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateDocumentStatus(context.Background(), "missing", model.DocumentStatusFailed, "boom")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestPostgres_GetDocumentNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM documents WHERE id`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(documentColumns()))

	_, err := s.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestPostgres_ListDocuments(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM documents WHERE 1=1 AND status`).
		WithArgs("completed", 100).
		WillReturnRows(pgxmock.NewRows(documentColumns()).
			AddRow("doc-1", "a.pdf", 3, model.DocumentStatusCompleted, (*string)(nil), now, now).
			AddRow("doc-2", "b.pdf", 5, model.DocumentStatusCompleted, (*string)(nil), now, now))

	docs, err := s.ListDocuments(context.Background(), DocumentFilter{Status: model.DocumentStatusCompleted})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.pdf", docs[1].SourceKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceAccounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM accounts`).
		WithArgs("doc-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs("acct-1", "doc-1", "8844", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO holders`).
		WithArgs("h-1", "acct-1", "Maria Delgado", "", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.ReplaceAccounts(context.Background(), "doc-1", []model.Account{
		{ID: "acct-1", Number: "8844", Holders: []model.Holder{
			{ID: "h-1", AccountID: "acct-1", FullName: "Maria Delgado"},
		}},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveClassificationsRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM page_classifications`).
		WithArgs("doc-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO page_classifications`).
		WithArgs("doc-1", 0, "direct", `["acct-1"]`, `null`).
		WillReturnError(eris.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveClassifications(context.Background(), "doc-1", []model.PageClassification{
		{PageIndex: 0, Kind: model.KindDirect, AccountIDs: []string{"acct-1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert classification")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ClassificationKindCounts(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT kind, COUNT\(\*\) FROM page_classifications`).
		WithArgs(since.UTC()).
		WillReturnRows(pgxmock.NewRows([]string{"kind", "count"}).
			AddRow("direct", 40).
			AddRow("unassociated", 3))

	counts, err := s.ClassificationKindCounts(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 40, counts[model.KindDirect])
	assert.Equal(t, 3, counts[model.KindUnassociated])
	assert.NoError(t, mock.ExpectationsWereMet())
}
