package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/docintake/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	source_key TEXT NOT NULL UNIQUE,
	page_count INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'processing',
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	number      TEXT,
	position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS holders (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	full_name   TEXT NOT NULL,
	ssn         TEXT,
	position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS page_classifications (
	document_id     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page_index      INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	account_ids     TEXT NOT NULL,
	matched_holders TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (document_id, page_index)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_source_key ON documents(source_key);
CREATE INDEX IF NOT EXISTS idx_accounts_document_id ON accounts(document_id);
CREATE INDEX IF NOT EXISTS idx_holders_account_id ON holders(account_id);
CREATE INDEX IF NOT EXISTS idx_page_classifications_kind ON page_classifications(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, sourceKey string, pageCount int) (*model.Document, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, source_key, page_count, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sourceKey, pageCount, string(model.DocumentStatusProcessing), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert document %s", sourceKey)
	}

	return &model.Document{
		ID:        id,
		SourceKey: sourceKey,
		PageCount: pageCount,
		Status:    model.DocumentStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(errMsg), time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document status %s", documentID)
	}
	return checkRowsAffected(res, "document", documentID)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_key, page_count, status, error, created_at, updated_at FROM documents WHERE id = ?`,
		documentID,
	)
	return scanDocument(row)
}

func (s *SQLiteStore) GetDocumentBySourceKey(ctx context.Context, sourceKey string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_key, page_count, status, error, created_at, updated_at FROM documents WHERE source_key = ?`,
		sourceKey,
	)
	return scanDocument(row)
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, source_key, page_count, status, error, created_at, updated_at FROM documents WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) ReplaceAccounts(ctx context.Context, documentID string, accounts []model.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace accounts")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE document_id = ?`, documentID); err != nil {
		return eris.Wrapf(err, "sqlite: clear accounts for %s", documentID)
	}

	for pos, a := range accounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, document_id, number, position) VALUES (?, ?, ?, ?)`,
			a.ID, documentID, nullString(a.Number), pos,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert account %s", a.ID)
		}
		for hpos, h := range a.Holders {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO holders (id, account_id, full_name, ssn, position) VALUES (?, ?, ?, ?, ?)`,
				h.ID, a.ID, h.FullName, nullString(h.SSN), hpos,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert holder %s", h.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace accounts")
}

func (s *SQLiteStore) GetAccounts(ctx context.Context, documentID string) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number FROM accounts WHERE document_id = ? ORDER BY position`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get accounts for %s", documentID)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		var number sql.NullString
		if err := rows.Scan(&a.ID, &number); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan account")
		}
		a.Number = number.String
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate accounts")
	}

	for i := range accounts {
		holders, err := s.getHolders(ctx, accounts[i].ID)
		if err != nil {
			return nil, err
		}
		accounts[i].Holders = holders
	}
	return accounts, nil
}

func (s *SQLiteStore) getHolders(ctx context.Context, accountID string) ([]model.Holder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, full_name, ssn FROM holders WHERE account_id = ? ORDER BY position`,
		accountID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get holders for %s", accountID)
	}
	defer rows.Close()

	var holders []model.Holder
	for rows.Next() {
		var h model.Holder
		var ssn sql.NullString
		if err := rows.Scan(&h.ID, &h.FullName, &ssn); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan holder")
		}
		h.AccountID = accountID
		h.SSN = ssn.String
		holders = append(holders, h)
	}
	return holders, eris.Wrap(rows.Err(), "sqlite: iterate holders")
}

func (s *SQLiteStore) SaveClassifications(ctx context.Context, documentID string, classifications []model.PageClassification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save classifications")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_classifications WHERE document_id = ?`, documentID); err != nil {
		return eris.Wrapf(err, "sqlite: clear classifications for %s", documentID)
	}

	now := time.Now().UTC()
	for _, cls := range classifications {
		accountIDs, holders, err := marshalClassification(cls)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_classifications (document_id, page_index, kind, account_ids, matched_holders, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			documentID, cls.PageIndex, string(cls.Kind), accountIDs, holders, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert classification page %d", cls.PageIndex)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save classifications")
}

func (s *SQLiteStore) GetClassifications(ctx context.Context, documentID string) ([]model.PageClassification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page_index, kind, account_ids, matched_holders FROM page_classifications
		 WHERE document_id = ? ORDER BY page_index`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get classifications for %s", documentID)
	}
	defer rows.Close()

	var out []model.PageClassification
	for rows.Next() {
		var cls model.PageClassification
		var kind, accountIDs, holders string
		if err := rows.Scan(&cls.PageIndex, &kind, &accountIDs, &holders); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan classification")
		}
		if err := unmarshalClassification(&cls, kind, accountIDs, holders); err != nil {
			return nil, err
		}
		out = append(out, cls)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate classifications")
}

func (s *SQLiteStore) ClassificationKindCounts(ctx context.Context, since time.Time) (map[model.ClassificationKind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM page_classifications WHERE created_at > ? GROUP BY kind`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: classification kind counts")
	}
	defer rows.Close()

	counts := make(map[model.ClassificationKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan kind count")
		}
		counts[model.ClassificationKind(kind)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: iterate kind counts")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*model.Document, error) {
	var d model.Document
	var errMsg sql.NullString

	err := row.Scan(&d.ID, &d.SourceKey, &d.PageCount, &d.Status, &errMsg, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "document")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan document")
	}
	d.Error = errMsg.String
	return &d, nil
}

func marshalClassification(cls model.PageClassification) (string, string, error) {
	accountIDs, err := json.Marshal(cls.AccountIDs)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal account ids")
	}
	holders, err := json.Marshal(cls.MatchedHolders)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal matched holders")
	}
	return string(accountIDs), string(holders), nil
}

func unmarshalClassification(cls *model.PageClassification, kind, accountIDs, holders string) error {
	cls.Kind = model.ClassificationKind(kind)
	if err := json.Unmarshal([]byte(accountIDs), &cls.AccountIDs); err != nil {
		return eris.Wrap(err, "store: unmarshal account ids")
	}
	if err := json.Unmarshal([]byte(holders), &cls.MatchedHolders); err != nil {
		return eris.Wrap(err, "store: unmarshal matched holders")
	}
	return nil
}
