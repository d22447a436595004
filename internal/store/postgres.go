package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/config"
	"github.com/sells-group/docintake/internal/db"
	"github.com/sells-group/docintake/internal/model"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects a pgx pool using the store configuration.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse database url")
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = 10
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	if poolCfg.MinConns < 0 {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying pool for bulk loads.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source_key TEXT NOT NULL UNIQUE,
	page_count INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'processing',
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
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
	document_id     UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page_index      INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	account_ids     JSONB NOT NULL,
	matched_holders JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (document_id, page_index)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_accounts_document_id ON accounts(document_id);
CREATE INDEX IF NOT EXISTS idx_holders_account_id ON holders(account_id);
CREATE INDEX IF NOT EXISTS idx_page_classifications_kind ON page_classifications(kind);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, sourceKey string, pageCount int) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (source_key, page_count, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, source_key, page_count, status, error, created_at, updated_at`,
		sourceKey, pageCount, string(model.DocumentStatusProcessing),
	)
	return scanPgDocument(row)
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, error = NULLIF($2, ''), updated_at = now() WHERE id = $3`,
		string(status), errMsg, documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document status %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", documentID)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source_key, page_count, status, error, created_at, updated_at FROM documents WHERE id = $1`,
		documentID,
	)
	return scanPgDocument(row)
}

func (s *PostgresStore) GetDocumentBySourceKey(ctx context.Context, sourceKey string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source_key, page_count, status, error, created_at, updated_at FROM documents WHERE source_key = $1`,
		sourceKey,
	)
	return scanPgDocument(row)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, source_key, page_count, status, error, created_at, updated_at FROM documents WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter.UTC())
		query += ` AND created_at > $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanPgDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) ReplaceAccounts(ctx context.Context, documentID string, accounts []model.Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace accounts")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE document_id = $1`, documentID); err != nil {
		return eris.Wrapf(err, "postgres: clear accounts for %s", documentID)
	}

	for pos, a := range accounts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts (id, document_id, number, position) VALUES ($1, $2, NULLIF($3, ''), $4)`,
			a.ID, documentID, a.Number, pos,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert account %s", a.ID)
		}
		for hpos, h := range a.Holders {
			if _, err := tx.Exec(ctx,
				`INSERT INTO holders (id, account_id, full_name, ssn, position) VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
				h.ID, a.ID, h.FullName, h.SSN, hpos,
			); err != nil {
				return eris.Wrapf(err, "postgres: insert holder %s", h.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace accounts")
}

func (s *PostgresStore) GetAccounts(ctx context.Context, documentID string) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(number, '') FROM accounts WHERE document_id = $1 ORDER BY position`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get accounts for %s", documentID)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Number); err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate accounts")
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

func (s *PostgresStore) getHolders(ctx context.Context, accountID string) ([]model.Holder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, full_name, COALESCE(ssn, '') FROM holders WHERE account_id = $1 ORDER BY position`,
		accountID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get holders for %s", accountID)
	}
	defer rows.Close()

	var holders []model.Holder
	for rows.Next() {
		var h model.Holder
		if err := rows.Scan(&h.ID, &h.FullName, &h.SSN); err != nil {
			return nil, eris.Wrap(err, "postgres: scan holder")
		}
		h.AccountID = accountID
		holders = append(holders, h)
	}
	return holders, eris.Wrap(rows.Err(), "postgres: iterate holders")
}

func (s *PostgresStore) SaveClassifications(ctx context.Context, documentID string, classifications []model.PageClassification) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save classifications")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM page_classifications WHERE document_id = $1`, documentID); err != nil {
		return eris.Wrapf(err, "postgres: clear classifications for %s", documentID)
	}

	for _, cls := range classifications {
		accountIDs, holders, err := marshalClassification(cls)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO page_classifications (document_id, page_index, kind, account_ids, matched_holders)
			 VALUES ($1, $2, $3, $4, $5)`,
			documentID, cls.PageIndex, string(cls.Kind), accountIDs, holders,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert classification page %d", cls.PageIndex)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save classifications")
}

func (s *PostgresStore) GetClassifications(ctx context.Context, documentID string) ([]model.PageClassification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT page_index, kind, account_ids, matched_holders FROM page_classifications
		 WHERE document_id = $1 ORDER BY page_index`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get classifications for %s", documentID)
	}
	defer rows.Close()

	var out []model.PageClassification
	for rows.Next() {
		var cls model.PageClassification
		var kind string
		var accountIDs, holders []byte
		if err := rows.Scan(&cls.PageIndex, &kind, &accountIDs, &holders); err != nil {
			return nil, eris.Wrap(err, "postgres: scan classification")
		}
		cls.Kind = model.ClassificationKind(kind)
		if err := json.Unmarshal(accountIDs, &cls.AccountIDs); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal account ids")
		}
		if err := json.Unmarshal(holders, &cls.MatchedHolders); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal matched holders")
		}
		out = append(out, cls)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate classifications")
}

func (s *PostgresStore) ClassificationKindCounts(ctx context.Context, since time.Time) (map[model.ClassificationKind]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT kind, COUNT(*) FROM page_classifications WHERE created_at > $1 GROUP BY kind`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: classification kind counts")
	}
	defer rows.Close()

	counts := make(map[model.ClassificationKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan kind count")
		}
		counts[model.ClassificationKind(kind)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: iterate kind counts")
}

func scanPgDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var errMsg *string

	err := row.Scan(&d.ID, &d.SourceKey, &d.PageCount, &d.Status, &errMsg, &d.CreatedAt, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "document")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan document")
	}
	if errMsg != nil {
		d.Error = *errMsg
	}
	return &d, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
