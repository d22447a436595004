package roster

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/docintake/internal/db"
	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/store"
)

// Read parses a roster file by extension (.xlsx or .csv).
func Read(path, charset string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "roster: open csv")
		}
		defer f.Close()
		return ReadCSV(f, charset)
	default:
		return nil, eris.Errorf("roster: unsupported file type %q", filepath.Ext(path))
	}
}

// Import groups rows and stores them as the roster for a document.
func Import(ctx context.Context, s store.Store, documentID string, rows []Row) ([]model.Account, error) {
	accounts, err := GroupRows(rows)
	if err != nil {
		return nil, err
	}

	if err := s.ReplaceAccounts(ctx, documentID, accounts); err != nil {
		return nil, eris.Wrapf(err, "roster: import for %s", documentID)
	}

	zap.L().Info("roster imported",
		zap.String("document_id", documentID),
		zap.Int("accounts", len(accounts)),
		zap.Int("holders", len(model.AllHolders(accounts))))
	return accounts, nil
}

// BulkLoad writes a grouped roster straight into Postgres with COPY. Used by
// the import command for large rosters where row-at-a-time inserts are too
// slow; the SQLite path goes through Import instead.
func BulkLoad(ctx context.Context, pool db.Pool, documentID string, accounts []model.Account) error {
	accountRows := make([][]any, 0, len(accounts))
	var holderRows [][]any

	for pos, a := range accounts {
		accountRows = append(accountRows, []any{a.ID, documentID, a.Number, pos})
		for hpos, h := range a.Holders {
			holderRows = append(holderRows, []any{h.ID, a.ID, h.FullName, h.SSN, hpos})
		}
	}

	if _, err := db.CopyFrom(ctx, pool, "accounts",
		[]string{"id", "document_id", "number", "position"}, accountRows); err != nil {
		return err
	}
	if _, err := db.CopyFrom(ctx, pool, "holders",
		[]string{"id", "account_id", "full_name", "ssn", "position"}, holderRows); err != nil {
		return err
	}
	return nil
}
