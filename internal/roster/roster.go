// Package roster supplies the known accounts and holders a document is
// resolved against. Rosters come from the document registry or are imported
// from bank-core exports (XLSX, CSV).
package roster

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/store"
)

// Provider resolves the account roster for a document.
type Provider interface {
	AccountsForDocument(ctx context.Context, documentID string) ([]model.Account, error)
}

// StoreProvider reads rosters from the document registry.
type StoreProvider struct {
	store store.Store
}

func NewStoreProvider(s store.Store) *StoreProvider {
	return &StoreProvider{store: s}
}

func (p *StoreProvider) AccountsForDocument(ctx context.Context, documentID string) ([]model.Account, error) {
	accounts, err := p.store.GetAccounts(ctx, documentID)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: load accounts for %s", documentID)
	}
	return accounts, nil
}

// Row is one flat roster row from an import file. AccountID may be empty, in
// which case rows group by account number.
type Row struct {
	AccountID     string
	AccountNumber string
	HolderName    string
	SSN           string
}

// GroupRows folds flat import rows into accounts with their holders,
// preserving file order. Rows with no holder name are skipped; rows with
// neither account id nor number are rejected.
func GroupRows(rows []Row) ([]model.Account, error) {
	var accounts []model.Account
	index := make(map[string]int)

	for i, r := range rows {
		name := strings.TrimSpace(r.HolderName)
		if name == "" {
			continue
		}

		key := strings.TrimSpace(r.AccountID)
		if key == "" {
			key = strings.TrimSpace(r.AccountNumber)
		}
		if key == "" {
			return nil, eris.Errorf("roster: row %d has neither account id nor account number", i+1)
		}

		pos, ok := index[key]
		if !ok {
			id := strings.TrimSpace(r.AccountID)
			if id == "" {
				id = uuid.New().String()
			}
			accounts = append(accounts, model.Account{
				ID:     id,
				Number: strings.TrimSpace(r.AccountNumber),
			})
			pos = len(accounts) - 1
			index[key] = pos
		}

		accounts[pos].Holders = append(accounts[pos].Holders, model.Holder{
			ID:        uuid.New().String(),
			AccountID: accounts[pos].ID,
			FullName:  name,
			SSN:       strings.TrimSpace(r.SSN),
		})
	}

	return accounts, nil
}
