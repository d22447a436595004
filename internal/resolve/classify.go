package resolve

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/docintake/internal/model"
)

// maxClassifyWorkers bounds the page-scan pool. Scans are CPU-bound string
// work, so the pool is capped regardless of document size.
const maxClassifyWorkers = 10

// ClassifyPages classifies every page of a document against the account
// roster. Pages are scanned concurrently (at most min(10, pageCount)
// workers); each worker writes only its own index of the results slice, and
// the assembled slice is returned in page order.
func ClassifyPages(ctx context.Context, pages []model.PageText, accounts []model.Account) ([]model.PageClassification, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	holders := model.AllHolders(accounts)
	results := make([]model.PageClassification, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(maxClassifyWorkers, len(pages)))
	for i, page := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = classifyPage(page, accounts, holders)
			zap.L().Debug("page classified",
				zap.Int("page_index", page.Index),
				zap.String("kind", string(results[i].Kind)),
				zap.Int("accounts", len(results[i].AccountIDs)),
				zap.Int("holder_matches", len(results[i].MatchedHolders)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve: classify pages")
	}

	return results, nil
}

// classifyPage applies the classification policy to a single page:
//
//	exactly one account number, no foreign holders -> Direct
//	two or more account references of any kind     -> Shared (union)
//	holder matches only                            -> HolderInferred
//	nothing                                        -> Unassociated
//
// A holder match counts toward every account that holder signs, so one
// person on a page can link several accounts.
func classifyPage(page model.PageText, accounts []model.Account, holders []model.Holder) model.PageClassification {
	direct := FindAccountNumbers(page.Text, accounts)
	matches := FindMatchingHolders(page.Text, holders)

	cls := model.PageClassification{
		PageIndex:      page.Index,
		MatchedHolders: make([]model.MatchedHolder, 0, len(matches)),
	}

	holderAccounts := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		holderAccounts[m.Holder.AccountID] = struct{}{}
		cls.MatchedHolders = append(cls.MatchedHolders, model.MatchedHolder{
			HolderID:   m.Holder.ID,
			AccountID:  m.Holder.AccountID,
			Confidence: m.Confidence,
			Reason:     m.Reason,
		})
	}

	switch {
	case len(direct) == 0 && len(holderAccounts) == 0:
		cls.Kind = model.KindUnassociated
	case len(direct) == 0:
		cls.Kind = model.KindHolderInferred
		cls.AccountIDs = sortedSet(nil, holderAccounts)
	case len(direct) == 1 && subsetOf(holderAccounts, direct[0]):
		cls.Kind = model.KindDirect
		cls.AccountIDs = direct
	default:
		// Several account numbers, or one number plus a holder from a
		// different account: the page serves multiple accounts.
		cls.Kind = model.KindShared
		cls.AccountIDs = sortedSet(direct, holderAccounts)
	}

	return cls
}

// AccountPages folds classifications into an account -> page-index mapping.
// Runs single-threaded after the scan pool has joined.
func AccountPages(classifications []model.PageClassification) map[string][]int {
	out := make(map[string][]int)
	for _, cls := range classifications {
		for _, id := range cls.AccountIDs {
			out[id] = append(out[id], cls.PageIndex)
		}
	}
	for id := range out {
		sort.Ints(out[id])
	}
	return out
}

func subsetOf(set map[string]struct{}, only string) bool {
	for id := range set {
		if id != only {
			return false
		}
	}
	return true
}

func sortedSet(ids []string, extra map[string]struct{}) []string {
	merged := make(map[string]struct{}, len(ids)+len(extra))
	for _, id := range ids {
		merged[id] = struct{}{}
	}
	for id := range extra {
		merged[id] = struct{}{}
	}
	out := make([]string, 0, len(merged))
	for id := range merged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
