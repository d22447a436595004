package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docintake/internal/model"
)

func TestClassifyPages_Direct(t *testing.T) {
	pages := []model.PageText{
		{Index: 0, Text: "Account Number: 4410-0123-45\nStatement for William S. Campbell"},
	}

	got, err := ClassifyPages(context.Background(), pages, testAccounts())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, model.KindDirect, got[0].Kind)
	assert.Equal(t, []string{"acct-1"}, got[0].AccountIDs)
	// The holder match is recorded even though the number already decided it.
	require.Len(t, got[0].MatchedHolders, 1)
	assert.Equal(t, "h-1", got[0].MatchedHolders[0].HolderID)
}

func TestClassifyPages_TwoAccountNumbersIsShared(t *testing.T) {
	pages := []model.PageText{
		{Index: 0, Text: "Internal transfer between 4410012345 and 4410067890"},
	}

	got, err := ClassifyPages(context.Background(), pages, testAccounts())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, model.KindShared, got[0].Kind)
	assert.Equal(t, []string{"acct-1", "acct-2"}, got[0].AccountIDs)
}

func TestClassifyPages_NumberPlusForeignHolderIsShared(t *testing.T) {
	pages := []model.PageText{
		{Index: 0, Text: "Account 4410012345\nAuthorized signer: Ronald Honore"},
	}

	got, err := ClassifyPages(context.Background(), pages, testAccounts())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, model.KindShared, got[0].Kind)
	assert.Equal(t, []string{"acct-1", "acct-2"}, got[0].AccountIDs)
}

func TestClassifyPages_HolderInferred(t *testing.T) {
	pages := []model.PageText{
		{Index: 0, Text: "Beneficiary designation\nRahmah Abdulla Gooba"},
	}

	got, err := ClassifyPages(context.Background(), pages, testAccounts())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, model.KindHolderInferred, got[0].Kind)
	assert.Equal(t, []string{"acct-1"}, got[0].AccountIDs)
}

func TestClassifyPages_CoSignerLinksEveryAccount(t *testing.T) {
	// The same person holds rows under two accounts.
	accounts := []model.Account{
		{ID: "acct-a", Holders: []model.Holder{
			{ID: "h-a", AccountID: "acct-a", FullName: "Dana Whitfield"},
		}},
		{ID: "acct-b", Holders: []model.Holder{
			{ID: "h-b", AccountID: "acct-b", FullName: "Dana Whitfield"},
		}},
	}
	pages := []model.PageText{
		{Index: 0, Text: "Signature: Dana Whitfield"},
	}

	got, err := ClassifyPages(context.Background(), pages, accounts)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, model.KindHolderInferred, got[0].Kind)
	assert.Equal(t, []string{"acct-a", "acct-b"}, got[0].AccountIDs)
	assert.Len(t, got[0].MatchedHolders, 2)
}

func TestClassifyPages_Unassociated(t *testing.T) {
	pages := []model.PageText{
		{Index: 0, Text: "This page intentionally left blank."},
	}

	got, err := ClassifyPages(context.Background(), pages, testAccounts())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, model.KindUnassociated, got[0].Kind)
	assert.Empty(t, got[0].AccountIDs)
	assert.Empty(t, got[0].MatchedHolders)
}

func TestClassifyPages_EmptyDocument(t *testing.T) {
	got, err := ClassifyPages(context.Background(), nil, testAccounts())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClassifyPages_ResultsKeepPageOrder(t *testing.T) {
	// More pages than the worker cap, each tied to its own account.
	var accounts []model.Account
	var pages []model.PageText
	for i := 0; i < 25; i++ {
		num := fmt.Sprintf("771100%02d", i)
		accounts = append(accounts, model.Account{
			ID:     fmt.Sprintf("acct-%02d", i),
			Number: num,
		})
		pages = append(pages, model.PageText{
			Index: i,
			Text:  "Account " + num,
		})
	}

	got, err := ClassifyPages(context.Background(), pages, accounts)
	require.NoError(t, err)
	require.Len(t, got, 25)

	for i, cls := range got {
		assert.Equal(t, i, cls.PageIndex)
		assert.Equal(t, model.KindDirect, cls.Kind)
		assert.Equal(t, []string{fmt.Sprintf("acct-%02d", i)}, cls.AccountIDs)
	}
}

func TestAccountPages_Aggregation(t *testing.T) {
	cls := []model.PageClassification{
		{PageIndex: 2, Kind: model.KindDirect, AccountIDs: []string{"a"}},
		{PageIndex: 0, Kind: model.KindShared, AccountIDs: []string{"a", "b"}},
		{PageIndex: 1, Kind: model.KindUnassociated},
	}

	got := AccountPages(cls)
	assert.Equal(t, map[string][]int{
		"a": {0, 2},
		"b": {0},
	}, got)
}
