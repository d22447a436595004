package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRows_GroupsByAccountID(t *testing.T) {
	rows := []Row{
		{AccountID: "acct-1", AccountNumber: "8844", HolderName: "Maria Delgado", SSN: "123-45-6789"},
		{AccountID: "acct-1", AccountNumber: "8844", HolderName: "Luis Delgado"},
		{AccountID: "acct-2", HolderName: "Chen Wei"},
	}

	accounts, err := GroupRows(rows)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "acct-1", accounts[0].ID)
	assert.Equal(t, "8844", accounts[0].Number)
	require.Len(t, accounts[0].Holders, 2)
	assert.Equal(t, "Maria Delgado", accounts[0].Holders[0].FullName)
	assert.Equal(t, "123-45-6789", accounts[0].Holders[0].SSN)
	assert.Equal(t, "acct-1", accounts[0].Holders[0].AccountID)

	require.Len(t, accounts[1].Holders, 1)
	assert.NotEmpty(t, accounts[1].Holders[0].ID)
}

func TestGroupRows_FallsBackToAccountNumber(t *testing.T) {
	rows := []Row{
		{AccountNumber: "9001", HolderName: "Ana Silva"},
		{AccountNumber: "9001", HolderName: "Pedro Silva"},
	}

	accounts, err := GroupRows(rows)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.NotEmpty(t, accounts[0].ID) // generated
	assert.Equal(t, "9001", accounts[0].Number)
	assert.Len(t, accounts[0].Holders, 2)
}

func TestGroupRows_SkipsEmptyHolderNames(t *testing.T) {
	rows := []Row{
		{AccountID: "acct-1", HolderName: "  "},
		{AccountID: "acct-1", HolderName: "Real Person"},
	}

	accounts, err := GroupRows(rows)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Len(t, accounts[0].Holders, 1)
}

func TestGroupRows_RejectsRowWithNoAccount(t *testing.T) {
	_, err := GroupRows([]Row{{HolderName: "Orphan Holder"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither account id nor account number")
}

func TestReadCSV_UTF8(t *testing.T) {
	in := strings.NewReader(`account_number,holder_name,ssn
9001,Ana Silva,111-22-3333
9001,Pedro Silva,
9002,Chen Wei,444-55-6666
`)

	rows, err := ReadCSV(in, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "9001", rows[0].AccountNumber)
	assert.Equal(t, "Ana Silva", rows[0].HolderName)
	assert.Equal(t, "111-22-3333", rows[0].SSN)
	assert.Empty(t, rows[1].SSN)
}

func TestReadCSV_HeaderAliases(t *testing.T) {
	in := strings.NewReader("Acct_No,Name,Tax_ID\n9001,Ana Silva,111\n")

	rows, err := ReadCSV(in, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9001", rows[0].AccountNumber)
	assert.Equal(t, "Ana Silva", rows[0].HolderName)
	assert.Equal(t, "111", rows[0].SSN)
}

func TestReadCSV_Latin1(t *testing.T) {
	// "José Muñoz" in ISO-8859-1: é = 0xE9, ñ = 0xF1.
	raw := "account_number,holder_name\n9001,Jos\xe9 Mu\xf1oz\n"

	rows, err := ReadCSV(strings.NewReader(raw), "iso-8859-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "José Muñoz", rows[0].HolderName)
}

func TestReadCSV_MissingHolderColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("account_number,foo\n1,2\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no holder name column")
}

func TestReadCSV_UnknownCharset(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n"), "klingon-8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestMapHeader_NormalizesSpacesAndCase(t *testing.T) {
	cols, err := mapHeader([]string{"Account Number", "Holder Name", "SSN"})
	require.NoError(t, err)
	assert.Equal(t, 0, cols.accountNumber)
	assert.Equal(t, 1, cols.holderName)
	assert.Equal(t, 2, cols.ssn)
	assert.Equal(t, -1, cols.accountID)
}
