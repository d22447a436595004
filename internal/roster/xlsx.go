package roster

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX parses a roster workbook. The first row must be a header naming
// the roster columns; recognized headers (case-insensitive) are account_id,
// account_number, holder_name, ssn, plus the aliases bank cores commonly
// emit. Extra columns are ignored.
func ReadXLSX(path string) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("roster: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("roster: xlsx sheet is empty")
	}

	cols, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, raw := range sheet.Rows[1:] {
		cells := rowToStrings(raw)
		if isBlank(cells) {
			continue
		}
		rows = append(rows, rowFromCells(cells, cols))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

// columnMap holds the index of each roster column, -1 when absent.
type columnMap struct {
	accountID     int
	accountNumber int
	holderName    int
	ssn           int
}

var headerAliases = map[string]string{
	"account_id":     "account_id",
	"accountid":      "account_id",
	"account_number": "account_number",
	"accountnumber":  "account_number",
	"account_no":     "account_number",
	"acct_no":        "account_number",
	"holder_name":    "holder_name",
	"holder":         "holder_name",
	"full_name":      "holder_name",
	"name":           "holder_name",
	"ssn":            "ssn",
	"tax_id":         "ssn",
	"taxid":          "ssn",
}

func mapHeader(header []string) (columnMap, error) {
	cols := columnMap{accountID: -1, accountNumber: -1, holderName: -1, ssn: -1}

	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		switch headerAliases[key] {
		case "account_id":
			cols.accountID = i
		case "account_number":
			cols.accountNumber = i
		case "holder_name":
			cols.holderName = i
		case "ssn":
			cols.ssn = i
		}
	}

	if cols.holderName < 0 {
		return cols, eris.New("roster: header has no holder name column")
	}
	if cols.accountID < 0 && cols.accountNumber < 0 {
		return cols, eris.New("roster: header has no account id or account number column")
	}
	return cols, nil
}

func rowFromCells(cells []string, cols columnMap) Row {
	return Row{
		AccountID:     cellAt(cells, cols.accountID),
		AccountNumber: cellAt(cells, cols.accountNumber),
		HolderName:    cellAt(cells, cols.holderName),
		SSN:           cellAt(cells, cols.ssn),
	}
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
