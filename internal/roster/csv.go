package roster

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// ReadCSV parses a roster CSV with the same header contract as ReadXLSX.
// charset names the source encoding ("windows-1252", "iso-8859-1", ...);
// empty means UTF-8. Legacy bank-core exports are rarely UTF-8.
func ReadCSV(r io.Reader, charset string) ([]Row, error) {
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "roster: unsupported charset %q", charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("roster: csv is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "roster: read csv header")
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "roster: read csv row")
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, rowFromCells(record, cols))
	}
	return rows, nil
}
