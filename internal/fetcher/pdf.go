package fetcher

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

// ValidatePDF checks that the file is a structurally sound PDF with at least
// one page and returns the page count. Scanner output is occasionally
// truncated mid-upload; catching it here is much cheaper than at OCR time.
func ValidatePDF(path string) (int, error) {
	conf := model.NewDefaultConfiguration()

	if err := api.ValidateFile(path, conf); err != nil {
		return 0, eris.Wrapf(err, "fetcher: invalid pdf %s", path)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: page count %s", path)
	}
	if pages < 1 {
		return 0, eris.Errorf("fetcher: pdf %s has no pages", path)
	}
	return pages, nil
}
