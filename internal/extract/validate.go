package extract

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ValidatePDF rejects uploads that are empty or do not look like a PDF.
func ValidatePDF(fileName string, data []byte) error {
	if len(data) == 0 {
		return common.InvalidInputError("uploaded file is empty")
	}
	if !constants.LooksLikePDF(fileName, data) {
		return common.InvalidInputErrorf("%q is not a PDF file", fileName)
	}
	return nil
}
