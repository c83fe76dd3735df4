package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// BuildSystemPrompt tells the model which root and item fields to extract and
// nothing else.
func BuildSystemPrompt(api entity.APISchema) string {
	var b strings.Builder
	b.WriteString("You are an expert at extracting structured data from invoices and bank statements. ")
	b.WriteString("Extract all available information following the provided schema exactly.\n\n")
	b.WriteString("Schema fields to extract:\n")
	b.WriteString("Root fields: ")
	b.WriteString(strings.Join(api.RootNames(), ", "))
	b.WriteString("\nItem fields: ")
	b.WriteString(strings.Join(api.ItemNames(), ", "))
	b.WriteString("\n\nImportant: Only extract the fields specified above. Do not add any additional fields.")
	return b.String()
}

// BuildUserPrompt returns the document text as the user message. The file name is
// only a hint and goes first when known.
func BuildUserPrompt(req ExtractRequest) string {
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		return req.Text
	}
	return "File name: " + name + "\n\n" + req.Text
}
