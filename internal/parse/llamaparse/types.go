package llamaparse

// Job states reported by the parsing API.
const (
	StatusPending  = "PENDING"
	StatusSuccess  = "SUCCESS"
	StatusError    = "ERROR"
	StatusCanceled = "CANCELED"
)

type jobResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type markdownResult struct {
	Markdown    string `json:"markdown"`
	JobMetadata struct {
		JobPages int `json:"job_pages"`
	} `json:"job_metadata"`
}

type apiError struct {
	Detail any `json:"detail"`
}
