package response

type StandardApiResponse struct {
	OK         bool        `json:"ok"`               // true on success
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Error      string      `json:"error,omitempty"`  // Machine-readable error code
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}
