package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LinkInfo is the response payload for the link info endpoint. CreatedBy
// is present only when the caller holds the viewIps capability and an
// origin record still exists for the link.
type LinkInfo struct {
	ID        string `json:"id"`
	Hash      string `json:"hash"` // hex of the BLAKE3 fingerprint
	Link      string `json:"link"`
	CreatedAt string `json:"created_at"`
	CreatedBy string `json:"created_by,omitempty"`
}
