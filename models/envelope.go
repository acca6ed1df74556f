package models

import "encoding/json"

// Envelope is the JSON body of every gateway response.
// Success carries Data, failure carries Message.
type Envelope struct {
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Response code suffixes appended to an endpoint prefix such as TOKENS
const (
	CodeSuccess      = "_SUCCESS"
	CodeError        = "_ERROR"
	CodeCORS         = "_ERROR_CORS"
	CodeMissingParam = "_ERROR_MISSING_PARAM"
	CodeInvalidParam = "_ERROR_INVALID_PARAM"
)
