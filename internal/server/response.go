package server

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeMissingRequiredFields = "MISSING_REQUIRED_FIELDS"
	CodeConfiguration         = "CONFIGURATION_ERROR"
	CodeGitHubAPI             = "GITHUB_API_ERROR"
	CodePayloadTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeInternal              = "INTERNAL_ERROR"
)

// ErrorEnvelope is the body of every failed entry response.
type ErrorEnvelope struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Step    string   `json:"step,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, envelope ErrorEnvelope) {
	writeJSON(w, status, envelope)
}
