package httpapi

import (
	"encoding/json"
	"net/http"
)

// All responses share the {success, error_msg} envelope, with operation
// specific payload fields alongside.
type errorResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"error_msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, ErrorMsg: msg})
}
