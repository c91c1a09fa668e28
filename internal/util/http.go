package util

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Redirect  string `json:"redirect,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, msg, reqID string) {
	WriteJSON(w, status, APIError{Code: code, Message: msg, RequestID: reqID})
}

// WriteRedirect reports a denied navigation; the browser shell follows Redirect.
func WriteRedirect(w http.ResponseWriter, status int, code, msg, redirect, reqID string) {
	WriteJSON(w, status, APIError{Code: code, Message: msg, Redirect: redirect, RequestID: reqID})
}
