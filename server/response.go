package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeJSON answers API routes. They bypass the worker and must never be
// kept by a browser or intermediary cache.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: message, Status: status})
}
