package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the success wrapper: every 2xx body with content is
// {"data": ...}, mirroring the {"error": ...} shape on failures.
type Envelope struct {
	Data any `json:"data"`
}

// WriteJSON encodes v with the given status. A Content-Type set earlier by a
// handler wins.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
