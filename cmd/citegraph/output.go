package main

import (
	"encoding/json"
	"io"
)

// ErrorResponse is written to stderr when a command fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

// outputJSON writes a value as formatted JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
