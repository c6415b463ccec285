// Package handler contains the JSON HTTP handlers for the Previsk API.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
)

// maxRequestBody caps JSON request bodies. Photo uploads use multipart
// parsing with its own limit.
const maxRequestBody = 1 << 20 // 1 MB

// decodeJSON decodes the request body into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("handler.decode_json", "Invalid JSON request body")
	}
	// A second decode catches trailing garbage after the JSON value.
	if dec.More() {
		return domain.Invalid("handler.decode_json", "Request body must contain a single JSON object")
	}
	return nil
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// pathUUID parses the named path value as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path_uuid", "Invalid identifier in URL")
	}
	return id, nil
}

// optionalUUID parses an optional UUID string from a request body or query,
// returning nil when empty.
func optionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Invalid("handler.optional_uuid", "Invalid identifier")
	}
	return &id, nil
}
