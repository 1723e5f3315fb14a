package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/relay/pkg/proxy/types"
)

// WriteJSONResponse writes data as a JSON response with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteCallerResponse writes resp verbatim. The body is not re-encoded so
// upstream payloads reach the caller byte for byte.
func WriteCallerResponse(w http.ResponseWriter, resp types.CallerResponse) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteCallerResponse(w, types.NewErrorResponse(statusCode, message, nil))
}
