package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/solrstream/internal/domain"
)

// ErrorCode is a machine-readable error code in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeCollectionNotFound ErrorCode = "collection_not_found"
	CodeShardNotFound      ErrorCode = "shard_not_found"
	CodeUnavailable        ErrorCode = "unavailable"
	CodeNotImplemented     ErrorCode = "not_implemented"
	CodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, CodeCollectionNotFound),
	sentinelHandler(domain.ErrShardNotFound, http.StatusNotFound, CodeShardNotFound),
	sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrClosed, http.StatusServiceUnavailable, CodeUnavailable),
	sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Only the sentinel's message reaches the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
