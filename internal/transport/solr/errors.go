package solr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kailas-cloud/solrstream/internal/domain"
)

const maxErrorBody = 512

// HTTPError is a non-200 answer from a node.
type HTTPError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.URL, e.StatusCode, e.Message)
}

// StreamError is an exception reported by the engine inside the tuple stream.
type StreamError struct {
	URL     string
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.URL, domain.ErrStreamException, e.Message)
}

func (e *StreamError) Unwrap() error { return domain.ErrStreamException }

// newHTTPError drains at most maxErrorBody bytes and extracts error.msg from a JSON body.
func newHTTPError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		URL:        resp.Request.URL.Redacted(),
		StatusCode: resp.StatusCode,
		Message:    extractMessage(body),
	}
}

func extractMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Msg string `json:"msg"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Msg != "" {
		return parsed.Error.Msg
	}
	return strings.TrimSpace(string(body))
}
