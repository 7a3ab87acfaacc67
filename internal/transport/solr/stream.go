package solr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrstream/internal/domain"
	"github.com/kailas-cloud/solrstream/internal/domain/query"
	"github.com/kailas-cloud/solrstream/internal/domain/tuple"
	"github.com/kailas-cloud/solrstream/internal/javabin"
)

// ErrPartitionKeysRequired is returned when more than one worker reads a shard
// without saying how to split it.
var ErrPartitionKeysRequired = errors.New(
	"partitionKeys must be set when numWorkers > 1; use partitionKeys=none to send the whole stream to each worker")

// Stream reads tuples from one core. It is not safe for concurrent use.
type Stream struct {
	baseURL   string
	params    *query.Params
	sctx      *StreamContext
	client    Client
	ownClient bool
	body      io.ReadCloser
	parser    *javabin.TupleParser
	done      bool
}

// NewStream creates an unopened stream against baseURL. params is read at Open.
func NewStream(baseURL string, params *query.Params) *Stream {
	return &Stream{baseURL: strings.TrimRight(baseURL, "/"), params: params}
}

// SetStreamContext attaches the client cache and partition descriptor.
func (s *Stream) SetStreamContext(sctx *StreamContext) {
	s.sctx = sctx
}

// BaseURL returns the core URL the stream reads from.
func (s *Stream) BaseURL() string { return s.baseURL }

// Open sends the request and reads the response preamble.
// The body stays open, bound to ctx, until Close.
func (s *Stream) Open(ctx context.Context) error {
	if s.body != nil {
		return fmt.Errorf("stream %s: already open", s.baseURL)
	}
	form, handler, err := s.requestParams()
	if err != nil {
		return err
	}
	if err := s.acquireClient(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+handler,
		strings.NewReader(form.String()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		herr := newHTTPError(resp)
		_ = resp.Body.Close()
		return herr
	}
	parser, err := javabin.NewTupleParser(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("read response %s: %w", s.baseURL, err)
	}
	s.body = resp.Body
	s.parser = parser
	return nil
}

// Read returns the next tuple, or io.EOF at end of stream.
// An EXCEPTION tuple is returned as a *StreamError.
func (s *Stream) Read() (*tuple.Tuple, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.parser == nil {
		return nil, fmt.Errorf("stream %s: not open", s.baseURL)
	}
	doc, err := s.parser.Next()
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil, io.EOF
	}
	if err != nil {
		s.done = true
		return nil, fmt.Errorf("read tuple %s: %w", s.baseURL, err)
	}
	t := tuple.FromMap(doc)
	if msg, ok := t.Exception(); ok {
		s.done = true
		return nil, &StreamError{URL: s.baseURL, Message: msg}
	}
	if t.IsEOF() {
		s.done = true
		return nil, io.EOF
	}
	return t, nil
}

// Close releases the response body and any client the stream created for itself.
func (s *Stream) Close() error {
	var errs []error
	if s.body != nil {
		if err := s.body.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close body: %w", err))
		}
		s.body = nil
	}
	if s.ownClient && s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client: %w", err))
		}
	}
	s.client = nil
	s.parser = nil
	s.done = true
	return errors.Join(errs...)
}

func (s *Stream) acquireClient() error {
	if s.sctx != nil && s.sctx.Cache != nil {
		cl, err := s.sctx.Cache.Get(s.baseURL)
		if err != nil {
			return err
		}
		s.client = cl
		return nil
	}
	s.client = NewHTTPClient(s.baseURL)
	s.ownClient = true
	return nil
}

// requestParams builds the wire parameters and the handler path.
func (s *Stream) requestParams() (*query.Params, string, error) {
	p := query.New("")
	if s.params != nil {
		p = s.params.Clone()
	}
	handler := p.RequestHandler()
	if handler == "" {
		handler = query.SelectHandler
	}
	if !strings.HasPrefix(handler, "/") {
		handler = "/" + handler
	}
	p.Del(query.ParamRequestHandler)
	p.Set(query.ParamWriterType, query.WriterJavabin)
	p.Set(query.ParamVersion, strconv.Itoa(javabin.Version))
	if !p.Has(query.ParamDistrib) {
		p.Set(query.ParamDistrib, "false")
	}

	var numWorkers, workerID int
	if s.sctx != nil {
		numWorkers, workerID = s.sctx.NumWorkers, s.sctx.WorkerID
	}
	if p.Has(query.ParamPartitionKeys) {
		if p.Get(query.ParamPartitionKeys) != query.PartitionKeysNone && numWorkers > 1 {
			p.AddFilterQuery(HashFilter(numWorkers, workerID))
		}
	} else if numWorkers > 1 {
		return nil, "", fmt.Errorf("stream %s: %w: %w", s.baseURL, domain.ErrInvalidQuery, ErrPartitionKeysRequired)
	}
	return p, handler, nil
}

// HashFilter is the filter that keeps the documents hashed to one worker.
func HashFilter(numWorkers, workerID int) string {
	return fmt.Sprintf("{!hash workers=%d worker=%d}", numWorkers, workerID)
}
