package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/solrstream/internal/domain"
)

// Well-known request parameter names.
const (
	ParamQuery          = "q"
	ParamFilterQuery    = "fq"
	ParamFields         = "fl"
	ParamSort           = "sort"
	ParamRows           = "rows"
	ParamRequestHandler = "qt"
	ParamWriterType     = "wt"
	ParamVersion        = "version"
	ParamDistrib        = "distrib"
	ParamPartitionKeys  = "partitionKeys"
)

const (
	// ExportHandler streams every matching document in sort order.
	ExportHandler = "/export"
	// SelectHandler is the paginated, scored search handler.
	SelectHandler = "/select"
	// WriterJavabin is the binary response encoding read by the tuple stream.
	WriterJavabin = "javabin"
	// PartitionKeysNone disables hash partitioning on a request.
	PartitionKeysNone = "none"
)

// Params is a multi-valued request parameter bag.
// The zero value is not usable; create one with New.
type Params struct {
	values url.Values
}

// New creates a parameter bag with the main query set. An empty q is left unset.
func New(q string) *Params {
	p := &Params{values: url.Values{}}
	if q != "" {
		p.Set(ParamQuery, q)
	}
	return p
}

// FromValues copies url.Values into a new parameter bag.
func FromValues(v url.Values) *Params {
	p := &Params{values: make(url.Values, len(v))}
	for k, vals := range v {
		p.values[k] = append([]string(nil), vals...)
	}
	return p
}

// Get returns the first value of name, or "" when absent.
func (p *Params) Get(name string) string {
	return p.values.Get(name)
}

// GetAll returns every value of name in insertion order.
func (p *Params) GetAll(name string) []string {
	vals := p.values[name]
	if len(vals) == 0 {
		return nil
	}
	return append([]string(nil), vals...)
}

// Has reports whether name has at least one value.
func (p *Params) Has(name string) bool {
	return len(p.values[name]) > 0
}

// Set replaces every value of name. Calling Set with no values removes name.
func (p *Params) Set(name string, vals ...string) *Params {
	if len(vals) == 0 {
		p.values.Del(name)
		return p
	}
	p.values[name] = append([]string(nil), vals...)
	return p
}

// Add appends a value to name.
func (p *Params) Add(name, val string) *Params {
	p.values.Add(name, val)
	return p
}

// Del removes name.
func (p *Params) Del(name string) *Params {
	p.values.Del(name)
	return p
}

// Query returns the main query.
func (p *Params) Query() string { return p.Get(ParamQuery) }

// FilterQueries returns the fq values.
func (p *Params) FilterQueries() []string { return p.GetAll(ParamFilterQuery) }

// AddFilterQuery appends filter queries.
func (p *Params) AddFilterQuery(fqs ...string) *Params {
	for _, fq := range fqs {
		p.values.Add(ParamFilterQuery, fq)
	}
	return p
}

// SetFilterQueries replaces the fq values.
func (p *Params) SetFilterQueries(fqs ...string) *Params {
	return p.Set(ParamFilterQuery, fqs...)
}

// RequestHandler returns the request handler path, or "" when unset.
func (p *Params) RequestHandler() string { return p.Get(ParamRequestHandler) }

// SetRequestHandler sets the request handler path.
func (p *Params) SetRequestHandler(handler string) *Params {
	return p.Set(ParamRequestHandler, handler)
}

// Rows returns the row limit and whether one is set.
func (p *Params) Rows() (int, bool) {
	v := p.Get(ParamRows)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetRows sets the row limit.
func (p *Params) SetRows(n int) *Params {
	return p.Set(ParamRows, strconv.Itoa(n))
}

// ClearRows removes any row limit.
func (p *Params) ClearRows() *Params {
	return p.Del(ParamRows)
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	return FromValues(p.values)
}

// Values returns a copy of the parameters as url.Values.
func (p *Params) Values() url.Values {
	return p.Clone().values
}

// Names returns the set parameter names.
func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	return names
}

// String renders the parameters as a sorted query string.
func (p *Params) String() string {
	return p.values.Encode()
}

// ValidateExport checks the parameters the export handler requires.
func (p *Params) ValidateExport() error {
	if p.RequestHandler() != "" && p.RequestHandler() != ExportHandler {
		return nil
	}
	var missing []string
	if !p.Has(ParamFields) {
		missing = append(missing, ParamFields)
	}
	if !p.Has(ParamSort) {
		missing = append(missing, ParamSort)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s handler requires %s", domain.ErrInvalidQuery,
			ExportHandler, strings.Join(missing, ", "))
	}
	return nil
}
