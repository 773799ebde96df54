// Package validate checks canonical company records against the unified
// schema before they are persisted or published.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bds-unify/internal/company"
)

//go:embed unified_schema.json
var schemaJSON []byte

const schemaURL = "https://bds-unify.local/schema/unified_schema.json"

var printer = message.NewPrinter(language.English)

// SchemaValidator validates records against the embedded Draft-7 schema.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded schema. It panics if the schema is invalid,
// which only a broken build can cause.
func New() *SchemaValidator {
	v, err := newValidator()
	if err != nil {
		panic(err)
	}
	return v
}

func newValidator() (*SchemaValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, eris.Wrap(err, "validate: parse schema")
	}
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft7)
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, eris.Wrap(err, "validate: add schema")
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, eris.Wrap(err, "validate: compile schema")
	}
	return &SchemaValidator{schema: sch}, nil
}

// Validate reports whether r conforms to the schema and, if not, every
// violation. Messages are prefixed with the offending path joined by " -> ".
func (v *SchemaValidator) Validate(r company.Record) (bool, []string) {
	inst, err := instance(r)
	if err != nil {
		return false, []string{err.Error()}
	}

	var errs []string
	if err := v.schema.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return false, []string{err.Error()}
		}
		errs = leafMessages(verr, errs)
		sort.Strings(errs)
	}

	// Symbols identify listings, so two entries may not share one even when
	// their exchanges differ.
	seen := make(map[string]bool, len(r.StockSymbols))
	for i, s := range r.StockSymbols {
		if s.Symbol != "" && seen[s.Symbol] {
			errs = append(errs, fmt.Sprintf("stock_symbols -> %d: symbol %q is repeated", i, s.Symbol))
		}
		seen[s.Symbol] = true
	}

	return len(errs) == 0, errs
}

// instance converts r to the generic JSON value the schema validates. Unset
// top-level values (null, "" or a zero timestamp) are removed so that
// required properties report as missing.
func instance(r company.Record) (any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "validate: encode record")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "validate: decode record")
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return doc, nil
	}
	for k, val := range obj {
		if val == nil || val == "" {
			delete(obj, k)
		}
	}
	if r.LastUpdated.IsZero() {
		delete(obj, "last_updated")
	}
	return obj, nil
}

func leafMessages(e *jsonschema.ValidationError, out []string) []string {
	if len(e.Causes) == 0 {
		msg := e.ErrorKind.LocalizedString(printer)
		if len(e.InstanceLocation) > 0 {
			msg = strings.Join(e.InstanceLocation, " -> ") + ": " + msg
		}
		return append(out, msg)
	}
	for _, c := range e.Causes {
		out = leafMessages(c, out)
	}
	return out
}

// BatchResult summarizes the validation of many records.
type BatchResult struct {
	Total          int                 `json:"total"`
	Valid          int                 `json:"valid"`
	Invalid        int                 `json:"invalid"`
	Errors         map[string][]string `json:"errors"`
	ValidationTime time.Time           `json:"validation_time"`
}

// ValidateBatch validates records, keying errors by record id (or
// "record_<i>" when the id is empty). With stopOnError it returns after the
// first invalid record.
func (v *SchemaValidator) ValidateBatch(records []company.Record, stopOnError bool) BatchResult {
	res := BatchResult{
		Total:          len(records),
		Errors:         make(map[string][]string),
		ValidationTime: time.Now().UTC(),
	}
	for i, r := range records {
		ok, errs := v.Validate(r)
		if ok {
			res.Valid++
			continue
		}
		res.Invalid++
		key := r.ID
		if key == "" {
			key = fmt.Sprintf("record_%d", i)
		}
		res.Errors[key] = errs
		if stopOnError {
			break
		}
	}
	return res
}
