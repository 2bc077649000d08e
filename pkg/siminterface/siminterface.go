// Package siminterface checks a registration descriptor against the simulator
// interface schema. The check is advisory: the platform validates descriptors
// itself, so problems found here are reported as warnings and never stop a
// registration.
package siminterface

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed schema/*.schema.json
var schemaFS embed.FS

const (
	baseURL      = "https://schemas.simbridge.dev/"
	interfaceURL = baseURL + "siminterface.schema.json"
	typesURL     = baseURL + "simtypes.schema.json"
)

var schemaFiles = map[string]string{
	interfaceURL: "schema/siminterface.schema.json",
	typesURL:     "schema/simtypes.schema.json",
}

// Report is the outcome of a check. An empty report means the descriptor
// matched the schema.
type Report struct {
	Warnings []string
}

// Valid reports whether no warnings were produced.
func (r Report) Valid() bool {
	return len(r.Warnings) == 0
}

func (r Report) String() string {
	if r.Valid() {
		return "ok"
	}
	return strings.Join(r.Warnings, "; ")
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func interfaceSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = compileSchema()
	})
	return compiledSchema, compileErr
}

// compileSchema compiles the interface schema. $refs resolve only to the two
// embedded documents.
func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		file, ok := schemaFiles[url]
		if !ok {
			return nil, fmt.Errorf("unsupported schema ref: %s", url)
		}
		return schemaFS.Open(file)
	}
	for url, file := range schemaFiles {
		b, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", file, err)
		}
		if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("failed to add schema resource: %w", err)
		}
	}
	s, err := compiler.Compile(interfaceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return s, nil
}

// Check validates descriptor against the interface schema. It never fails:
// schema violations, values that cannot be rendered as JSON and schema
// compilation problems all come back as warnings.
func Check(descriptor map[string]any) Report {
	schema, err := interfaceSchema()
	if err != nil {
		return Report{Warnings: []string{"unable to load interface schema: " + err.Error()}}
	}

	doc, err := normalize(descriptor)
	if err != nil {
		return Report{Warnings: []string{"descriptor is not representable as JSON: " + err.Error()}}
	}

	err = schema.Validate(doc)
	if err == nil {
		return Report{}
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return Report{Warnings: []string{err.Error()}}
	}
	return Report{Warnings: leafMessages(ve)}
}

// CheckJSON is Check for a descriptor that is still encoded.
func CheckJSON(data []byte) (map[string]any, Report) {
	var descriptor map[string]any
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, Report{Warnings: []string{"descriptor is not a JSON object: " + err.Error()}}
	}
	return descriptor, Check(descriptor)
}

// normalize round-trips the descriptor through JSON so the validator sees
// only the types it understands, with numbers kept exact.
func normalize(descriptor map[string]any) (any, error) {
	b, err := json.Marshal(descriptor)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// leafMessages flattens the error tree to its most specific causes.
func leafMessages(ve *jsonschema.ValidationError) []string {
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(msgs)
	return msgs
}
