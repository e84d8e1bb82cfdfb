// Package schema implements the registry and validation described in spec
// §9: register/update/remove/lookup of named schemas, plus message
// validation against JSON Schema or a lightweight CBOR structural check.
// The registry's map+mutex shape follows internal/broker/service.go's
// Topic registry (register-by-id, list, lookup-by-predicate).
package schema

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hivellm/umicp-sub000/internal/umicp/errs"
)

// Type identifies the schema dialect a registered schema is expressed in.
type Type int

const (
	JSONSchema Type = iota
	CBORSchema
)

func (t Type) String() string {
	switch t {
	case JSONSchema:
		return "JSON_SCHEMA"
	case CBORSchema:
		return "CBOR_SCHEMA"
	default:
		return "UNKNOWN"
	}
}

// Entry is a single registered schema (spec §3 SchemaDefinition).
type Entry struct {
	ID                 string
	Name               string
	Type               Type
	Version            string
	Source             []byte   // raw schema document as supplied at registration
	CompatibleVersions []string // versions a consumer accepting this entry may receive

	compiled *jsonschema.Schema
}

// Stats counts validation outcomes for a registry over its lifetime.
type Stats struct {
	Validations int64
	Passed      int64
	Failed      int64
}

// Registry holds named/versioned schemas and validates messages against
// them. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	validations int64
	passed      int64
	failed      int64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a new schema under id, with the set of versions a consumer
// accepting this entry may receive (spec §3 SchemaDefinition.compatible_versions).
// Returns INVALID_ARGUMENT if id is already registered or the source fails
// to compile (for JSON_SCHEMA).
func (r *Registry) Register(id, name string, typ Type, version string, source []byte, compatibleVersions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return errs.Field(errs.InvalidArgument, "id", "schema id already registered")
	}

	entry := &Entry{
		ID:                 id,
		Name:               name,
		Type:               typ,
		Version:            version,
		Source:             append([]byte(nil), source...),
		CompatibleVersions: append([]string(nil), compatibleVersions...),
	}
	if typ == JSONSchema {
		compiled, err := compileJSONSchema(id, source)
		if err != nil {
			return err
		}
		entry.compiled = compiled
	}
	r.entries[id] = entry
	return nil
}

// Update replaces the source/version/compatible_versions of an existing
// schema in place.
func (r *Registry) Update(id, version string, source []byte, compatibleVersions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return errs.Field(errs.InvalidArgument, "id", "schema id not registered")
	}

	updated := &Entry{
		ID:                 entry.ID,
		Name:               entry.Name,
		Type:               entry.Type,
		Version:            version,
		Source:             append([]byte(nil), source...),
		CompatibleVersions: append([]string(nil), compatibleVersions...),
	}
	if entry.Type == JSONSchema {
		compiled, err := compileJSONSchema(id, source)
		if err != nil {
			return err
		}
		updated.compiled = compiled
	}
	r.entries[id] = updated
	return nil
}

// Remove deletes a schema by id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Get returns the schema registered under id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// GetAllIDs returns every registered schema id, in no particular order.
func (r *Registry) GetAllIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// FindByName returns every registered schema whose Name matches.
func (r *Registry) FindByName(name string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Entry
	for _, e := range r.entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// FindByType returns every registered schema of the given Type.
func (r *Registry) FindByType(typ Type) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Entry
	for _, e := range r.entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// ValidateMessage validates message against the schema registered under id.
func (r *Registry) ValidateMessage(id string, message []byte) error {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return errs.Field(errs.InvalidArgument, "id", "schema id not registered")
	}

	var err error
	switch entry.Type {
	case JSONSchema:
		err = validateJSON(entry, message)
	case CBORSchema:
		err = validateCBORStructural(entry, message)
	default:
		atomic.AddInt64(&r.validations, 1)
		atomic.AddInt64(&r.failed, 1)
		return errs.New(errs.NotImplemented, "unknown schema type")
	}

	atomic.AddInt64(&r.validations, 1)
	if err != nil {
		atomic.AddInt64(&r.failed, 1)
		return err
	}
	atomic.AddInt64(&r.passed, 1)
	return nil
}

// Stats returns a snapshot of validation counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Validations: atomic.LoadInt64(&r.validations),
		Passed:      atomic.LoadInt64(&r.passed),
		Failed:      atomic.LoadInt64(&r.failed),
	}
}

// IsSchemaCompatible reports whether targetVersion is in the registered
// schema id's compatible_versions set (spec §3/§4.5: "target_version must be
// a member of compatible_versions of the resolved schema").
func (r *Registry) IsSchemaCompatible(id, targetVersion string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return false, errs.Field(errs.InvalidArgument, "id", "schema id not registered")
	}
	for _, v := range entry.CompatibleVersions {
		if v == targetVersion {
			return true, nil
		}
	}
	return false, nil
}

// GetCompatibleVersions returns the stored compatible_versions set for a
// registered schema id (spec §4.5 get_compatible_versions(id)).
func (r *Registry) GetCompatibleVersions(id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, errs.Field(errs.InvalidArgument, "id", "schema id not registered")
	}
	return append([]string(nil), entry.CompatibleVersions...), nil
}

func compileJSONSchema(id string, source []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(source))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "malformed json schema document", err)
	}
	if err := compiler.AddResource(id, doc); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "json schema resource registration failed", err)
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "json schema compilation failed", err)
	}
	return compiled, nil
}

func validateJSON(entry *Entry, message []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(message))
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, "malformed json message", err)
	}
	if err := entry.compiled.Validate(inst); err != nil {
		return errs.Wrap(errs.InvalidArgument, "message failed json schema validation", err)
	}
	return nil
}

// validateCBORStructural decodes message as CBOR and checks its shape
// matches the entry's registered Source, used as a canonical example of the
// expected item: a map must validate against a map, an array against an
// array, and so on down to matching scalar kinds. CBOR_SCHEMA entries in
// this implementation describe shape, not a full schema language, so this
// is a structural check rather than a field-by-field one.
func validateCBORStructural(entry *Entry, message []byte) error {
	var got interface{}
	if err := cbor.Unmarshal(message, &got); err != nil {
		return errs.Wrap(errs.InvalidArgument, "malformed cbor message", err)
	}

	var want interface{}
	if err := cbor.Unmarshal(entry.Source, &want); err != nil {
		return errs.Wrap(errs.InvalidArgument, "malformed cbor schema source", err)
	}

	gotKind, wantKind := cborKind(got), cborKind(want)
	if gotKind != wantKind {
		return errs.Field(errs.InvalidArgument, "message", "cbor message kind "+gotKind+" does not match schema kind "+wantKind)
	}
	return nil
}

// cborKind classifies a CBOR-decoded value into a coarse structural
// category for comparison: map, array, or scalar.
func cborKind(v interface{}) string {
	switch v.(type) {
	case map[interface{}]interface{}, map[string]interface{}:
		return "map"
	case []interface{}:
		return "array"
	default:
		return "scalar"
	}
}
