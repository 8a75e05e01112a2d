// Package validate parses candidate configuration documents and checks them
// against an application's JSON Schema.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON Schema together with its decoded document, which
// the normalizer walks.
type Schema struct {
	doc      map[string]any
	compiled *jsonschema.Schema
}

// Compile decodes and compiles a schema document. Name only labels errors.
func Compile(name string, raw []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema %s: %w", name, err)
	}

	url := "http://configbot.local/schemas/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	m, _ := doc.(map[string]any)
	return &Schema{doc: m, compiled: compiled}, nil
}

// Doc returns the decoded schema document, or nil for boolean schemas.
func (s *Schema) Doc() map[string]any { return s.doc }

// Validate checks instance against the schema. The error text lists every
// violation and is suitable for feeding back to the model.
func (s *Schema) Validate(instance any) error {
	if err := s.compiled.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return errors.New(strings.TrimSpace(verr.Error()))
		}
		return err
	}
	return nil
}

// ParseJSON decodes a single JSON document. Numbers are kept as json.Number so
// values round-trip unchanged. A key repeated within one object keeps its last
// value. Trailing data after the document is rejected.
func ParseJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("extra data after JSON value at offset %d", dec.InputOffset())
	}
	return v, nil
}

// DuplicateKey walks the token stream and reports the first object that sets
// the same key twice. It returns nil for clean or unparseable text.
func DuplicateKey(text string) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	type frame struct {
		object    bool
		keys      map[string]struct{}
		expectKey bool
	}
	var stack []*frame

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}

		var top *frame
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}

		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{':
				stack = append(stack, &frame{object: true, keys: map[string]struct{}{}, expectKey: true})
			case '[':
				stack = append(stack, &frame{})
			case '}', ']':
				stack = stack[:len(stack)-1]
				if len(stack) > 0 && stack[len(stack)-1].object {
					stack[len(stack)-1].expectKey = true
				}
			}
			if len(stack) == 0 {
				return nil
			}
			continue
		}

		if top == nil || !top.object {
			continue
		}
		if top.expectKey {
			key, _ := tok.(string)
			if _, dup := top.keys[key]; dup {
				return fmt.Errorf("duplicate key %q at offset %d", key, dec.InputOffset())
			}
			top.keys[key] = struct{}{}
			top.expectKey = false
			continue
		}
		top.expectKey = true
	}
}
