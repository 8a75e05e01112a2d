package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchmakingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["namespace", "resources"],
  "properties": {
    "namespace": {"type": "string"},
    "replicas": {"type": "integer", "minimum": 1},
    "resources": {"type": "object"}
  }
}`

func TestCompileAndValidate(t *testing.T) {
	s, err := Compile("matchmaking", []byte(matchmakingSchema))
	require.NoError(t, err)
	require.NotNil(t, s.Doc())
	assert.Equal(t, "object", s.Doc()["type"])

	ok, err := ParseJSON(`{"namespace": "mm", "replicas": 3, "resources": {}}`)
	require.NoError(t, err)
	assert.NoError(t, s.Validate(ok))

	missing, err := ParseJSON(`{"namespace": "mm"}`)
	require.NoError(t, err)
	err = s.Validate(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resources")

	wrongType, err := ParseJSON(`{"namespace": "mm", "replicas": 0, "resources": {}}`)
	require.NoError(t, err)
	assert.Error(t, s.Validate(wrongType))
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	_, err := Compile("bad", []byte(`{"type": `))
	assert.Error(t, err)

	_, err = Compile("bad", []byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestParseJSONKeepsNumbers(t *testing.T) {
	v, err := ParseJSON(`{"big": 12345678901234567890, "f": 1.50}`)
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"big": 12345678901234567890, "f": 1.50}`, string(out))
	assert.Contains(t, string(out), "12345678901234567890")
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMsg string
	}{
		{name: "empty", in: "", wantMsg: "empty document"},
		{name: "prose", in: "Sorry, I can't", wantMsg: "invalid character"},
		{name: "truncated", in: `{"a": [1, 2`, wantMsg: "unexpected EOF"},
		{name: "trailing data", in: `{"a":1} and {"a":2}`, wantMsg: "extra data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseJSONLastDuplicateWins(t *testing.T) {
	v, err := ParseJSON(`{"namespace": "mm", "replicas": 2, "replicas": 3, "resources": {}}`)
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Len(t, m, 3)
	assert.Equal(t, json.Number("3"), m["replicas"])
}

func TestDuplicateKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMsg string
	}{
		{name: "root key", in: `{"services": {}, "namespace": "x", "services": {}}`, wantMsg: `duplicate key "services"`},
		{name: "nested key", in: `{"a": {"b": 1, "c": [{"d": 1, "d": 2}]}}`, wantMsg: `duplicate key "d"`},
		{name: "clean", in: `{"a": {"name": 1}, "b": {"name": 2}, "name": 3}`},
		{name: "not json", in: `Sorry, I can't`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DuplicateKey(tt.in)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseJSONSameKeyInSiblingObjects(t *testing.T) {
	v, err := ParseJSON(`{"a": {"name": 1}, "b": {"name": 2}, "c": [{"name": 3}, {"name": 4}], "name": 5}`)
	require.NoError(t, err)
	assert.Len(t, v.(map[string]any), 4)
}
