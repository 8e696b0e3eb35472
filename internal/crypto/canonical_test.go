package crypto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsObjectKeys(t *testing.T) {
	got, err := CanonicalizeJSON([]byte(`{"b":1,"a":2,"c":{"z":true,"y":null}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":{"y":null,"z":true}}`, string(got))
}

func TestCanonicalize_KeyOrderIndependent(t *testing.T) {
	first, err := CanonicalizeJSON([]byte(`{"id":"cred-1","type":["VerifiableCredential"],"issuer":"https://example.org"}`))
	require.NoError(t, err)
	second, err := CanonicalizeJSON([]byte(`{"issuer":"https://example.org","type":["VerifiableCredential"],"id":"cred-1"}`))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCanonicalize_NumberFormatting(t *testing.T) {
	cases := map[string]string{
		`1`:        "1",
		`1.0`:      "1",
		`-0`:       "0",
		`10.5`:     "10.5",
		`1e2`:      "100",
		`0.000001`: "0.000001",
		`1e-7`:     "1e-7",
		`1e21`:     "1e+21",
	}
	for in, want := range cases {
		got, err := CanonicalizeJSON([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, string(got), in)
	}
}

func TestCanonicalize_GoIntegerValues(t *testing.T) {
	// Caller-built documents carry native Go numbers, not just the
	// float64/json.Number values a decode produces.
	got, err := Canonicalize(map[string]any{
		"count":  42,
		"big":    int64(9007199254740991),
		"size":   uint32(1024),
		"offset": int16(-7),
		"ratio":  float32(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"big":9007199254740991,"count":42,"offset":-7,"ratio":0.5,"size":1024}`, string(got))
}

func TestCanonicalize_StringEscapes(t *testing.T) {
	got, err := Canonicalize(map[string]any{"s": "line\nbreak\ttab  \"quote\""})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"line\nbreak\ttab  \"quote\""}`, string(got))
}

func TestCanonicalize_RejectsInvalidInput(t *testing.T) {
	_, err := CanonicalizeJSON([]byte(`{"a":1} trailing`))
	assert.Error(t, err)

	_, err = CanonicalizeJSON([]byte(`{broken`))
	assert.Error(t, err)
}

func TestCanonicalize_StructsViaMarshal(t *testing.T) {
	type doc struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	got, err := Canonicalize(doc{B: "2", A: "1"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2"}`, string(got))
}

func TestCanonicalize_RawMessage(t *testing.T) {
	got, err := Canonicalize(json.RawMessage(`{"z":1,"a":[3,2,1]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[3,2,1],"z":1}`, string(got))
}
