package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", IRNull{}, "null"},
		{"nil", nil, "null"},
		{"string", IRString("orders"), `"orders"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"min int64", IRInt(-9223372036854775808), "-9223372036854775808"},
		{"bool", IRBool(false), "false"},
		{"decimal", MustIRDecimal("1.50"), "1.50"},
		{"decimal exponent expanded", MustIRDecimal("1.5E+3"), "1500"},
		{"negative decimal", MustIRDecimal("-0.25"), "-0.25"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"go string", "x", `"x"`},
		{"go int", 7, "7"},
		{"go slice", []any{int64(1), "two", true}, `[1,"two",true]`},
		{"go map", map[string]any{"nullable": true, "column": "a"}, `{"column":"a","nullable":true}`},
		{
			"sorted nested keys",
			IRObject{
				"right": IRObject{"param": IRString("p"), "kind": IRString("parameter")},
				"op":    IRString("="),
				"left":  IRObject{"name": IRString("a"), "kind": IRString("column")},
			},
			`{"left":{"kind":"column","name":"a"},"op":"=","right":{"kind":"parameter","param":"p"}}`,
		},
		{"object null value", IRObject{"value": IRNull{}}, `{"value":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 even though its UTF-8 bytes sort after.
	obj := IRObject{
		"\uE000":     IRInt(1),
		"\U00010000": IRInt(2),
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonical_StringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"html kept", "a < b && c > d", `"a < b && c > d"`},
		{"line separators kept", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
		{"literal escape text", `LIKE '\u2028'`, `"LIKE '\\u2028'"`},
		{"literal and real", "\\u2029 and \u2029", "\"\\\\u2029 and \u2029\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	a, err := MarshalCanonical(IRObject{composed: IRString(composed)})
	require.NoError(t, err)
	b, err := MarshalCanonical(IRObject{decomposed: IRString(decomposed)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"float64", 3.14, "float"},
		{"float32", float32(1), "float"},
		{"float32 in array", []any{int64(1), float32(2.5)}, "float32"},
		{"struct", struct{}{}, "unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarshalCanonical_Idempotent(t *testing.T) {
	shapes := []IRValue{
		IRString("SELECT"),
		IRArray{IRInt(1), IRString("two"), IRBool(false)},
		IRObject{
			"kind":    IRString("select"),
			"project": IRArray{IRObject{"column": IRString("id"), "table": IRString("o")}},
			"limit":   IRNull{},
		},
	}
	for _, shape := range shapes {
		first, err := MarshalCanonical(shape)
		require.NoError(t, err)

		decoded, err := UnmarshalIRValue(first)
		require.NoError(t, err)

		second, err := MarshalCanonical(decoded)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"kind":"column","name":"a"}`)
	f.Add(`[1,2,3]`)
	f.Add(`"orders"`)
	f.Add(`{"left":{"right":{"value":null}}}`)

	f.Fuzz(func(t *testing.T, input string) {
		val, err := UnmarshalIRValue([]byte(input))
		if err != nil {
			t.Skip()
		}
		first, err := MarshalCanonical(val)
		if err != nil {
			t.Skip()
		}
		decoded, err := UnmarshalIRValue(first)
		require.NoError(t, err)
		second, err := MarshalCanonical(decoded)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
