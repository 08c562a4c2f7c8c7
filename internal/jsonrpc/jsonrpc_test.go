package jsonrpc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantID     string
		wantMethod string
		wantParams string
	}{
		{
			name:       "numeric id with params",
			line:       `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"cursor":"x"}}`,
			wantID:     `1`,
			wantMethod: "tools/list",
			wantParams: `{"cursor":"x"}`,
		},
		{
			name:       "string id without params",
			line:       `{"jsonrpc":"2.0","id":"abc","method":"initialize"}`,
			wantID:     `"abc"`,
			wantMethod: "initialize",
			wantParams: `{}`,
		},
		{
			name:       "null id and null params",
			line:       `{"jsonrpc":"2.0","id":null,"method":"tools/call","params":null}`,
			wantID:     `null`,
			wantMethod: "tools/call",
			wantParams: `{}`,
		},
		{
			name:       "missing id becomes null",
			line:       `{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			wantID:     `null`,
			wantMethod: "notifications/initialized",
			wantParams: `{}`,
		},
		{
			name:       "large integer id is preserved verbatim",
			line:       `{"jsonrpc":"2.0","id":9007199254740993,"method":"initialize"}`,
			wantID:     `9007199254740993`,
			wantMethod: "initialize",
			wantParams: `{}`,
		},
		{
			name:       "version value is not enforced",
			line:       `{"jsonrpc":"1.0","id":2,"method":"initialize"}`,
			wantID:     `2`,
			wantMethod: "initialize",
			wantParams: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, string(req.ID))
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.JSONEq(t, tt.wantParams, string(req.Params))
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "not json", line: `this is not json`},
		{name: "truncated object", line: `{"jsonrpc":"2.0","id":1,`},
		{name: "array", line: `[1,2,3]`},
		{name: "missing method", line: `{"jsonrpc":"2.0","id":1}`},
		{name: "missing jsonrpc", line: `{"id":1,"method":"initialize"}`},
		{name: "json null", line: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			require.Error(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected *ParseError, got %T", err)
			assert.True(t, strings.HasPrefix(err.Error(), "Parse error"))
		})
	}
}

func TestSuccess(t *testing.T) {
	resp := Success(json.RawMessage(`1`), map[string]string{"status": "ok"})

	assert.Equal(t, Version, resp.JSONRPC)
	assert.Equal(t, `1`, string(resp.ID))
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Result))
	assert.Nil(t, resp.Error)
	assert.False(t, resp.IsError())
}

func TestSuccess_UnencodableResult(t *testing.T) {
	resp := Success(json.RawMessage(`7`), map[string]any{"bad": make(chan int)})

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Nil(t, resp.Result)
	assert.Equal(t, `7`, string(resp.ID))
}

func TestError(t *testing.T) {
	resp := Error(json.RawMessage(`"req-1"`), CodeMethodNotFound, "Method not found")

	assert.Equal(t, Version, resp.JSONRPC)
	assert.Equal(t, `"req-1"`, string(resp.ID))
	assert.Nil(t, resp.Result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "Method not found", resp.Error.Message)
	assert.Nil(t, resp.Error.Data)
}

func TestErrorWithData(t *testing.T) {
	resp := ErrorWithData(nil, CodeInternalError, "Pattern not found: x", map[string]string{"pattern": "x"})

	assert.Equal(t, `null`, string(resp.ID))
	require.NotNil(t, resp.Error)
	assert.Equal(t, map[string]string{"pattern": "x"}, resp.Error.Data)

	encoded, err := Encode(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Pattern not found: x","data":{"pattern":"x"}}}`, string(encoded))
}

func TestEncode_SuccessRoundTrip(t *testing.T) {
	original := Success(json.RawMessage(`42`), map[string]any{"tools": []any{}})

	encoded, err := Encode(original)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), `"error"`)
	assert.Contains(t, string(encoded), `"result"`)

	var decoded Response
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, string(original.ID), string(decoded.ID))
	assert.JSONEq(t, string(original.Result), string(decoded.Result))
	assert.Nil(t, decoded.Error)
}

func TestEncode_ErrorNeverEmitsResult(t *testing.T) {
	for _, id := range []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`"a"`), NullID, nil} {
		encoded, err := Encode(Error(id, CodeParseError, "Parse error"))
		require.NoError(t, err)
		assert.NotContains(t, string(encoded), `"result"`)
		assert.Contains(t, string(encoded), `"error"`)
	}
}

func TestEncode_NullResultIsPresent(t *testing.T) {
	encoded, err := Encode(Success(json.RawMessage(`3`), nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":null}`, string(encoded))
}

func TestEncode_ZeroValueResponseGetsDefaults(t *testing.T) {
	encoded, err := Encode(Response{Error: &ErrorObject{Code: CodeParseError, Message: "Parse error"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, string(encoded))
}
