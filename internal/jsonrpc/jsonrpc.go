// Package jsonrpc implements the JSON-RPC 2.0 envelopes spoken on the MCP
// stdio transport: request decoding, response construction and encoding.
//
// Decoding and encoding are pure transformations. Malformed input is reported
// as a *ParseError, never a panic.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol version carried by every envelope.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NullID is the identifier used when the request id cannot be recovered.
var NullID = json.RawMessage("null")

// Request is a decoded JSON-RPC request.
//
// ID is kept as raw JSON so it can be echoed byte-for-byte, including null
// and integers that would not survive a float64 round trip.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response carries exactly one of Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseError reports a line that could not be decoded into a Request.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// wireRequest distinguishes absent fields from zero values during decoding.
type wireRequest struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Decode parses a single line into a Request. The jsonrpc and method members
// must be present; the version value itself is not enforced. A missing id is
// treated as null and missing or null params become an empty object.
func Decode(line []byte) (Request, error) {
	var wire wireRequest
	if err := json.Unmarshal(line, &wire); err != nil {
		return Request{}, &ParseError{Err: err}
	}
	if wire.JSONRPC == nil {
		return Request{}, &ParseError{Err: fmt.Errorf("missing field `jsonrpc`")}
	}
	if wire.Method == nil {
		return Request{}, &ParseError{Err: fmt.Errorf("missing field `method`")}
	}

	req := Request{
		JSONRPC: *wire.JSONRPC,
		ID:      wire.ID,
		Method:  *wire.Method,
		Params:  wire.Params,
	}
	if len(req.ID) == 0 {
		req.ID = NullID
	}
	if len(req.Params) == 0 || bytes.Equal(req.Params, []byte("null")) {
		req.Params = json.RawMessage("{}")
	}
	return req, nil
}

// Encode serializes a response without a trailing newline.
func Encode(resp Response) ([]byte, error) {
	if len(resp.ID) == 0 {
		resp.ID = NullID
	}
	if resp.JSONRPC == "" {
		resp.JSONRPC = Version
	}
	return json.Marshal(resp)
}

// Success builds a result response. A result that cannot be marshaled turns
// into an internal error addressed to the same id.
func Success(id json.RawMessage, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return Error(id, CodeInternalError, fmt.Sprintf("failed to encode result: %v", err))
	}
	return Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Result:  raw,
	}
}

// Error builds an error response.
func Error(id json.RawMessage, code int, message string) Response {
	return Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Error: &ErrorObject{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorWithData builds an error response carrying auxiliary data.
func ErrorWithData(id json.RawMessage, code int, message string, data any) Response {
	resp := Error(id, code, message)
	resp.Error.Data = data
	return resp
}

// IsError reports whether the response carries an error member.
func (r Response) IsError() bool {
	return r.Error != nil
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return NullID
	}
	return id
}
