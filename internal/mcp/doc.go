// Package mcp serves Fabric patterns as Model Context Protocol tools.
//
// Every pattern in the catalog becomes one tool named "fabric_<pattern>" that
// takes a single string argument, content. Calling the tool does not run a
// model: it returns the pattern's prompts combined with the supplied content
// so the client's own model can process it.
//
// # Methods
//
// The dispatcher answers a fixed method table:
//   - initialize: protocol version, tool capability and server identity
//   - tools/list: one descriptor per pattern in catalog order
//   - tools/call: the rendered prompt for one pattern
//
// Any other method, including client notifications, gets a -32601 error.
// Domain failures (missing arguments, unknown patterns) use -32603.
//
// # Transport
//
// Serve reads one JSON-RPC request per line and writes exactly one response
// line per non-blank input line, flushing after each. Requests are handled
// strictly in order. End of input stops the loop cleanly; read and write
// failures are returned to the caller.
//
//	atelier serve < requests.jsonl
//
// # Reloading
//
// The catalog can be reloaded while the transport is running (see
// Server.Reload). In-flight requests observe either the old or the new set of
// patterns, never a mixture.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp
