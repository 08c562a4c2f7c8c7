package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"atelier/internal/jsonrpc"
)

// ServeStdio runs the transport loop on the process's standard streams.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited requests from r and writes one response line
// per request to w, strictly in order. It returns nil at end of input and an
// error when reading, writing or ctx fails.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.Info("Starting MCP server with stdio transport")

	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Error("Error reading from stdin", "error", err)
			return fmt.Errorf("failed to read request: %w", err)
		}
		if len(line) == 0 && errors.Is(err, io.EOF) {
			s.logger.Info("EOF received, shutting down")
			return nil
		}

		if len(bytes.TrimSpace(line)) > 0 {
			resp := s.handleLine(ctx, line)
			if werr := writeResponse(writer, resp); werr != nil {
				s.logger.Error("Failed to write response", "error", werr)
				return werr
			}
		}

		// Final line without a trailing newline
		if errors.Is(err, io.EOF) {
			s.logger.Info("EOF received, shutting down")
			return nil
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) jsonrpc.Response {
	req, err := jsonrpc.Decode(line)
	if err != nil {
		s.logger.Warn("Failed to parse request", "error", err)
		if s.recorder != nil {
			s.recorder.ObserveRequest("parse", OutcomeError, 0)
		}
		return jsonrpc.Error(jsonrpc.NullID, jsonrpc.CodeParseError, err.Error())
	}
	return s.HandleRequest(ctx, req)
}

func writeResponse(w *bufio.Writer, resp jsonrpc.Response) error {
	data, err := jsonrpc.Encode(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}
