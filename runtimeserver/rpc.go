package runtimeserver

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
)

// Request is one length-prefixed JSON RPC frame sent to the server.
type Request struct {
	Secret  string          `json:"secret"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is the matching reply frame.
type Response struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// WriteFrame writes a length-prefixed JSON value to w: a 4-byte
// big-endian length followed by the JSON bytes.
func WriteFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("runtimeserver: marshal frame: %w", err)
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadFrame reads one length-prefixed JSON frame from r into v.
func ReadFrame(r io.Reader, v any) error {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(length[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

// Handler processes one authenticated Request and produces a Response.
type Handler func(method string, params json.RawMessage) (json.RawMessage, error)

// Serve accepts connections on the server's listener until it is closed,
// authenticating each request's secret with a constant-time compare
// before dispatching to handler.
func (s *Server) Serve(handler Handler) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn, handler)
	}
}

func (s *Server) handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	for {
		var req Request
		if err := ReadFrame(conn, &req); err != nil {
			return
		}

		if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.info.Secret)) != 1 {
			_ = WriteFrame(conn, Response{OK: false, Error: "invalid secret"})
			return
		}

		result, err := handler(req.Method, req.Params)
		if err != nil {
			_ = WriteFrame(conn, Response{OK: false, Error: err.Error()})
			continue
		}
		_ = WriteFrame(conn, Response{OK: true, Result: result})
	}
}
