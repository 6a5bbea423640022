// Package remoteproxy implements the Remote Transparent Proxy: a Proxy
// (host side) that drives step execution through a Worker (sandbox
// side) over a length-prefixed JSON RPC channel, merging the worker's
// asynchronous event/metric/heartbeat frames into the local session as
// if the run executed locally. The channel is any io.ReadWriter: a
// subprocess's piped stdin/stdout, an in-process net.Pipe for fixture
// tests, or (websocket.go) a github.com/gorilla/websocket connection for
// a sandbox reachable only over the network — per the core's
// "transparent" requirement that local and remote produce identical
// observable behavior regardless of transport.
package remoteproxy

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// FrameKind enumerates the RPC message kinds exchanged between Proxy and
// Worker.
type FrameKind string

const (
	KindRequest  FrameKind = "request"
	KindResponse FrameKind = "response"
	KindEvent    FrameKind = "event"
	KindMetric   FrameKind = "metric"
	KindHeartbeat FrameKind = "heartbeat"
)

// Request is a command sent from Proxy to Worker.
type Request struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Response answers a Request by ID.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// AsyncFrame carries an unsolicited event/metric/heartbeat message from
// Worker to Proxy.
type AsyncFrame struct {
	Kind    FrameKind       `json:"frame_kind"`
	Payload json.RawMessage `json:"payload"`
}

// envelope is the wire shape every frame is wrapped in so a single
// reader loop can distinguish request/response/async frames before
// unmarshaling the payload.
type envelope struct {
	FrameKind FrameKind       `json:"frame_kind"`
	Body      json.RawMessage `json:"body"`
}

// writeFrame writes a length-prefixed JSON envelope to w.
func writeFrame(w io.Writer, kind FrameKind, body any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("remoteproxy: marshaling frame body: %w", err)
	}
	env := envelope{FrameKind: kind, Body: bodyBytes}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("remoteproxy: marshaling envelope: %w", err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(envBytes)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(envBytes)
	return err
}

// readFrame reads one length-prefixed JSON envelope from r.
func readFrame(r io.Reader) (FrameKind, json.RawMessage, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", nil, err
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > 64*1024*1024 {
		return "", nil, fmt.Errorf("remoteproxy: frame of %d bytes exceeds limit", size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", nil, err
	}

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return "", nil, fmt.Errorf("remoteproxy: unmarshaling envelope: %w", err)
	}
	return env.FrameKind, env.Body, nil
}
