// Package translink provides the reference fabric.Link implementation
// used by cmd/fabricd: a WebSocket transport, grounded on the pack's
// gorilla/websocket usage. It is deliberately the ONLY concrete
// transport shipped in this module (spec.md §1 treats the transport as
// an external collaborator); other transports (TCP/QUIC/UDS) plug in
// the same way by implementing fabric.Link.
package translink

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meshfabric/fabric"
)

// WSLink adapts a *websocket.Conn to fabric.Link.
type WSLink struct {
	conn     *websocket.Conn
	log      *slog.Logger
	reliable bool
	shm      bool

	writeMu sync.Mutex
	closed  bool
}

// NewWSLink wraps conn. reliable should be true for a TCP-backed
// websocket (the normal case); shm reports whether this link's peer
// negotiated the shared-memory payload extension out of band.
func NewWSLink(conn *websocket.Conn, log *slog.Logger, reliable, shm bool) *WSLink {
	return &WSLink{conn: conn, log: log, reliable: reliable, shm: shm}
}

// SendBatch writes each envelope as one WebSocket binary message. A
// write error closes the link and reports the batch as dropped rather
// than retrying: the caller's back-pressure policy (congestion drop vs
// block-until-room) already happened before SendBatch was called.
func (l *WSLink) SendBatch(batch []fabric.Envelope) bool {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if l.closed {
		return false
	}
	for _, env := range batch {
		payload, err := marshalEnvelope(env)
		if err != nil {
			l.log.Warn("translink: marshal failed", "err", err)
			continue
		}
		if err := l.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			l.log.Warn("translink: write failed, closing link", "err", err)
			l.closed = true
			return false
		}
	}
	return true
}

// Close closes the underlying WebSocket connection.
func (l *WSLink) Close() error {
	l.writeMu.Lock()
	l.closed = true
	l.writeMu.Unlock()
	return l.conn.Close()
}

func (l *WSLink) IsReliable() bool  { return l.reliable }
func (l *WSLink) SupportsSHM() bool { return l.shm }

// ReadLoop blocks reading inbound messages off the connection,
// decoding each into a fabric.Envelope and handing it to handle, until
// the connection closes or handle asks to stop by returning false.
func (l *WSLink) ReadLoop(handle func(fabric.Envelope) bool) error {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("translink: read: %w", err)
		}
		env, err := unmarshalEnvelope(data)
		if err != nil {
			l.log.Warn("translink: decode failed, dropping message", "err", err)
			continue
		}
		if !handle(env) {
			return nil
		}
	}
}
