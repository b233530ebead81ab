package translink

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/meshfabric/fabric"
	"github.com/meshfabric/fabric/wire"
)

var upgrader = websocket.Upgrader{}

func newWSLinkPair(t *testing.T) (client, server *WSLink, closeServer func()) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	var serverConn *websocket.Conn
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn = conn
		close(ready)
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	<-ready

	client = NewWSLink(clientConn, log, true, false)
	server = NewWSLink(serverConn, log, true, false)
	return client, server, srv.Close
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestWSLinkSendBatchDeliversOverReadLoop(t *testing.T) {
	client, server, closeServer := newWSLinkPair(t)
	defer closeServer()
	defer client.Close()
	defer server.Close()

	env := fabric.Envelope{Push: &wire.Push{
		KeyExpr: wire.WireExpr{Suffix: "a/b"},
		Body:    wire.Put{Payload: []byte("hi")},
	}}
	ok := client.SendBatch([]fabric.Envelope{env})
	require.True(t, ok)

	received := make(chan fabric.Envelope, 1)
	go func() {
		_ = server.ReadLoop(func(got fabric.Envelope) bool {
			received <- got
			return false
		})
	}()

	select {
	case got := <-received:
		require.NotNil(t, got.Push)
		put, ok := got.Push.Body.(wire.Put)
		require.True(t, ok)
		require.Equal(t, []byte("hi"), put.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestWSLinkSendBatchAfterCloseReturnsFalse(t *testing.T) {
	client, server, closeServer := newWSLinkPair(t)
	defer closeServer()
	defer server.Close()

	require.NoError(t, client.Close())
	ok := client.SendBatch([]fabric.Envelope{{ResponseFinal: &wire.ResponseFinal{RID: 1}}})
	require.False(t, ok)
}

func TestWSLinkReportsReliableAndSHMFlags(t *testing.T) {
	client, server, closeServer := newWSLinkPair(t)
	defer closeServer()
	defer client.Close()
	defer server.Close()

	require.True(t, client.IsReliable())
	require.False(t, client.SupportsSHM())
}
