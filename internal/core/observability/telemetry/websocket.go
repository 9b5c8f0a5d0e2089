package telemetry

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeusync/governor/internal/core/events/bus"
	"github.com/zeusync/governor/internal/core/observability/log"
)

// WebSocketForwarder streams telemetry events as JSON frames to a collector.
// The connection is dialed lazily and re-dialed after a write failure.
type WebSocketForwarder struct {
	url          string
	header       http.Header
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	logger       log.Log

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebSocketForwarder(url string, header http.Header, logger log.Log) *WebSocketForwarder {
	return &WebSocketForwarder{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
		writeTimeout: 2 * time.Second,
		logger:       logger.With(log.String("component", "telemetry_ws")),
	}
}

// Handle is a bus.EventHandler.
func (f *WebSocketForwarder) Handle(e bus.Event) error {
	ev, ok := EventFrom(e)
	if !ok {
		return fmt.Errorf("telemetry: unexpected payload %T", e.Data())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		conn, _, err := f.dialer.Dial(f.url, f.header)
		if err != nil {
			return fmt.Errorf("telemetry: dial %s: %w", f.url, err)
		}
		f.logger.Debug("collector connected", log.String("url", f.url))
		f.conn = conn
	}

	_ = f.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	if err := f.conn.WriteJSON(ev); err != nil {
		_ = f.conn.Close()
		f.conn = nil
		return fmt.Errorf("telemetry: write: %w", err)
	}
	return nil
}

func (f *WebSocketForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := f.conn.Close()
	f.conn = nil
	return err
}
