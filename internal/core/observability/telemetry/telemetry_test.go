package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/events/bus"
	"github.com/zeusync/governor/internal/core/observability/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAnonymizerIsStableAndSalted(t *testing.T) {
	a := NewAnonymizer("salt-a")
	b := NewAnonymizer("salt-b")

	assert.Equal(t, a.Token("player-1"), a.Token("player-1"))
	assert.Len(t, a.Token("player-1"), 16)
	assert.NotEqual(t, a.Token("player-1"), b.Token("player-1"))
	assert.NotContains(t, a.Token("player-1"), "player")
	assert.Empty(t, a.Token(""))
}

func TestEmitterPublishesOnBus(t *testing.T) {
	b := bus.New()
	var mu sync.Mutex
	var got []Event
	_, err := b.Subscribe(bus.Wildcard, func(e bus.Event) error {
		ev, ok := EventFrom(e)
		assert.True(t, ok)
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	clk := clock.NewManual(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	em := NewEmitter(b, log.Nop(), clk, EmitterConfig{BufferSize: 8, ClientID: "device-7", Salt: "s"})
	em.Start(context.Background())

	start := clk.Now().Add(-time.Minute)
	em.LogEvent(EventPerformanceDegraded, map[string]float64{"level": 2}, start)
	em.Stop()
	em.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, EventPerformanceDegraded, got[0].Type)
	assert.Equal(t, 2.0, got[0].Metrics["level"])
	require.NotNil(t, got[0].SessionStart)
	assert.Equal(t, start, *got[0].SessionStart)
	assert.Equal(t, NewAnonymizer("s").Token("device-7"), got[0].Client)
}

func TestEmitterNeverBlocksWhenFull(t *testing.T) {
	em := NewEmitter(bus.New(), log.Nop(), nil, EmitterConfig{BufferSize: 2})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			em.LogEvent("x", nil, time.Time{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogEvent blocked")
	}
	assert.EqualValues(t, 8, em.Dropped())
	em.Stop()
}

func TestEmitterSurvivesFailingSink(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := bus.New()
	_, _ = b.Subscribe(bus.Wildcard, func(bus.Event) error { panic("collector down") })

	em := NewEmitter(b, log.NewFromCore(core), nil, EmitterConfig{})
	em.Start(context.Background())
	em.LogEvent("x", nil, time.Time{})
	em.Stop()

	assert.Equal(t, 1, logs.FilterMessage("telemetry sink failed").Len())
}

func TestEmitterStopWithoutStartFlushesBuffer(t *testing.T) {
	b := bus.New()
	var types []string
	_, err := b.Subscribe(bus.Wildcard, func(e bus.Event) error {
		types = append(types, e.Type())
		return nil
	})
	require.NoError(t, err)

	em := NewEmitter(b, log.Nop(), nil, EmitterConfig{BufferSize: 8})
	em.LogEvent(EventDeliveryQueued, nil, time.Time{})
	em.LogEvent(EventDeliveryDropped, nil, time.Time{})
	em.Stop()

	assert.Equal(t, []string{EventDeliveryQueued, EventDeliveryDropped}, types)

	em.Start(context.Background())
	em.Stop()
	assert.Len(t, types, 2)
}

func TestLogSubscriber(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := LogSubscriber(log.NewFromCore(core))

	ev := Event{Type: EventDeliveryDropped, Metrics: map[string]float64{"attempts": 5}, Client: "abc"}
	require.NoError(t, h(bus.NewEvent(ev.Type, "test", time.Now(), ev)))
	assert.Error(t, h(bus.NewEvent("x", "test", time.Now(), "not an event")))

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, EventDeliveryDropped, ctx["type"])
	assert.Equal(t, 5.0, ctx["attempts"])
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.LogEvent("a", map[string]float64{"v": 1}, time.Time{})
	r.LogEvent("b", nil, time.Now())
	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType("a"), 1)
	assert.Nil(t, r.OfType("a")[0].SessionStart)
	assert.NotNil(t, r.OfType("b")[0].SessionStart)
}

func TestWebSocketForwarder(t *testing.T) {
	received := make(chan Event, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var ev Event
		if err := conn.ReadJSON(&ev); err == nil {
			received <- ev
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	fwd := NewWebSocketForwarder(url, nil, log.Nop())

	ev := Event{Type: EventRenderFallback, Metrics: map[string]float64{"crashes": 3}}
	require.NoError(t, fwd.Handle(bus.NewEvent(ev.Type, "test", time.Now(), ev)))

	select {
	case got := <-received:
		assert.Equal(t, EventRenderFallback, got.Type)
		assert.Equal(t, 3.0, got.Metrics["crashes"])
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not receive event")
	}
	assert.NoError(t, fwd.Close())
	assert.NoError(t, fwd.Close())
}

func TestWebSocketForwarderDialFailure(t *testing.T) {
	fwd := NewWebSocketForwarder("ws://127.0.0.1:1/none", nil, log.Nop())
	err := fwd.Handle(bus.NewEvent("x", "test", time.Now(), Event{Type: "x"}))
	assert.Error(t, err)
}
