package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/history"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/logging"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/metrics"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

type fakeDevices map[protocol.Device]protocol.DeviceStatus

func (f fakeDevices) Devices() map[protocol.Device]protocol.DeviceStatus { return f }

type panicDevices struct{}

func (panicDevices) Devices() map[protocol.Device]protocol.DeviceStatus { panic("boom") }

type fakeHistory struct {
	mu      sync.Mutex
	topic   string
	limit   int
	entries []history.Entry
	err     error
}

func (f *fakeHistory) Query(_ context.Context, topic string, limit int) ([]history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic, f.limit = topic, limit
	return f.entries, f.err
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testLogger() *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", "test", io.Discard)
}

// testServer returns a server with every dependency populated and an
// httptest server in front of its router.
func testServer(t *testing.T, mutate func(*Deps)) (*Server, *httptest.Server) {
	t.Helper()

	deps := Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			CORS: config.CORSConfig{AllowedOrigins: []string{"http://tank.local"}},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger: testLogger(),
		Bus:    bus.NewMemoryBus(),
		Devices: fakeDevices{
			protocol.DevicePump: {Mode: protocol.ModeManual, State: protocol.RelayOn},
		},
		History: &fakeHistory{},
		Metrics: metrics.NewRegistry(),
		Version: "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func postCommand(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t, func(d *Deps) {
		d.Checks = map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
		}
	})

	var body map[string]any
	resp := getJSON(t, ts.URL+"/api/v1/health", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, map[string]any{"database": "ok"}, body["components"])
}

func TestHealthDegraded(t *testing.T) {
	_, ts := testServer(t, func(d *Deps) {
		d.Checks = map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
			"mqtt":     checkFunc(func(context.Context) error { return errors.New("not connected") }),
		}
	})

	var body map[string]any
	resp := getJSON(t, ts.URL+"/api/v1/health", &body)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": "ok", "mqtt": "not connected"}, body["components"])
}

func TestListDevices(t *testing.T) {
	_, ts := testServer(t, nil)

	var body struct {
		Devices []DeviceView `json:"devices"`
		Count   int          `json:"count"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/devices", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []DeviceView{
		{Device: protocol.DevicePump, Known: true, Mode: protocol.ModeManual, State: protocol.RelayOn, Metric: protocol.SensorWaterLevel},
		{Device: protocol.DeviceLamp, Metric: protocol.SensorTemperature},
	}, body.Devices)
}

func TestGetDevice(t *testing.T) {
	_, ts := testServer(t, nil)

	var view DeviceView
	resp := getJSON(t, ts.URL+"/api/v1/devices/pump", &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, view.Known)

	resp = getJSON(t, ts.URL+"/api/v1/devices/heater", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeviceCommandPublishes(t *testing.T) {
	b := bus.NewMemoryBus()
	_, ts := testServer(t, func(d *Deps) { d.Bus = b })

	resp, body := postCommand(t, ts.URL+"/api/v1/devices/lamp/command", `{"command":"on"}`)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "ON", body["command"])
	assert.Equal(t, "aquarium/lamp", body["topic"])

	msgs := b.MessagesOn(protocol.Topics{}.Command(protocol.DeviceLamp))
	require.Len(t, msgs, 1)
	assert.Equal(t, "ON", string(msgs[0].Payload))
	assert.False(t, msgs[0].Retained)
}

func TestDeviceCommandErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		noBus  bool
		status int
	}{
		{"unknown device", "/api/v1/devices/heater/command", `{"command":"ON"}`, false, http.StatusNotFound},
		{"unknown verb", "/api/v1/devices/pump/command", `{"command":"TOGGLE"}`, false, http.StatusBadRequest},
		{"empty verb", "/api/v1/devices/pump/command", `{}`, false, http.StatusBadRequest},
		{"bad json", "/api/v1/devices/pump/command", `ON`, false, http.StatusBadRequest},
		{"no bus", "/api/v1/devices/pump/command", `{"command":"AUTO"}`, true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := testServer(t, func(d *Deps) {
				if tt.noBus {
					d.Bus = nil
				}
			})
			resp, body := postCommand(t, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["code"])
		})
	}
}

func TestHistory(t *testing.T) {
	at := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	h := &fakeHistory{entries: []history.Entry{
		{ID: 2, RecordedAt: at, Topic: "aquarium/alarm", Value: "Fish fed!"},
	}}
	_, ts := testServer(t, func(d *Deps) { d.History = h })

	var body struct {
		Topic   string          `json:"topic"`
		Entries []history.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/history?topic=aquarium/alarm&limit=5", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "aquarium/alarm", h.topic)
	assert.Equal(t, 5, h.limit)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Fish fed!", body.Entries[0].Value)
}

func TestHistoryLimits(t *testing.T) {
	h := &fakeHistory{}
	_, ts := testServer(t, func(d *Deps) { d.History = h })

	var body map[string]any
	getJSON(t, ts.URL+"/api/v1/history", &body)
	assert.Equal(t, history.DefaultLimit, h.limit)
	assert.Equal(t, "", h.topic)
	assert.Equal(t, []any{}, body["entries"])

	getJSON(t, ts.URL+"/api/v1/history?limit=5000", nil)
	assert.Equal(t, history.MaxLimit, h.limit)

	for _, bad := range []string{"0", "-1", "ten"} {
		resp := getJSON(t, ts.URL+"/api/v1/history?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit=%s", bad)
	}
}

func TestHistoryFailures(t *testing.T) {
	_, ts := testServer(t, func(d *Deps) { d.History = nil })
	resp := getJSON(t, ts.URL+"/api/v1/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, ts = testServer(t, func(d *Deps) { d.History = &fakeHistory{err: errors.New("disk full")} })
	resp = getJSON(t, ts.URL+"/api/v1/history", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPrometheusEndpoint(t *testing.T) {
	srv, ts := testServer(t, nil)
	srv.metrics.AlarmRaised()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "aquarium_coordinator_alarms_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPrometheusEndpointWithoutRegistry(t *testing.T) {
	_, ts := testServer(t, func(d *Deps) { d.Metrics = nil })
	resp := getJSON(t, ts.URL+"/metrics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSystemMetrics(t *testing.T) {
	_, ts := testServer(t, nil)

	var m SystemMetrics
	resp := getJSON(t, ts.URL+"/api/v1/metrics", &m)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", m.Version)
	assert.Positive(t, m.Goroutines)
	assert.NotEmpty(t, m.Uptime)
	assert.Equal(t, map[string]string{"pump": "MANUAL/ON", "lamp": "unknown"}, m.Devices)
	assert.Nil(t, m.Pool)
}

func TestRequestID(t *testing.T) {
	_, ts := testServer(t, nil)

	resp := getJSON(t, ts.URL+"/api/v1/health", nil)
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	_, ts := testServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/devices/pump/command", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://tank.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://tank.local", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	_, ts := testServer(t, func(d *Deps) { d.Devices = panicDevices{} })

	var body Error
	resp := getJSON(t, ts.URL+"/api/v1/devices", &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, ErrCodeInternal, body.Code)
}

func TestBodySizeLimit(t *testing.T) {
	_, ts := testServer(t, nil)

	big := `{"command":"` + strings.Repeat("X", maxRequestBodySize) + `"}`
	resp, _ := postCommand(t, ts.URL+"/api/v1/devices/pump/command", big)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartAndClose(t *testing.T) {
	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger: testLogger(),
		Bus:    bus.NewMemoryBus(),
	})
	require.NoError(t, err)
	assert.Error(t, srv.HealthCheck(context.Background()))

	require.NoError(t, srv.Start(context.Background()))
	assert.NoError(t, srv.HealthCheck(context.Background()))

	var body map[string]any
	resp := getJSON(t, "http://"+srv.Addr()+"/api/v1/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, srv.Close())
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketRelaysSubscribedTopics(t *testing.T) {
	b := bus.NewMemoryBus()
	srv, ts := testServer(t, func(d *Deps) { d.Bus = b })
	require.NoError(t, srv.Hub().Attach(b))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    WSTypeSubscribe,
		"id":      "1",
		"payload": WSSubscribePayload{Channels: []string{"aquarium/alarm"}},
	}))
	ack := readFrame(t, conn)
	assert.Equal(t, WSTypeResponse, ack.Type)
	assert.Equal(t, "1", ack.ID)

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// Not subscribed: must not arrive.
	require.NoError(t, b.Publish(bus.FeedEvent{State: protocol.FeedPressed}))
	require.NoError(t, b.Publish(bus.AlarmEvent{Alarm: protocol.Alarm{Text: "Fish fed!"}}))

	ev := readFrame(t, conn)
	assert.Equal(t, WSTypeEvent, ev.Type)
	assert.Equal(t, "aquarium/alarm", ev.EventType)
	assert.Equal(t, map[string]any{"topic": "aquarium/alarm", "value": "Fish fed!"}, ev.Payload)
}

func TestWebSocketProtocolErrors(t *testing.T) {
	_, ts := testServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, WSTypeError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance", "id": "7"}))
	msg := readFrame(t, conn)
	assert.Equal(t, WSTypeError, msg.Type)
	assert.Equal(t, "7", msg.ID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": WSTypePing, "id": "8"}))
	assert.Equal(t, WSTypePong, readFrame(t, conn).Type)
}

func TestHubWildcardChannel(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())
	client := newWSClient(nil, WSChannelAll)
	hub.add(client)

	hub.Deliver(bus.StatusEvent{
		Device: protocol.DevicePump,
		Status: protocol.DeviceStatus{Mode: protocol.ModeAuto, State: protocol.RelayOff},
	})
	hub.Deliver(bus.TickEvent{})

	require.Len(t, client.send, 1)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(<-client.send, &msg))
	assert.Equal(t, "aquarium/pump/status", msg.EventType)

	hub.remove(client)
	hub.remove(client)
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, client.enqueue([]byte("late")))
}
