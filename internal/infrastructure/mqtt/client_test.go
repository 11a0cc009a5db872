package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
)

// testConfig returns a configuration for a local broker at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: fmt.Sprintf("aquarium-test-%d", time.Now().UnixNano()),
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the local broker, skipping in -short mode or
// when no broker is running.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping broker test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Connect(ctx, testConfig())
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

type captureLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *captureLogger) Info(string, ...any) {}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

// fakeMessage implements pahomqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "aquarium-core"
	cfg.Auth = config.MQTTAuthConfig{Username: "tank", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "aquarium-core" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "tank" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.WillEnabled || opts.WillTopic != SystemStatusTopic || !opts.WillRetained {
		t.Errorf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	var will SystemStatus
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if will.Status != "offline" || will.Reason != ReasonUnexpectedDisconnect || will.ClientID != "aquarium-core" {
		t.Errorf("will payload = %+v", will)
	}
}

func TestBrokerURL_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() = %q", got)
	}
	if buildClientOptions(cfg).TLSConfig == nil {
		t.Error("TLS config not set")
	}
}

func TestStatusPayload(t *testing.T) {
	var s SystemStatus
	if err := json.Unmarshal(statusPayload("online", "core", ""), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Status != "online" || s.ClientID != "core" || s.Reason != "" {
		t.Errorf("status = %+v", s)
	}
	if _, err := time.Parse(time.RFC3339, s.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339", s.Timestamp)
	}
}

func TestValidate(t *testing.T) {
	if err := validate("", 1); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: %v", err)
	}
	if err := validate("aquarium/temp", 3); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3: %v", err)
	}
	if err := validate("aquarium/temp", 2); err != nil {
		t.Errorf("valid: %v", err)
	}
}

func TestWrapHandler(t *testing.T) {
	logger := &captureLogger{}
	c := &Client{}
	c.SetLogger(logger)

	msg := fakeMessage{topic: "aquarium/feed", payload: []byte("pressed")}

	var got string
	c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, msg)
	if got != "aquarium/feed=pressed" {
		t.Errorf("handler saw %q", got)
	}

	c.wrapHandler(func(string, []byte) error { return errors.New("boom") })(nil, msg)
	c.wrapHandler(func(string, []byte) error { panic("bad handler") })(nil, msg)

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one handler error", logger.warns)
	}
	if len(logger.errs) != 1 {
		t.Errorf("errors = %v, want one recovered panic", logger.errs)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig()
	cfg.Broker.Port = 19999

	if _, err := Connect(ctx, cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	client := connectOrSkip(t)

	topic := "aquarium/test/" + client.cfg.Broker.ClientID
	received := make(chan string, 1)

	err := client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topic) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	if err := client.Publish(topic, []byte("ON"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "ON" {
			t.Errorf("received %q, want ON", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: %v", err)
	}
	if err := client.Publish("aquarium/test", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload: %v", err)
	}
	if err := client.Subscribe("aquarium/test", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler: %v", err)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	client := connectOrSkip(t)
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := client.Publish("aquarium/test", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish after Close = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck after Close = %v", err)
	}
}

var _ pahomqtt.Message = fakeMessage{}
