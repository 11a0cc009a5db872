package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// operationTimeout bounds publish and subscribe acknowledgements.
	operationTimeout = 5 * time.Second

	disconnectQuiesceMillis = 1000

	keepAlive = 60 * time.Second

	maxQoS = 2

	// maxPayloadSize rejects payloads no aquarium message comes close to.
	maxPayloadSize = 64 << 10

	// SystemStatusTopic carries the retained online/offline state of the core.
	SystemStatusTopic = "aquarium/system/status"
)

// SystemStatus is the payload on SystemStatusTopic.
type SystemStatus struct {
	Status    string `json:"status"` // online or offline
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Reasons reported with an offline status.
const (
	ReasonUnexpectedDisconnect = "unexpected_disconnect"
	ReasonShutdown             = "graceful_shutdown"
)

func statusPayload(status, clientID, reason string) []byte {
	b, _ := json.Marshal(SystemStatus{ //nolint:errcheck // Plain string fields cannot fail
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// brokerURL returns tcp://host:port, or ssl:// when TLS is enabled.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions maps the MQTT config section onto paho options,
// including the Last Will reporting this client offline.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	will := statusPayload("offline", cfg.Broker.ClientID, ReasonUnexpectedDisconnect)
	opts.SetBinaryWill(SystemStatusTopic, will, 1, true)

	return opts
}
