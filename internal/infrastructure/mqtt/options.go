package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

const (
	connectTimeout      = 10 * time.Second
	opTimeout           = 5 * time.Second
	keepAlive           = 60 * time.Second
	disconnectQuiesceMS = 1000
)

// Presence states published on <prefix>/status.
const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// Presence is the retained payload on <prefix>/status.
type Presence struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Reason   string `json:"reason,omitempty"`
	At       string `json:"at"`
}

func presence(status, clientID, reason string) []byte {
	//nolint:errchkjson // plain strings always encode
	data, _ := json.Marshal(Presence{
		Status:   status,
		ClientID: clientID,
		Reason:   reason,
		At:       time.Now().UTC().Format(time.RFC3339),
	})
	return data
}

// clientOptions maps the mqtt config section onto paho options. The will
// marks the bridge offline if the session dies without Close.
func clientOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetBinaryWill(topics.Status(), presence(presenceOffline, cfg.Broker.ClientID, "connection lost"), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}
