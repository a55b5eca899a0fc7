// Package telemetry bridges circuit events to an MQTT broker.
package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/simlink-project/simlink/internal/config"
	"github.com/simlink-project/simlink/internal/events"
	"github.com/simlink-project/simlink/internal/util"
)

// Topic suffixes under the configured prefix.
const (
	TopicChat  = "chat"
	TopicIM    = "im"
	TopicState = "state"
)

const publishQoS = 1

// publisher is the part of mqtt.Client the bridge publishes through.
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Bridge publishes chat, IM and circuit state events as JSON.
type Bridge struct {
	cfg      config.MQTTConfig
	bus      *events.EventBus
	client   mqtt.Client
	pub      publisher
	metadata map[string]interface{}
	logger   zerolog.Logger
}

// NewBridge configures an MQTT client from cfg. It does not connect.
func NewBridge(cfg config.MQTTConfig, bus *events.EventBus, sys util.SystemInfo, version string) (*Bridge, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(BrokerAddress(cfg))

	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("simlink-%s", sys.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)

	if cfg.UseTLS {
		tc, err := tlsConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tc)
	}

	logger := util.ComponentLogger("mqtt")
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	b := newBridge(cfg, bus, client, sys, version)
	b.client = client
	return b, nil
}

func newBridge(cfg config.MQTTConfig, bus *events.EventBus, pub publisher, sys util.SystemInfo, version string) *Bridge {
	return &Bridge{
		cfg: cfg,
		bus: bus,
		pub: pub,
		metadata: map[string]interface{}{
			"hostname":    sys.Hostname,
			"platform":    sys.Platform,
			"os":          sys.OS,
			"cpu_model":   sys.CPUModel,
			"cpu_cores":   sys.CPUCores,
			"memory_mb":   sys.TotalMemory,
			"app_version": version,
		},
		logger: util.ComponentLogger("mqtt"),
	}
}

// BrokerAddress renders the broker URL, adding a scheme and port when the
// configured value is a bare host.
func BrokerAddress(cfg config.MQTTConfig) string {
	if strings.Contains(cfg.BrokerURL, "://") {
		return cfg.BrokerURL
	}
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.BrokerURL, cfg.Port)
}

func tlsConfig(cfg config.MQTTConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read MQTT CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// Start connects to the broker, subscribes to the event bus and blocks
// until ctx is cancelled. The shutdown event should be emitted before ctx
// is cancelled so it reaches the broker.
func (b *Bridge) Start(ctx context.Context) error {
	b.logger.Info().Str("broker", BrokerAddress(b.cfg)).Msg("connecting to MQTT broker")

	token := b.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	b.Subscribe()

	<-ctx.Done()

	b.client.Disconnect(5000)
	b.logger.Info().Msg("MQTT disconnected")
	return nil
}

// Subscribe registers the bridge's event handlers.
func (b *Bridge) Subscribe() {
	b.bus.Subscribe(events.EventChat, "mqtt.chat", b.onChat)
	b.bus.Subscribe(events.EventInstantMessage, "mqtt.im", b.onInstantMessage)
	b.bus.Subscribe(events.EventStateChanged, "mqtt.state", b.onState)
	b.bus.Subscribe(events.EventDisconnected, "mqtt.disconnected", b.onState)
	b.bus.Subscribe(events.EventShutdown, "mqtt.shutdown", b.onState)
}

// Topic joins the configured prefix and a suffix.
func (b *Bridge) Topic(suffix string) string {
	prefix := strings.TrimSuffix(b.cfg.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

func (b *Bridge) publish(suffix string, payload interface{}) {
	if !b.pub.IsConnected() {
		return
	}
	topic := b.Topic(suffix)

	data, err := json.Marshal(b.buildMessage(payload))
	if err != nil {
		b.logger.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := b.pub.Publish(topic, publishQoS, false, data)
	go func() {
		token.Wait()
		if token.Error() != nil {
			b.logger.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

func (b *Bridge) buildMessage(payload interface{}) map[string]interface{} {
	msg := make(map[string]interface{}, len(b.metadata)+2)
	for k, v := range b.metadata {
		msg[k] = v
	}
	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return msg
}

func (b *Bridge) onChat(ctx context.Context, event events.Event) error {
	b.publish(TopicChat, event.Payload)
	return nil
}

func (b *Bridge) onInstantMessage(ctx context.Context, event events.Event) error {
	b.publish(TopicIM, event.Payload)
	return nil
}

func (b *Bridge) onState(ctx context.Context, event events.Event) error {
	b.publish(TopicState, map[string]interface{}{
		"event":   string(event.Type),
		"payload": event.Payload,
	})
	return nil
}
