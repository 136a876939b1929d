package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/teslashibe/go-avatar/pkg/protocol"
)

// MQTT follows positions published by an external detector. Only the
// newest sample is kept; a sample older than MaxAge reads as not detected.
type MQTT struct {
	client mqtt.Client
	cfg    MQTTConfig
	now    func() time.Time
	logger *slog.Logger

	mu         sync.Mutex
	latest     protocol.FacePosition
	receivedAt time.Time
	dropped    uint64

	release sync.Once
}

// DialMQTT connects to cfg.Broker and subscribes to cfg.Topic.
func DialMQTT(ctx context.Context, cfg MQTTConfig, logger *slog.Logger) (*MQTT, error) {
	m := newMQTT(cfg, nil, logger)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}

	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOrderMatters(false)

	// Resubscribe after every (re)connect; the session is not persistent.
	opts.OnConnect = func(c mqtt.Client) {
		token := c.Subscribe(cfg.Topic, cfg.QoS, m.messageHandler)
		if !token.WaitTimeout(timeout) || token.Error() != nil {
			m.logger.Warn("mqtt subscribe failed", "topic", cfg.Topic, "error", token.Error())
			return
		}
		m.logger.Info("mqtt position feed subscribed", "broker", cfg.Broker, "topic", cfg.Topic, "client_id", clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		m.logger.Warn("mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	}

	m.client = mqtt.NewClient(opts)

	token := m.client.Connect()
	if !token.WaitTimeout(timeout) {
		m.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: timeout", ErrMQTTConnect, cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMQTTConnect, cfg.Broker, err)
	}
	return m, nil
}

func newMQTT(cfg MQTTConfig, now func() time.Time, logger *slog.Logger) *MQTT {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTT{
		cfg:    cfg,
		now:    now,
		logger: logger.With("source", KindMQTT),
		latest: protocol.NotDetected(),
	}
}

func (m *MQTT) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	m.store(msg.Payload())
}

// store decodes payload into the mailbox. Malformed payloads are dropped.
func (m *MQTT) store(payload []byte) {
	pos, err := protocol.DecodePosition(payload)
	if err != nil {
		m.mu.Lock()
		m.dropped++
		n := m.dropped
		m.mu.Unlock()
		m.logger.Warn("dropping malformed position", "error", err, "dropped", n)
		return
	}

	m.mu.Lock()
	m.latest = pos
	m.receivedAt = m.now()
	m.mu.Unlock()
}

// Poll returns the newest sample if it is still fresh.
func (m *MQTT) Poll(context.Context) protocol.FacePosition {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.receivedAt.IsZero() || m.now().Sub(m.receivedAt) > m.cfg.MaxAge {
		return protocol.NotDetected()
	}
	return m.latest
}

// Dropped returns the number of malformed payloads seen.
func (m *MQTT) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Release unsubscribes and disconnects.
func (m *MQTT) Release() error {
	var err error
	m.release.Do(func() {
		if m.client == nil {
			return
		}
		if m.client.IsConnected() {
			token := m.client.Unsubscribe(m.cfg.Topic)
			if token.WaitTimeout(time.Second) {
				err = token.Error()
			}
		}
		m.client.Disconnect(250)
		m.logger.Debug("mqtt position feed released")
	})
	return err
}
