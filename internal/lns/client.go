package lns

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cloudia/cloudia/internal/config"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/version"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageHandler receives the topic and raw payload of a message.
type MessageHandler func(topic string, payload []byte)

// Subscriber registers handlers for topics.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
}

// Publisher sends payloads to topics.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// ErrNotConnected is returned by Subscribe and Publish before Connect.
var ErrNotConnected = errors.New("not connected to network server")

const (
	connectTimeout  = 10 * time.Second
	disconnectQuiet = 250 // milliseconds
	clientIDPrefix  = "cloudia-"
)

// Client is an MQTT client for one network server application.
type Client struct {
	cfg    *config.LNSConfig
	opts   *mqtt.ClientOptions
	client mqtt.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// NewClient prepares a client. Nothing is dialled until Connect.
func NewClient(cfg *config.LNSConfig) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logging.GetLogger(),
		subs:   make(map[string]MessageHandler),
	}
	c.opts = c.clientOptions()
	return c
}

func (c *Client) clientOptions() *mqtt.ClientOptions {
	clientID := c.cfg.ClientID
	if clientID == "" {
		clientID = clientIDPrefix + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL()).
		SetClientID(clientID).
		SetUsername(c.cfg.AppID).
		SetPassword(c.cfg.AppKey).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	if c.cfg.TLS {
		opts.SetTLSConfig(&tls.Config{
			ServerName: c.cfg.Host,
			MinVersion: tls.VersionTLS12,
		})
	}
	return opts
}

// Connect dials the broker, retrying with exponential backoff until it
// succeeds or ctx is done. A pending deadline is always waited out.
func (c *Client) Connect(ctx context.Context) error {
	c.client = mqtt.NewClient(c.opts)
	broker := c.cfg.BrokerURL()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	b.Reset()

	for attempt := 1; ; attempt++ {
		err := waitToken(ctx, c.client.Connect())
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to connect to %s: %w", broker, ctxErr)
		}
		c.logger.Warn("Broker connection failed",
			zap.String("broker", broker),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(b.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("failed to connect to %s: %w (last error: %v)", broker, ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// Subscribe registers handler for topic. The subscription is restored
// after every reconnect.
func (c *Client) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	if c.client == nil {
		return ErrNotConnected
	}
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if err := waitToken(ctx, c.client.Subscribe(topic, c.cfg.QoS, wrap(handler))); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	c.logger.Info("Subscribed", zap.String("topic", topic), zap.Uint8("qos", c.cfg.QoS))
	return nil
}

// Publish sends payload to topic at the configured QoS.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if c.client == nil {
		return ErrNotConnected
	}
	logging.LogDownlink(topic, payload)
	if err := waitToken(ctx, c.client.Publish(topic, c.cfg.QoS, false, payload)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiet)
		logging.LogConnection(c.cfg.BrokerURL(), "disconnected")
	}
}

// onConnect restores every registered subscription.
func (c *Client) onConnect(client mqtt.Client) {
	logging.LogConnection(c.cfg.BrokerURL(), "connected")
	c.logger.Debug("Client identity", zap.String("agent", version.UserAgent()))

	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		token := client.Subscribe(topic, c.cfg.QoS, wrap(h))
		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			c.logger.Error("Re-subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("Broker connection lost",
		zap.String("broker", c.cfg.BrokerURL()),
		zap.Error(err),
	)
}

func wrap(h MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	}
}

// waitToken blocks until the token completes or ctx is done.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
