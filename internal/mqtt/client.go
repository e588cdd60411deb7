package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"unit-gateway/internal/logging"
)

// Subscriptions for the two inbound device message kinds. The single-level
// wildcard matches the hardware address segment.
const (
	StatusTopicFilter = "unit/+/status"
	AliveTopicFilter  = "unit/+/alive"
)

// Client manages the single broker connection. Paho delivers messages for a
// subscription in order and one at a time per callback, which the handlers
// rely on for dedup without extra locking.
type Client struct {
	client mqtt.Client
	logger *logging.Logger
}

// ClientConfig holds MQTT client configuration.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient connects to the broker and returns a ready Client.
func NewClient(cfg ClientConfig, logger *logging.Logger) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Infof("MQTT: connection established")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("MQTT: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	logger.Infof("MQTT: connected to broker %s", cfg.Broker)

	return &Client{client: client, logger: logger}, nil
}

// Subscribe registers the router for both device topics.
func (c *Client) Subscribe(router *Router) error {
	for _, filter := range []string{StatusTopicFilter, AliveTopicFilter} {
		token := c.client.Subscribe(filter, 1, router.Handle)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", filter, token.Error())
		}
		c.logger.Infof("MQTT: subscribed to %s", filter)
	}
	return nil
}

// Publish sends payload to topic at QoS 1 without retain. The paho client
// is safe for concurrent publishes.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Infof("MQTT: disconnected")
}
