package mqtt

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/FrameScene/internal/config"
)

const opTimeout = 10 * time.Second

// Presence payloads, retained on a frame's status topic.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// StatusTopic returns the retained presence topic of a frame.
func StatusTopic(prefix, frameID string) string {
	return fmt.Sprintf("%s/%s/status", strings.TrimSuffix(prefix, "/"), frameID)
}

// Options configures a Client.
type Options struct {
	Broker      string
	ClientID    string
	Credentials config.MQTTCredentials

	// StatusTopic, if set, is kept at PresenceOnline while connected and
	// falls back to PresenceOffline through the broker's last will.
	StatusTopic string

	// OnStateChange runs on a paho goroutine whenever the connection comes
	// up or is lost.
	OnStateChange func(connected bool)
}

// Client is a paho connection with bounded waits. Paho reconnects on its
// own; Client only reports the transitions.
type Client struct {
	opts Options
	conn paho.Client
	mu   sync.Mutex
}

// NewClient prepares a client. Nothing is sent until Connect.
func NewClient(opts Options) *Client {
	c := &Client{opts: opts}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onLost)
	if opts.Credentials.Username != "" {
		po.SetUsername(opts.Credentials.Username)
		po.SetPassword(opts.Credentials.Password)
	}
	if opts.StatusTopic != "" {
		po.SetWill(opts.StatusTopic, PresenceOffline, 1, true)
	}

	c.conn = paho.NewClient(po)
	return c
}

func (c *Client) onConnect(paho.Client) {
	log.Printf("mqtt: connected to %s", c.opts.Broker)
	if c.opts.StatusTopic != "" {
		// Not waited on: paho is still finishing the connect.
		c.conn.Publish(c.opts.StatusTopic, 1, true, PresenceOnline)
	}
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(true)
	}
}

func (c *Client) onLost(_ paho.Client, err error) {
	log.Printf("mqtt: lost connection to %s: %v", c.opts.Broker, err)
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(false)
	}
}

// wait bounds a token; an expired wait is a TimeoutError for op on topic.
func wait(t paho.Token, op, topic string) error {
	if !t.WaitTimeout(opTimeout) {
		return &TimeoutError{Op: op, Topic: topic}
	}
	return t.Error()
}

// Connect makes the first connection attempt and reports its outcome.
// With connect retry enabled paho keeps trying after a failure.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wait(c.conn.Connect(), "connect", c.opts.Broker)
}

// ConnectOrLog is Connect for long-running services: a failure is logged
// and the background retry left to run.
func (c *Client) ConnectOrLog() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: %s unreachable, retrying in background: %v", c.opts.Broker, err)
		return false
	}
	return true
}

// Publish sends payload to topic at QoS 1.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	return wait(c.conn.Publish(topic, 1, retained, payload), "publish", topic)
}

// Subscribe registers handler for topic at QoS 1.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wait(c.conn.Subscribe(topic, 1, handler), "subscribe", topic)
}

// Disconnect marks the frame offline, since a clean disconnect does not
// fire the will, then closes the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.StatusTopic != "" && c.conn.IsConnected() {
		if err := wait(c.conn.Publish(c.opts.StatusTopic, 1, true, PresenceOffline), "publish", c.opts.StatusTopic); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
	c.conn.Disconnect(1000)
}

func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// TimeoutError reports a broker operation that did not complete in time.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("mqtt %s timed out: %s", e.Op, e.Topic)
}
