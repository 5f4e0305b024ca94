package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/pubsense/core/model"
	coremqtt "github.com/kilianp07/pubsense/core/mqtt"
	"github.com/kilianp07/pubsense/infra/logger"
)

// DefaultTopic is the topic readings are published to when none is set.
const DefaultTopic = "sense-hat"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Host                  string      `json:"host"`
	Port                  int         `json:"port"`
	Topic                 string      `json:"topic"`
	ClientID              string      `json:"client_id"`
	Username              string      `json:"username"`
	Password              string      `json:"password"`
	QoS                   byte        `json:"qos"`
	Retain                bool        `json:"retain"`
	UseTLS                bool        `json:"use_tls"`
	ClientCert            string      `json:"client_cert"`
	ClientKey             string      `json:"client_key"`
	CABundle              string      `json:"ca_bundle"`
	LWTTopic              string      `json:"lwt_topic"`
	LWTPayload            string      `json:"lwt_payload"`
	LWTQoS                byte        `json:"lwt_qos"`
	LWTRetain             bool        `json:"lwt_retain"`
	ConnectTimeoutSeconds int         `json:"connect_timeout_seconds"`
	TLSConfig             *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = 1883
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = 30
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("mqtt host is required")
	}
	if c.Username == "" {
		return fmt.Errorf("mqtt username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("mqtt password is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid mqtt port %d", c.Port)
	}
	if c.QoS > 2 || c.LWTQoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	return nil
}

// BrokerURL returns the broker address in the form expected by paho.
func (c Config) BrokerURL() string {
	scheme := "tcp"
	if c.UseTLS {
		scheme = "ssl"
	}
	return scheme + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// pahoClient is the subset of paho.Client used by PahoPublisher.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// PahoPublisher implements the core Publisher interface using Eclipse Paho.
// It owns a single broker connection for the lifetime of the process.
type PahoPublisher struct {
	cli    pahoClient
	qos    byte
	retain bool
	logger logger.Logger
}

// connectGrace is added to the paho connect timeout so that paho reports its
// own error before the wait gives up.
const connectGrace = 5 * time.Second

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoPublisher connects to the MQTT broker. The call blocks until the
// broker accepts the connection or the connect timeout expires.
func NewPahoPublisher(cfg Config, log logger.Logger) (*PahoPublisher, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(_ paho.Client) {
		log.Infof("MQTT connected to %s", cfg.BrokerURL())
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	token := c.Connect()
	wait := opts.ConnectTimeout + connectGrace
	if !token.WaitTimeout(wait) {
		return nil, fmt.Errorf("%w: %s: timed out after %s", coremqtt.ErrBrokerConnect, cfg.BrokerURL(), wait)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", coremqtt.ErrBrokerConnect, cfg.BrokerURL(), err)
	}
	return &PahoPublisher{cli: c, qos: cfg.QoS, retain: cfg.Retain, logger: log}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "pub-sense-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.BrokerURL()).SetClientID(clientID)
	opts.AutoReconnect = true
	opts.ConnectRetry = false
	if cfg.ConnectTimeoutSeconds > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeoutSeconds) * time.Second)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
// Without a client certificate only the CA bundle is used to verify the broker.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		caBytes, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("ca bundle %s contains no certificates", c.CABundle)
		}
		cfg.RootCAs = pool
	}
	if c.ClientCert != "" || c.ClientKey != "" {
		if c.ClientCert == "" || c.ClientKey == "" {
			return nil, fmt.Errorf("tls client auth requires both client_cert and client_key")
		}
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Publish sends the snapshot as a JSON document to topic. It waits for the
// client to complete the publish or for ctx to be done, whichever is first.
func (p *PahoPublisher) Publish(ctx context.Context, topic string, snap model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %w", coremqtt.ErrPublish, err)
	}
	token := p.cli.Publish(topic, p.qos, p.retain, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: topic %s: %w", coremqtt.ErrPublishTimeout, topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: topic %s: %w", coremqtt.ErrPublish, topic, err)
	}
	p.logger.Debugw("published snapshot", map[string]any{"topic": topic, "bytes": len(payload)})
	return nil
}

// Close gracefully closes the MQTT connection.
func (p *PahoPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
