package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pubsense/core/model"
	coremqtt "github.com/kilianp07/pubsense/core/mqtt"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func useMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func testConfig() Config {
	cfg := Config{Host: "localhost", ClientID: "id", Username: "u", Password: "p"}
	cfg.SetDefaults()
	return cfg
}

func testSnapshot() model.Snapshot {
	return model.NewSnapshotBuilder(time.Now()).
		Set(model.ChannelTemperature, model.Scalar(21.5)).
		Set(model.ChannelHumidity, model.Scalar(40.0)).
		Build()
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestLoadTLSConfigCAOnly(t *testing.T) {
	_, _, ca := generateCert(t)
	tlsCfg, err := Config{UseTLS: true, CABundle: ca}.LoadTLSConfig()
	require.NoError(t, err)
	assert.Empty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true, ClientCert: "cert.pem"}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, 1883, cfg.Port)
	assert.Equal(t, "sense-hat", cfg.Topic)
	assert.Error(t, cfg.Validate(), "host is mandatory")

	cfg.Host = "broker"
	assert.Error(t, cfg.Validate(), "username is mandatory")
	cfg.Username = "u"
	assert.Error(t, cfg.Validate(), "password is mandatory")
	cfg.Password = "p"
	assert.NoError(t, cfg.Validate())

	cfg.QoS = 3
	assert.Error(t, cfg.Validate())
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerURL())
	cfg.UseTLS = true
	cfg.Port = 8883
	assert.Equal(t, "ssl://localhost:8883", cfg.BrokerURL())
	cfg.Host = "::1"
	assert.Equal(t, "ssl://[::1]:8883", cfg.BrokerURL())
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(testConfig())
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	assert.Equal(t, "id", opts.ClientID)
	assert.True(t, opts.AutoReconnect)
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
}

func TestNewClientOptionsGeneratesClientID(t *testing.T) {
	cfg := testConfig()
	cfg.ClientID = ""
	a, err := NewClientOptions(cfg)
	require.NoError(t, err)
	b, err := NewClientOptions(cfg)
	require.NoError(t, err)
	assert.Contains(t, a.ClientID, "pub-sense-")
	assert.NotEqual(t, a.ClientID, b.ClientID)
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	useMockClient(t, mc)
	cfg := testConfig()
	cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS = "sense-hat/status", "offline", 1
	pub, err := NewPahoPublisher(cfg, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "sense-hat/status" || string(mc.opts.WillPayload) != "offline" {
		t.Fatalf("will options incorrect")
	}
	require.NoError(t, pub.Close())
	assert.True(t, mc.disconnected)
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestPublishSendsJSONWithQoS(t *testing.T) {
	mc := &mockClient{}
	useMockClient(t, mc)
	cfg := testConfig()
	cfg.QoS, cfg.Retain = 1, true
	pub, err := NewPahoPublisher(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), "sense-hat", testSnapshot()))
	require.Len(t, mc.published, 1)
	got := mc.published[0]
	assert.Equal(t, "sense-hat", got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.True(t, got.retained)
	assert.JSONEq(t, `{"temperature":21.5,"humidity":40.0}`, string(got.payload))
}

func TestPublishErrorWrapped(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("not connected")}}
	useMockClient(t, mc)
	pub, err := NewPahoPublisher(testConfig(), nil)
	require.NoError(t, err)

	err = pub.Publish(context.Background(), "sense-hat", testSnapshot())
	assert.ErrorIs(t, err, coremqtt.ErrPublish)
	assert.Contains(t, err.Error(), "sense-hat")
	assert.Len(t, mc.published, 1, "no retry on failure")
}

func TestPublishTimeout(t *testing.T) {
	mc := &mockClient{hang: true}
	useMockClient(t, mc)
	pub, err := NewPahoPublisher(testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = pub.Publish(ctx, "sense-hat", testSnapshot())
	assert.ErrorIs(t, err, coremqtt.ErrPublishTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectErrorWrapped(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("not Authorized")}
	useMockClient(t, mc)
	_, err := NewPahoPublisher(testConfig(), nil)
	assert.ErrorIs(t, err, coremqtt.ErrBrokerConnect)
	assert.Contains(t, err.Error(), "tcp://localhost:1883")
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}
	publishErrs  []error
	connectErr   error
	hang         bool
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}{topic, qos, retained, b})
	if m.hang {
		return &hangingToken{}
	}
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

// hangingToken never completes.
type hangingToken struct{}

func (hangingToken) Wait() bool                     { select {} }
func (hangingToken) WaitTimeout(time.Duration) bool { return false }
func (hangingToken) Done() <-chan struct{}          { return make(chan struct{}) }
func (hangingToken) Error() error                   { return nil }

func TestPayloadKeepsCompositeStructure(t *testing.T) {
	mc := &mockClient{}
	useMockClient(t, mc)
	pub, err := NewPahoPublisher(testConfig(), nil)
	require.NoError(t, err)
	snap := model.NewSnapshotBuilder(time.Now()).
		Set(model.ChannelGyroscope, model.Vector{X: 0.1, Y: 0.2, Z: 0.3}).
		Build()
	require.NoError(t, pub.Publish(context.Background(), "t", snap))

	var got map[string]map[string]float64
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &got))
	assert.Equal(t, map[string]float64{"x": 0.1, "y": 0.2, "z": 0.3}, got["gyroscope"])
}
