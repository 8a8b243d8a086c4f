package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sunspec-monitor/internal/sunspec"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	discovery   bool
	enabled     bool
	logger      *zap.Logger

	mu         sync.Mutex
	discovered map[string]bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Discovery   bool
	Enabled     bool
	Logger      *zap.Logger
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return &Publisher{enabled: false, logger: logger}, nil
	}

	// Several monitors may share a broker; the suffix keeps sessions apart.
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("MQTT connected", zap.String("broker", cfg.Broker), zap.String("client_id", clientID))
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		discovery:   cfg.Discovery,
		enabled:     true,
		logger:      logger,
		discovered:  make(map[string]bool),
	}, nil
}

// Publish sends every reading of snap to its own topic and the whole
// snapshot, retained, to the device's status topic. Home Assistant
// discovery configs go out once per device, and once more when the
// device identity arrives late.
func (p *Publisher) Publish(snap sunspec.Snapshot) error {
	if !p.enabled {
		return nil
	}

	if p.discovery && p.markDiscovered(snap) {
		msgs, err := discoveryMessages(p.topicPrefix, snap)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if err := p.send(m); err != nil {
				p.logger.Warn("Failed to publish discovery config", zap.String("topic", m.topic), zap.Error(err))
			}
		}
	}

	msgs, err := stateMessages(p.topicPrefix, snap)
	if err != nil {
		return err
	}

	var failed int
	for _, m := range msgs[:len(msgs)-1] {
		if err := p.send(m); err != nil {
			failed++
			p.logger.Debug("Failed to publish reading", zap.String("topic", m.topic), zap.Error(err))
		}
	}
	if failed > 0 {
		p.logger.Warn("Some readings were not published", zap.String("device", snap.Name), zap.Int("failed", failed))
	}

	status := msgs[len(msgs)-1]
	if err := p.send(status); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// markDiscovered reports whether snap's discovery configs should be sent.
// A device first seen without its common block is announced again once
// the manufacturer shows up.
func (p *Publisher) markDiscovered(snap sunspec.Snapshot) bool {
	identified := text(snap, "c_manufacturer") != ""

	p.mu.Lock()
	defer p.mu.Unlock()
	done, seen := p.discovered[snap.Name]
	if seen && (done || !identified) {
		return false
	}
	p.discovered[snap.Name] = identified
	return true
}

func (p *Publisher) send(m message) error {
	token := p.client.Publish(m.topic, 0, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", m.topic)
	}
	return token.Error()
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}

// stateMessages returns one message per reading holding a value, followed
// by the retained status message.
func stateMessages(prefix string, snap sunspec.Snapshot) ([]message, error) {
	base := fmt.Sprintf("%s/%s", prefix, slug(snap.Name))

	msgs := make([]message, 0, len(snap.Readings)+1)
	for _, r := range snap.Readings {
		if r.Value.IsAbsent() {
			continue
		}
		payload := r.Value.String()
		if r.Text != "" {
			payload = r.Text
		}
		msgs = append(msgs, message{topic: base + "/" + r.Key, payload: []byte(payload)})
	}

	status, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	msgs = append(msgs, message{topic: base + "/status", retained: true, payload: status})
	return msgs, nil
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty"`
}

type discoveryConfig struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	UnitOfMeasurement string          `json:"unit_of_measurement"`
	DeviceClass       string          `json:"device_class,omitempty"`
	StateClass        string          `json:"state_class,omitempty"`
	Device            discoveryDevice `json:"device"`
}

var deviceClasses = map[string]string{
	"W":   "power",
	"Wh":  "energy",
	"V":   "voltage",
	"A":   "current",
	"Hz":  "frequency",
	"°C":  "temperature",
	"VA":  "apparent_power",
	"VAR": "reactive_power",
}

// discoveryMessages announces every reading with units as a Home Assistant
// sensor.
func discoveryMessages(prefix string, snap sunspec.Snapshot) ([]message, error) {
	id := fmt.Sprintf("%s_%s", slug(prefix), slug(snap.Name))
	device := discoveryDevice{
		Identifiers:  []string{id},
		Name:         snap.Name,
		Manufacturer: text(snap, "c_manufacturer"),
		Model:        text(snap, "c_model"),
		SWVersion:    text(snap, "c_version"),
		SerialNumber: text(snap, "c_serialnumber"),
	}

	var msgs []message
	for _, r := range snap.Readings {
		if r.Units == "" {
			continue
		}
		cfg := discoveryConfig{
			Name:              r.Label,
			UniqueID:          id + "_" + r.Key,
			StateTopic:        fmt.Sprintf("%s/%s/%s", prefix, slug(snap.Name), r.Key),
			UnitOfMeasurement: r.Units,
			DeviceClass:       deviceClasses[r.Units],
			StateClass:        "measurement",
			Device:            device,
		}
		if r.Units == "Wh" {
			cfg.StateClass = "total_increasing"
		}

		payload, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal discovery config for %s: %w", r.Key, err)
		}
		msgs = append(msgs, message{
			topic:    fmt.Sprintf("homeassistant/sensor/%s/%s/config", id, r.Key),
			retained: true,
			payload:  payload,
		})
	}
	return msgs, nil
}

func text(snap sunspec.Snapshot, key string) string {
	s, _ := snap.Values[key].Text()
	return s
}

func slug(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, strings.TrimSpace(name))
}
