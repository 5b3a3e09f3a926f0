package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/jgoulah/usageledger/internal/config"
	"github.com/jgoulah/usageledger/pkg/models"
)

const publishTimeout = 10 * time.Second

// Publisher announces submitted entries on an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	logger      *zap.Logger
}

// New connects to the broker configured in cfg
func New(cfg config.MQTTConfig, topicPrefix string, logger *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "usageledger"
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return newPublisher(client, topicPrefix, logger), nil
}

func newPublisher(client mqtt.Client, topicPrefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topicPrefix == "" {
		topicPrefix = "usageledger"
	}
	return &Publisher{client: client, topicPrefix: topicPrefix, logger: logger.Named("publisher")}
}

// Payload is the retained message published for an entry
type Payload struct {
	EntryID string             `json:"entry_id"`
	Unit    string             `json:"unit"`
	Status  string             `json:"status"`
	Monthly map[string]float64 `json:"monthly"`
	Amount  float64            `json:"amount"`
}

// Topic returns the topic an entry is published on
func (p *Publisher) Topic(entry models.Entry) string {
	return fmt.Sprintf("%s/%s/%d", p.topicPrefix, entry.PageKey, entry.Year)
}

// BuildPayload encodes an entry's monthly totals
func BuildPayload(entry models.Entry) ([]byte, error) {
	monthly := make(map[string]float64, len(entry.Monthly))
	for m, v := range entry.Monthly {
		monthly[fmt.Sprintf("%02d", m)] = v
	}
	body, err := json.Marshal(Payload{
		EntryID: entry.ID,
		Unit:    entry.Unit,
		Status:  entry.Status,
		Monthly: monthly,
		Amount:  entry.Monthly.Total(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return body, nil
}

// Publish sends an entry as a retained QoS 1 message
func (p *Publisher) Publish(ctx context.Context, entry models.Entry) error {
	body, err := BuildPayload(entry)
	if err != nil {
		return err
	}

	topic := p.Topic(entry)
	token := p.client.Publish(topic, 1, true, body)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.logger.Info("published entry", zap.String("topic", topic), zap.String("entry_id", entry.ID))
	return nil
}

// EntrySubmitted publishes a freshly submitted entry
func (p *Publisher) EntrySubmitted(ctx context.Context, entry models.Entry) error {
	return p.Publish(ctx, entry)
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
