// Package sink forwards notifications to external systems so that errors
// reported in one process can be aggregated elsewhere.
package sink

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"

	"github.com/Goden-Gun/resilience-lib/pkg/notify"
	"github.com/Goden-Gun/resilience-lib/pkg/tracing"
)

// KafkaConfig holds broker connection and producer settings.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ClientID      string
	Username      string
	Password      string
	SASLMechanism string
	TLSEnabled    bool
	// RequiredAcks supports: "none" | "one" | "all" (default: all).
	RequiredAcks string
	// MaxAttempts is the producer retry budget (minimum 3).
	MaxAttempts int
}

// PublishObserver observes publish latency and errors per sink.
type PublishObserver interface {
	ObservePublish(sink string, duration time.Duration, err error)
}

// Kafka publishes each notification as a JSON message keyed by error code.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string

	observerMu sync.RWMutex
	observer   PublishObserver

	closeOnce sync.Once
}

// NewSaramaConfig translates cfg into a producer configuration.
func NewSaramaConfig(cfg KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = max(cfg.MaxAttempts, 3)
	sc.Producer.RequiredAcks = parseRequiredAcks(cfg.RequiredAcks)

	if cfg.TLSEnabled {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Username != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User = cfg.Username
		sc.Net.SASL.Password = cfg.Password
		switch strings.ToUpper(strings.TrimSpace(cfg.SASLMechanism)) {
		case "SCRAM-SHA-512":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &scramClient{hash: scram.SHA512} }
		case "SCRAM-SHA-256":
			sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &scramClient{hash: scram.SHA256} }
		default:
			sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}
	return sc
}

// DialKafka connects a sync producer for cfg.Topic.
func DialKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic empty")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewKafka(producer, cfg.Topic), nil
}

// NewKafka wraps an existing producer.
func NewKafka(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

// SetObserver installs or replaces the publish observer.
func (k *Kafka) SetObserver(o PublishObserver) {
	k.observerMu.Lock()
	k.observer = o
	k.observerMu.Unlock()
}

func (k *Kafka) observe(d time.Duration, err error) {
	k.observerMu.RLock()
	o := k.observer
	k.observerMu.RUnlock()
	if o != nil {
		o.ObservePublish("kafka", d, err)
	}
}

// Publish sends e with the caller's trace context in the message headers.
func (k *Kafka) Publish(ctx context.Context, e notify.Entry) (err error) {
	start := time.Now()
	defer func() { k.observe(time.Since(start), err) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:   k.topic,
		Value:   sarama.ByteEncoder(value),
		Headers: tracing.InjectKafka(ctx),
	}
	if e.Code != "" {
		msg.Key = sarama.StringEncoder(e.Code)
	}
	_, _, err = k.producer.SendMessage(msg)
	return err
}

// Close shuts down the producer once.
func (k *Kafka) Close() error {
	var err error
	k.closeOnce.Do(func() {
		if k.producer != nil {
			err = k.producer.Close()
		}
	})
	return err
}

func parseRequiredAcks(v string) sarama.RequiredAcks {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return sarama.NoResponse
	case "one":
		return sarama.WaitForLocal
	default:
		return sarama.WaitForAll
	}
}

type scramClient struct {
	*scram.Client
	*scram.ClientConversation
	hash scram.HashGeneratorFcn
}

func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.hash.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.Client = client
	c.ClientConversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.ClientConversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.ClientConversation.Done()
}
