package bootstrap

import (
	"github.com/Goden-Gun/resilience-lib/pkg/config"
	"github.com/Goden-Gun/resilience-lib/pkg/sink"
)

// KafkaSinkConfig 将 Kafka 配置转换为通知 sink 配置
func KafkaSinkConfig(cfg config.KafkaConfig, topic string) sink.KafkaConfig {
	return sink.KafkaConfig{
		Brokers:       cfg.Brokers,
		Topic:         topic,
		ClientID:      cfg.ClientID,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SASLMechanism: cfg.SASLMechanism,
		TLSEnabled:    cfg.TLSEnabled,
		RequiredAcks:  cfg.RequiredAcks,
		MaxAttempts:   cfg.MaxAttempts,
	}
}

// InitKafka 初始化 Kafka 通知 sink
func InitKafka(cfg config.KafkaConfig, topic string) (*sink.Kafka, error) {
	return sink.DialKafka(KafkaSinkConfig(cfg, topic))
}
